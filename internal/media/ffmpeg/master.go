// Package ffmpeg wraps the ffmpeg binary for loudness mastering and spectrum
// video composition.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultTargetLUFS = -14.0

// Masterer normalizes audio to a streaming loudness target with two-pass
// EBU R128 loudnorm: a measurement pass, then a linear correction pass fed
// the measured values.
type Masterer struct {
	binPath    string
	targetLUFS float64
	logger     *slog.Logger
}

// NewMasterer creates a Masterer. binPath defaults to "ffmpeg", targetLUFS to
// -14 (the common streaming target); it must be negative.
func NewMasterer(binPath string, targetLUFS float64, logger *slog.Logger) *Masterer {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if targetLUFS >= 0 {
		targetLUFS = defaultTargetLUFS
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Masterer{binPath: binPath, targetLUFS: targetLUFS, logger: logger}
}

// loudnormStats is the measurement JSON ffmpeg prints on the first pass.
type loudnormStats struct {
	InputI       string `json:"input_i"`
	InputTP      string `json:"input_tp"`
	InputLRA     string `json:"input_lra"`
	InputThresh  string `json:"input_thresh"`
	TargetOffset string `json:"target_offset"`
}

// Master writes a "<name>_mastered.mp3" next to the input and returns its
// path.
func (m *Masterer) Master(ctx context.Context, audioPath string) (string, error) {
	stats, err := m.measure(ctx, audioPath)
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	outPath := stem + "_mastered.mp3"

	args := []string{
		"-y", "-i", audioPath,
		"-af", correctionFilter(m.targetLUFS, stats),
		"-ar", "44100",
		"-b:a", "320k",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	m.logger.Info("mastering audio", "input", filepath.Base(audioPath), "target_lufs", m.targetLUFS)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("loudnorm pass 2 failed: %w: %s",
			err, lastLines(stderr.String(), 5))
	}
	return outPath, nil
}

func (m *Masterer) measure(ctx context.Context, audioPath string) (loudnormStats, error) {
	args := []string{
		"-i", audioPath,
		"-af", measureFilter(m.targetLUFS),
		"-f", "null", "-",
	}
	cmd := exec.CommandContext(ctx, m.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return loudnormStats{}, fmt.Errorf("loudnorm pass 1 failed: %w: %s",
			err, lastLines(stderr.String(), 5))
	}
	return parseLoudnormStats(stderr.String())
}

func measureFilter(target float64) string {
	return fmt.Sprintf("loudnorm=I=%g:TP=-1.0:LRA=11:print_format=json", target)
}

// correctionFilter builds the second-pass filter with the measured values so
// ffmpeg can apply a linear gain instead of dynamic compression.
func correctionFilter(target float64, s loudnormStats) string {
	return fmt.Sprintf(
		"loudnorm=I=%g:TP=-1.0:LRA=11:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true",
		target, s.InputI, s.InputTP, s.InputLRA, s.InputThresh, s.TargetOffset)
}

// parseLoudnormStats extracts the JSON block loudnorm prints at the end of
// the measurement pass's stderr.
func parseLoudnormStats(stderr string) (loudnormStats, error) {
	start := strings.LastIndex(stderr, "{")
	end := strings.LastIndex(stderr, "}")
	if start < 0 || end < start {
		return loudnormStats{}, fmt.Errorf("no loudnorm stats in ffmpeg output")
	}

	var stats loudnormStats
	if err := json.Unmarshal([]byte(stderr[start:end+1]), &stats); err != nil {
		return loudnormStats{}, fmt.Errorf("parse loudnorm stats: %w", err)
	}
	if stats.InputI == "" {
		return loudnormStats{}, fmt.Errorf("incomplete loudnorm stats")
	}
	return stats, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
