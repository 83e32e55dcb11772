// Package demucs splits audio into stems through the demucs CLI. Separation
// holds the inference model (and any accelerator) exclusively, so runs are
// serialized process-wide.
package demucs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vocalless/vocalless/internal/pipeline"
)

const defaultModel = "htdemucs"

// Separator runs two-stem separation: instrumental (no_vocals) and acapella
// (vocals). Finished stems are moved out of the scratch directory into the
// instrumentals and acapellas output directories.
type Separator struct {
	binPath          string
	model            string
	tempDir          string
	instrumentalsDir string
	acapellasDir     string
	logger           *slog.Logger

	// One separation at a time; the model monopolizes memory and compute.
	mu sync.Mutex
}

// NewSeparator creates a Separator. binPath defaults to "demucs" on PATH,
// model to htdemucs.
func NewSeparator(binPath, model, tempDir, instrumentalsDir, acapellasDir string, logger *slog.Logger) *Separator {
	if binPath == "" {
		binPath = "demucs"
	}
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Separator{
		binPath:          binPath,
		model:            model,
		tempDir:          tempDir,
		instrumentalsDir: instrumentalsDir,
		acapellasDir:     acapellasDir,
		logger:           logger,
	}
}

// Separate produces the two stems for audioPath and returns their final
// locations.
func (s *Separator) Separate(ctx context.Context, audioPath string) (pipeline.SeparationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scratch, err := os.MkdirTemp(s.tempDir, "demucs-")
	if err != nil {
		return pipeline.SeparationResult{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	args := separateArgs(s.model, scratch, audioPath)
	cmd := exec.CommandContext(ctx, s.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.logger.Info("separating stems", "input", filepath.Base(audioPath), "model", s.model)
	if err := cmd.Run(); err != nil {
		return pipeline.SeparationResult{}, fmt.Errorf("demucs failed: %w: %s",
			err, strings.TrimSpace(stderr.String()))
	}

	track := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	stemDir := filepath.Join(scratch, s.model, track)

	instrumental, err := moveStem(
		filepath.Join(stemDir, "no_vocals.mp3"),
		filepath.Join(s.instrumentalsDir, track+"_instrumental.mp3"))
	if err != nil {
		return pipeline.SeparationResult{}, err
	}
	acapella, err := moveStem(
		filepath.Join(stemDir, "vocals.mp3"),
		filepath.Join(s.acapellasDir, track+"_acapella.mp3"))
	if err != nil {
		return pipeline.SeparationResult{}, err
	}

	return pipeline.SeparationResult{Instrumental: instrumental, Acapella: acapella}, nil
}

// separateArgs builds the demucs invocation: two-stem vocal split, mp3 out.
func separateArgs(model, outDir, audioPath string) []string {
	return []string{
		"--two-stems=vocals",
		"-n", model,
		"--mp3",
		"-o", outDir,
		audioPath,
	}
}

func moveStem(src, dst string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("expected stem missing: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		// Rename fails across filesystems; fall back to copy.
		if err := copyFile(src, dst); err != nil {
			return "", fmt.Errorf("move stem: %w", err)
		}
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
