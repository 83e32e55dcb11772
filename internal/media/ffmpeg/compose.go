package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Composer renders a spectrum-visualization video for an audio track: a
// slow-moving gradient background with a large log-scale frequency line
// overlaid near the bottom.
type Composer struct {
	binPath   string
	videosDir string
	logger    *slog.Logger
}

// NewComposer creates a Composer writing finished videos into videosDir.
func NewComposer(binPath, videosDir string, logger *slog.Logger) *Composer {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{binPath: binPath, videosDir: videosDir, logger: logger}
}

// Compose renders the video and returns its path. Encoding runs at the
// audio's length (-shortest against a looping background source).
func (c *Composer) Compose(ctx context.Context, audioPath, title string) (string, error) {
	outPath := filepath.Join(c.videosDir, videoFilename(title))

	cmd := exec.CommandContext(ctx, c.binPath, composeArgs(audioPath, outPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Info("composing video", "input", filepath.Base(audioPath), "output", filepath.Base(outPath))
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg compose failed: %w: %s", err, lastLines(stderr.String(), 5))
	}
	return outPath, nil
}

// spectrumFilter builds the filter graph: gradient background scaled to
// 1080p, a tall white showfreqs line keyed transparent and blurred into a
// glow, overlaid near the bottom edge.
const spectrumFilter = "[0:v]scale=1920:1080[bg];" +
	"[1:a]showfreqs=s=1920x1200:mode=line:colors=white:fscale=log:ascale=sqrt:win_size=4096[spectrum];" +
	"[spectrum]scale=1920:900[spectrum_scaled];" +
	"[spectrum_scaled]colorkey=0x000000:0.01:0.1[transparent];" +
	"[transparent]gblur=sigma=8:steps=4[glow];" +
	"[bg][glow]overlay=0:H-h-100:format=auto[outv]"

func composeArgs(audioPath, outPath string) []string {
	return []string{
		"-y",
		"-f", "lavfi", "-i", "gradients=size=1920x1080:speed=0.01:nb_colors=3",
		"-i", audioPath,
		"-filter_complex", spectrumFilter,
		"-map", "[outv]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outPath,
	}
}

// videoFilename derives a filesystem-safe mp4 name from the track title.
func videoFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, strings.TrimSpace(title))
	if name == "" {
		name = "video"
	}
	return name + ".mp4"
}
