// Package ytdlp fetches remote audio through the yt-dlp binary and resolves
// uploaded-file references from the uploads directory.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vocalless/vocalless/internal/pipeline"
	"github.com/vocalless/vocalless/pkg/models"
)

// Client shells out to yt-dlp for URL items. File items never touch the
// binary; they resolve straight into the uploads directory.
type Client struct {
	binPath    string
	tempDir    string
	uploadsDir string
	logger     *slog.Logger
}

// NewClient creates a fetcher. binPath defaults to "yt-dlp" on PATH.
func NewClient(binPath, tempDir, uploadsDir string, logger *slog.Logger) *Client {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{binPath: binPath, tempDir: tempDir, uploadsDir: uploadsDir, logger: logger}
}

// Fetch resolves the item into a local mp3 plus a display title.
func (c *Client) Fetch(ctx context.Context, item models.ItemSpec) (pipeline.FetchResult, error) {
	if item.File != "" {
		return c.resolveUpload(item.File)
	}
	return c.download(ctx, item.URL)
}

func (c *Client) resolveUpload(ref string) (pipeline.FetchResult, error) {
	name := filepath.Base(ref)
	path := filepath.Join(c.uploadsDir, name)
	if _, err := os.Stat(path); err != nil {
		return pipeline.FetchResult{}, fmt.Errorf("uploaded file %s: %w", name, err)
	}
	return pipeline.FetchResult{AudioPath: path, Title: TitleFromFilename(name)}, nil
}

func (c *Client) download(ctx context.Context, rawURL string) (pipeline.FetchResult, error) {
	args := downloadArgs(c.tempDir, rawURL)

	cmd := exec.CommandContext(ctx, c.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Info("fetching audio", "url", rawURL)
	if err := cmd.Run(); err != nil {
		return pipeline.FetchResult{}, fmt.Errorf("yt-dlp failed: %w: %s",
			err, strings.TrimSpace(stderr.String()))
	}

	title, path, err := parsePrintOutput(stdout.String())
	if err != nil {
		return pipeline.FetchResult{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return pipeline.FetchResult{}, fmt.Errorf("downloaded file missing: %w", err)
	}
	return pipeline.FetchResult{AudioPath: path, Title: title}, nil
}

// downloadArgs builds the yt-dlp invocation: best audio extracted to mp3 at
// 192k, single video only, with the title and final path printed on stdout.
func downloadArgs(tempDir, rawURL string) []string {
	return []string{
		"--no-playlist",
		"--restrict-filenames",
		"-f", "bestaudio/best",
		"-x", "--audio-format", "mp3",
		"--audio-quality", "192K",
		"-P", tempDir,
		"-o", "%(title).200B.%(ext)s",
		"--no-simulate",
		"--print", "title",
		"--print", "after_move:filepath",
		rawURL,
	}
}

// parsePrintOutput reads the two --print lines: the title, then the final
// file path after postprocessing.
func parsePrintOutput(out string) (title, path string, err error) {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return "", "", fmt.Errorf("unexpected yt-dlp output: %q", strings.TrimSpace(out))
	}
	return lines[len(lines)-2], lines[len(lines)-1], nil
}

// CleanURL strips playlist parameters from a media URL so a link copied out
// of a playlist fetches the single video only. Unparseable input passes
// through untouched.
func CleanURL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if !q.Has("list") && !q.Has("index") {
		return rawURL
	}
	q.Del("list")
	q.Del("index")
	u.RawQuery = q.Encode()
	return u.String()
}

// uploadPrefixRE matches the short random prefix the upload handler prepends
// to stored file names.
var uploadPrefixRE = regexp.MustCompile(`^[0-9a-f]{8}_`)

// TitleFromFilename derives a display title from an uploaded file's name.
func TitleFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = uploadPrefixRE.ReplaceAllString(base, "")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}
