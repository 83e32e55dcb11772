// Package youtube publishes finished artifacts to the external video service
// through its HTTP upload API.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vocalless/vocalless/internal/config"
	"github.com/vocalless/vocalless/pkg/models"
)

// Sentinel errors for upload failures.
var (
	ErrUploadDisabled    = errors.New("upload service not configured")
	ErrUploadUnreachable = errors.New("upload service unreachable")
	ErrUploadRejected    = errors.New("upload rejected")
)

const (
	defaultTimeout = 10 * time.Minute
	defaultPrivacy = "unlisted"
)

// Client implements pipeline.Uploader against the publishing service's
// multipart upload endpoint. A zero Token disables the stage; items that ask
// for it fail individually.
type Client struct {
	baseURL string
	token   string
	privacy string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates an upload client from config.
func NewClient(cfg config.UploadConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	privacy := cfg.Privacy
	if privacy == "" {
		privacy = defaultPrivacy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		privacy: privacy,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Enabled reports whether an upload token is configured.
func (c *Client) Enabled() bool { return c.token != "" }

type uploadResponse struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Upload streams the media file with its metadata and returns the public URL.
func (c *Client) Upload(ctx context.Context, mediaPath string, meta models.VideoMetadata) (string, error) {
	if !c.Enabled() {
		return "", ErrUploadDisabled
	}

	file, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, file, filepath.Base(mediaPath), meta, c.privacy)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/videos", pr)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Info("uploading artifact", "file", filepath.Base(mediaPath), "title", meta.Title)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUploadRejected, resp.StatusCode,
			strings.TrimSpace(string(body)))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: response missing url", ErrUploadRejected)
	}
	return out.URL, nil
}

func writeUploadForm(mw *multipart.Writer, file io.Reader, filename string, meta models.VideoMetadata, privacy string) error {
	if err := mw.WriteField("title", meta.Title); err != nil {
		return err
	}
	if err := mw.WriteField("description", meta.Description); err != nil {
		return err
	}
	if err := mw.WriteField("tags", strings.Join(meta.Tags, ",")); err != nil {
		return err
	}
	if err := mw.WriteField("privacy", privacy); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("media", filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}
