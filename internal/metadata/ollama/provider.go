// Package ollama implements models.MetadataProvider against a local Ollama
// server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vocalless/vocalless/internal/config"
	"github.com/vocalless/vocalless/internal/metadata/prompt"
	"github.com/vocalless/vocalless/pkg/models"
)

const defaultTimeout = 60 * time.Second

// Provider implements models.MetadataProvider using Ollama's /api/generate
// endpoint. Each metadata field is one generation call.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Generate(ctx context.Context, req models.MetadataRequest) (models.VideoMetadata, error) {
	title, err := p.generate(ctx, prompt.TitleSystem, prompt.Title(req))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("generate title: %w", err)
	}

	description, err := p.generate(ctx, prompt.DescriptionSystem, prompt.Description(req))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("generate description: %w", err)
	}

	rawTags, err := p.generate(ctx, prompt.TagsSystem, prompt.Tags(req))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("generate tags: %w", err)
	}

	return models.VideoMetadata{
		Title:       prompt.CleanTitle(title),
		Description: strings.TrimSpace(description),
		Tags:        prompt.ParseTags(rawTags),
	}, nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (p *Provider) generate(ctx context.Context, system, userPrompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   p.cfg.Model,
		Prompt:  userPrompt,
		System:  system,
		Stream:  false,
		Options: generateOptions{Temperature: 0.7, TopP: 0.9},
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("ollama request: %w", err)
		}
		return "", fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("ollama returned empty response")
	}
	return out.Response, nil
}

var _ models.MetadataProvider = (*Provider)(nil)
