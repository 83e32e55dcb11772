// Package openai implements models.MetadataProvider against the OpenAI chat
// completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vocalless/vocalless/internal/config"
	"github.com/vocalless/vocalless/internal/metadata/prompt"
	"github.com/vocalless/vocalless/pkg/models"
)

const (
	defaultTimeout = 60 * time.Second
	completionsURL = "https://api.openai.com/v1/chat/completions"
)

// Provider implements models.MetadataProvider using OpenAI.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Generate(ctx context.Context, req models.MetadataRequest) (models.VideoMetadata, error) {
	title, err := p.complete(ctx, prompt.TitleSystem, prompt.Title(req))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("generate title: %w", err)
	}

	description, err := p.complete(ctx, prompt.DescriptionSystem, prompt.Description(req))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("generate description: %w", err)
	}

	rawTags, err := p.complete(ctx, prompt.TagsSystem, prompt.Tags(req))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("generate tags: %w", err)
	}

	return models.VideoMetadata{
		Title:       prompt.CleanTitle(title),
		Description: strings.TrimSpace(description),
		Tags:        prompt.ParseTags(rawTags),
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Provider) complete(ctx context.Context, system, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai returned empty response")
	}
	return out.Choices[0].Message.Content, nil
}

var _ models.MetadataProvider = (*Provider)(nil)
