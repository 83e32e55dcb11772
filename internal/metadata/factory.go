// Package metadata selects and constructs the configured metadata provider.
package metadata

import (
	"fmt"

	"github.com/vocalless/vocalless/internal/config"
	"github.com/vocalless/vocalless/internal/metadata/ollama"
	"github.com/vocalless/vocalless/internal/metadata/openai"
	"github.com/vocalless/vocalless/pkg/models"
)

// NewProvider constructs the configured metadata provider. Called once at
// server startup.
func NewProvider(cfg config.MetadataConfig) (models.MetadataProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Ollama, cfg.Timeout), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown metadata provider %q: must be one of ollama, openai", cfg.Provider)
	}
}
