// Package mock provides a models.MetadataProvider for testing.
package mock

import (
	"context"

	"github.com/vocalless/vocalless/internal/metadata"
	"github.com/vocalless/vocalless/pkg/models"
)

// MockProvider satisfies models.MetadataProvider for testing.
type MockProvider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, req models.MetadataRequest) (models.VideoMetadata, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Generate(ctx context.Context, req models.MetadataRequest) (models.VideoMetadata, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return models.VideoMetadata{}, nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, req models.MetadataRequest) (models.VideoMetadata, error) {
			return models.VideoMetadata{
				Title:       req.Artist + " - " + req.Track + " (Instrumental Remaster)",
				Description: "Instrumental remaster of " + req.Track + " by " + req.Artist + ".",
				Tags:        []string{req.Artist, req.Track, "instrumental", "karaoke"},
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ models.MetadataRequest) (models.VideoMetadata, error) {
			return models.VideoMetadata{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _ models.MetadataRequest) (models.VideoMetadata, error) {
			<-ctx.Done()
			return models.VideoMetadata{}, metadata.ErrGenerationTimeout
		},
	}
}

// Compile-time check that MockProvider implements MetadataProvider.
var _ models.MetadataProvider = (*MockProvider)(nil)
