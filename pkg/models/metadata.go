package models

import "context"

// MetadataProvider is the interface every metadata backend implements.
type MetadataProvider interface {
	// Name returns the provider identifier ("ollama", "openai", "mock").
	Name() string

	// Generate produces publishing metadata for a track.
	Generate(ctx context.Context, req MetadataRequest) (VideoMetadata, error)
}

// VideoMetadata is the generated publishing metadata for one processed item:
// an SEO-friendly title, a description, and tags for the external service.
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// MetadataRequest carries the track identity the generator works from.
type MetadataRequest struct {
	Artist string
	Track  string
}
