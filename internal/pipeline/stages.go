// Package pipeline runs one item through its ordered stage sequence. The
// stages themselves (download, separation, mastering, composition, upload) are
// external collaborators behind the interfaces below; the runner only
// sequences them and converts the first stage failure into a failed item.
package pipeline

import (
	"context"

	"github.com/vocalless/vocalless/pkg/models"
)

// FetchResult is a fetched item: a local audio file plus its display title.
type FetchResult struct {
	AudioPath string
	Title     string
}

// Fetcher resolves an item source (remote URL or uploaded file reference)
// into a local audio file.
type Fetcher interface {
	Fetch(ctx context.Context, item models.ItemSpec) (FetchResult, error)
}

// SeparationResult holds the two stems produced from one audio file.
type SeparationResult struct {
	Instrumental string
	Acapella     string
}

// Separator splits an audio file into an instrumental and an acapella stem.
type Separator interface {
	Separate(ctx context.Context, audioPath string) (SeparationResult, error)
}

// Masterer loudness-normalizes an audio file and returns the mastered path.
type Masterer interface {
	Master(ctx context.Context, audioPath string) (string, error)
}

// Composer renders a video for an audio file and returns the video path.
type Composer interface {
	Compose(ctx context.Context, audioPath, title string) (string, error)
}

// MetadataGenerator produces publishing metadata for a track.
type MetadataGenerator interface {
	Generate(ctx context.Context, req models.MetadataRequest) (models.VideoMetadata, error)
}

// Uploader publishes a finished artifact to the external service and returns
// its public URL.
type Uploader interface {
	Upload(ctx context.Context, mediaPath string, meta models.VideoMetadata) (string, error)
}

// Stages bundles the collaborators an item passes through. Metadata, Compose
// and Upload may be nil when the corresponding option is never enabled.
type Stages struct {
	Fetch    Fetcher
	Separate Separator
	Master   Masterer
	Metadata MetadataGenerator
	Compose  Composer
	Upload   Uploader
}
