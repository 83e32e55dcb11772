package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vocalless/vocalless/pkg/models"
)

// Runner executes an item's stage sequence in order. A stage failure
// short-circuits the remaining stages for that item only and is reported as a
// failed ItemResult; it never escapes to abort the job loop.
type Runner struct {
	stages    Stages
	outputDir string
	publicURL string
	logger    *slog.Logger
}

// NewRunner creates a runner. outputDir is the artifact root on disk;
// publicURL is the URL prefix those artifacts are served under.
func NewRunner(stages Stages, outputDir, publicURL string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		stages:    stages,
		outputDir: outputDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Run processes one item. Any fault inside the stage sequence, panics
// included, is caught at this boundary and recorded as the item's failure.
func (r *Runner) Run(ctx context.Context, item models.ItemSpec, opts models.JobOptions) (result models.ItemResult) {
	source := item.Source()
	result = models.ItemResult{Source: source}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic processing item", "source", source, "error", rec)
			result = models.ItemResult{Source: source, Error: fmt.Sprintf("internal error: %v", rec)}
		}
	}()

	fetched, err := r.stages.Fetch.Fetch(ctx, item)
	if err != nil {
		result.Error = fmt.Sprintf("fetch: %v", err)
		return result
	}

	stems, err := r.stages.Separate.Separate(ctx, fetched.AudioPath)
	if err != nil {
		result.Error = fmt.Sprintf("separate: %v", err)
		return result
	}

	// Mastering failure is tolerated: the unmastered instrumental is still a
	// usable artifact.
	instrumental := stems.Instrumental
	if mastered, err := r.stages.Master.Master(ctx, stems.Instrumental); err != nil {
		r.logger.Warn("mastering failed, keeping unmastered stem", "source", source, "error", err)
	} else {
		instrumental = mastered
	}

	title := fetched.Title
	result.Title = title
	result.Instrumental = r.artifactURL(instrumental)
	result.Acapella = r.artifactURL(stems.Acapella)

	var meta models.VideoMetadata
	if opts.ProduceVideo || opts.UploadToExternalService {
		meta = r.metadataFor(ctx, title)
	}

	var videoPath string
	if opts.ProduceVideo {
		videoPath, err = r.stages.Compose.Compose(ctx, instrumental, title)
		if err != nil {
			result.Error = fmt.Sprintf("compose video: %v", err)
			return result
		}
		result.Video = r.artifactURL(videoPath)
	}

	if opts.UploadToExternalService {
		publishPath := instrumental
		if videoPath != "" {
			publishPath = videoPath
		}
		externalURL, err := r.stages.Upload.Upload(ctx, publishPath, meta)
		if err != nil {
			result.Error = fmt.Sprintf("upload: %v", err)
			return result
		}
		result.ExternalURL = externalURL

		if !opts.SaveLocally {
			r.removeLocal(source, instrumental, stems.Acapella, videoPath)
			result.Instrumental = ""
			result.Acapella = ""
			result.Video = ""
		}
	}

	result.Success = true
	return result
}

// metadataFor asks the generator for publishing metadata and falls back to
// metadata derived from the title when the generator is unavailable or errors.
func (r *Runner) metadataFor(ctx context.Context, title string) models.VideoMetadata {
	artist, track := SplitArtistTrack(title)
	req := models.MetadataRequest{Artist: artist, Track: track}

	if r.stages.Metadata != nil {
		meta, err := r.stages.Metadata.Generate(ctx, req)
		if err == nil {
			return meta
		}
		r.logger.Warn("metadata generation failed, using fallback", "title", title, "error", err)
	}
	return FallbackMetadata(req)
}

func (r *Runner) artifactURL(path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(r.outputDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return r.publicURL + "/" + filepath.ToSlash(rel)
}

func (r *Runner) removeLocal(source string, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("could not delete local artifact", "source", source, "path", p, "error", err)
		}
	}
}
