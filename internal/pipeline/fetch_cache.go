package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/vocalless/vocalless/internal/cache"
	"github.com/vocalless/vocalless/pkg/models"
)

const fetchCacheTTL = 24 * time.Hour

// CachedFetcher remembers where a source URL was downloaded to, so
// resubmitting the same URL within the TTL skips the download. Cache errors
// fall through to the inner fetcher; the cache is an optimization, never a
// dependency. Uploaded-file items bypass the cache entirely.
type CachedFetcher struct {
	inner  Fetcher
	cache  cache.Cache
	logger *slog.Logger
}

// NewCachedFetcher wraps fetcher with the dedupe cache.
func NewCachedFetcher(fetcher Fetcher, c cache.Cache, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{inner: fetcher, cache: c, logger: logger}
}

type cachedFetch struct {
	AudioPath string `json:"audio_path"`
	Title     string `json:"title"`
}

func (f *CachedFetcher) Fetch(ctx context.Context, item models.ItemSpec) (FetchResult, error) {
	if item.URL == "" {
		return f.inner.Fetch(ctx, item)
	}

	key := cache.FetchKey(item.URL)
	if raw, found, err := f.cache.Get(ctx, key); err == nil && found {
		var entry cachedFetch
		if json.Unmarshal(raw, &entry) == nil && fileExists(entry.AudioPath) {
			f.logger.Debug("fetch cache hit", "url", item.URL, "path", entry.AudioPath)
			return FetchResult{AudioPath: entry.AudioPath, Title: entry.Title}, nil
		}
		// Stale entry: the file is gone, fall through and refresh.
		_ = f.cache.Delete(ctx, key)
	}

	result, err := f.inner.Fetch(ctx, item)
	if err != nil {
		return FetchResult{}, err
	}

	raw, err := json.Marshal(cachedFetch{AudioPath: result.AudioPath, Title: result.Title})
	if err == nil {
		if err := f.cache.Set(ctx, key, raw, fetchCacheTTL); err != nil {
			f.logger.Debug("fetch cache write failed", "url", item.URL, "error", err)
		}
	}
	return result, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
