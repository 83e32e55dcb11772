package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FetchKey identifies a previously fetched source by the hash of its URL, so
// resubmitting the same URL can reuse the downloaded audio.
func FetchKey(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("fetch:%s", hex.EncodeToString(sum[:16]))
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
