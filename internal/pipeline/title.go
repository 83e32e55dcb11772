package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vocalless/vocalless/pkg/models"
)

// videoLabelRE matches trailing video descriptors like "(Official Video)" or
// "[Lyric Video]" that upload titles tend to carry.
var videoLabelRE = regexp.MustCompile(`(?i)\s*[\(\[](?:official|lyric|music|audio|video)[^\)\]]*[\)\]]`)

var titleSuffixes = []string{
	" (Official Music Video)", " (Official Video)", " (Official Audio)",
	" (Lyric Video)", " (Lyrics)", " (Audio)", " (Music Video)",
	" [Official Video]", " [Official Music Video]", " [Official Audio]",
	" [Lyric Video]", " [Music Video]",
	"_instrumental", ".mp3", ".mp4", ".wav",
}

// SplitArtistTrack derives artist and track name from an upload title like
// "Artist - Song Title (Official Music Video)". When no separator is present
// the whole string is treated as the track name.
func SplitArtistTrack(title string) (artist, track string) {
	clean := title
	for _, suffix := range titleSuffixes {
		clean = strings.ReplaceAll(clean, suffix, "")
	}
	clean = videoLabelRE.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	if artist, track, ok := strings.Cut(clean, " - "); ok {
		return strings.TrimSpace(artist), strings.TrimSpace(track)
	}
	return "", clean
}

// FallbackMetadata builds serviceable publishing metadata without an LLM,
// used when the generator is disabled or fails.
func FallbackMetadata(req models.MetadataRequest) models.VideoMetadata {
	name := req.Track
	if req.Artist != "" {
		name = req.Artist + " - " + req.Track
	}
	tags := []string{"instrumental", "karaoke", "no vocals", "instrumental remaster"}
	if req.Artist != "" {
		tags = append(tags, req.Artist)
	}
	if req.Track != "" {
		tags = append(tags, req.Track)
	}
	return models.VideoMetadata{
		Title: fmt.Sprintf("%s (Instrumental Remaster)", name),
		Description: fmt.Sprintf(
			"Instrumental version of %s, created with AI vocal separation and loudness-normalized for streaming.",
			name),
		Tags: tags,
	}
}
