package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vocalless/vocalless/pkg/models"
)

func TestSplitArtistTrack(t *testing.T) {
	tests := []struct {
		in     string
		artist string
		track  string
	}{
		{"Artist - Song Title (Official Music Video)", "Artist", "Song Title"},
		{"Artist - Song Title [Lyric Video]", "Artist", "Song Title"},
		{"PARTYNEXTDOOR, Drake - SOMEBODY LOVES ME_instrumental", "PARTYNEXTDOOR, Drake", "SOMEBODY LOVES ME"},
		{"Just A Title", "", "Just A Title"},
		{"Artist - Track (Audio)", "Artist", "Track"},
		{"track.mp3", "", "track"},
	}

	for _, tt := range tests {
		artist, track := SplitArtistTrack(tt.in)
		assert.Equal(t, tt.artist, artist, "artist for %q", tt.in)
		assert.Equal(t, tt.track, track, "track for %q", tt.in)
	}
}

func TestFallbackMetadata(t *testing.T) {
	meta := FallbackMetadata(models.MetadataRequest{Artist: "Artist", Track: "Track"})

	assert.Equal(t, "Artist - Track (Instrumental Remaster)", meta.Title)
	assert.Contains(t, meta.Description, "Artist - Track")
	assert.Contains(t, meta.Tags, "instrumental")
	assert.Contains(t, meta.Tags, "Artist")
}

func TestFallbackMetadata_NoArtist(t *testing.T) {
	meta := FallbackMetadata(models.MetadataRequest{Track: "Track"})

	assert.Equal(t, "Track (Instrumental Remaster)", meta.Title)
	assert.NotContains(t, meta.Tags, "")
}
