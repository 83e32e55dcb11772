// Package prompt holds the LLM prompts and response cleanup shared by the
// metadata providers.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vocalless/vocalless/pkg/models"
)

const (
	TitleSystem = `You are a YouTube content specialist who creates engaging, natural video titles.
Your titles should be:
- SEO-friendly but not keyword-stuffed
- Natural and appealing to humans
- Include "Instrumental Remaster" clearly
- Maximum 100 characters
- Follow format: Artist - Title (Instrumental Remaster)
- Do NOT include video descriptors like "Official Video", "Music Video", etc.`

	DescriptionSystem = `You are a YouTube content writer who creates direct, practical video descriptions.
Your descriptions should be:
- Exactly 2 short, concise paragraphs
- Direct and factual (not flowery or poetic)
- Include relevant keywords naturally
- Professional but straightforward
- No promotional language, no poetic descriptions, no flowery phrases`

	TagsSystem = `You are a YouTube SEO specialist who generates relevant tags.
Your tags should be:
- 10-15 tags total
- Mix of specific and general terms
- Include: artist name, song title, "instrumental", genre terms
- Natural and relevant (not spam)
- Comma-separated list`
)

// Title builds the user prompt for the title generation call.
func Title(req models.MetadataRequest) string {
	return fmt.Sprintf(`Create a YouTube video title for an instrumental remaster version of a song.

Artist: %s
Song Title: %s

Generate ONLY the title, nothing else. Make it natural and appealing.
Format: Artist - Title (Instrumental Remaster)`, req.Artist, req.Track)
}

// Description builds the user prompt for the description call.
func Description(req models.MetadataRequest) string {
	return fmt.Sprintf(`Write a direct, practical YouTube video description for an instrumental remaster of a song.

Artist: %s
Song Title: %s

Write exactly 2 short paragraphs:
1. First paragraph (1-2 sentences): State what this is - an instrumental remaster of the song with enhanced audio
2. Second paragraph (1-2 sentences): List practical uses - background music for work/study, or karaoke practice

Keep it simple and factual. No flowery language about feelings, moods, or atmosphere.

Write ONLY the description, nothing else.`, req.Artist, req.Track)
}

// Tags builds the user prompt for the tags call.
func Tags(req models.MetadataRequest) string {
	return fmt.Sprintf(`Generate YouTube tags for an instrumental version of a song.

Artist: %s
Song Title: %s

Generate 10-15 relevant tags. Output ONLY a comma-separated list, nothing else.`, req.Artist, req.Track)
}

const maxTags = 15

var tagCleanRE = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

// ParseTags splits a comma-separated tag list, strips stray punctuation the
// model tends to emit, and caps the count.
func ParseTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = tagCleanRE.ReplaceAllString(strings.TrimSpace(tag), "")
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// CleanTitle strips the quote characters models like to wrap titles in.
func CleanTitle(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), `"'`)
}
