package genai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"reelforge/internal/domain"
)

// speechWhitelist keeps letters in any script, digits, whitespace, and the
// punctuation the speech model reads naturally. Everything else (markdown
// leftovers, emoji, stray symbols) would be vocalized and is stripped before
// submission.
var speechWhitelist = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:'"()-]+`)

// GenerateSpeech produces encoded narration audio for the text. Resource
// extraction follows the same first-URL rule as image generation.
func (c *Client) GenerateSpeech(ctx context.Context, text string) ([]byte, error) {
	cleaned := SanitizeNarration(text)
	reply, err := c.generateText(ctx, c.speechModel, buildSpeechPrompt(cleaned), nil)
	if err != nil {
		return nil, err
	}

	resource := firstResourceURL(reply)
	if resource == "" {
		return nil, fmt.Errorf("%w: speech", domain.ErrNoResourceFound)
	}

	data, err := c.fetchResource(ctx, resource)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", c.speechModel).
		Int("bytes", len(data)).
		Msg("genai: speech generated")

	return data, nil
}

// SanitizeNarration strips characters outside the speech whitelist and
// collapses the whitespace runs the removal leaves behind.
func SanitizeNarration(text string) string {
	cleaned := speechWhitelist.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

func buildSpeechPrompt(text string) string {
	sb := &strings.Builder{}
	sb.WriteString("Synthesize natural narration audio for the following text and reply with the audio URL.\n")
	sb.WriteString(text)
	return sb.String()
}
