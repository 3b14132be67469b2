package genai

import (
	"context"
	"fmt"
	"strings"

	"reelforge/internal/domain"
)

// Style names one of the two mutually exclusive visual generation modes.
type Style string

const (
	// StyleHighImpact is the attention-grabbing look used at the edges of
	// the sequence.
	StyleHighImpact Style = "high-impact"
	// StyleInformational is the uniform look used for body scenes.
	StyleInformational Style = "informational"
)

// StyleFunc selects the style for the scene at index out of total scenes.
type StyleFunc func(index, total int) Style

// PositionalStyle is the product rule: the first and the last scene carry the
// high-impact style, every other scene the informational one.
func PositionalStyle(index, total int) Style {
	if index == 0 || index == total-1 {
		return StyleHighImpact
	}
	return StyleInformational
}

// ImageRequest carries everything image generation needs for one scene.
type ImageRequest struct {
	VisualDescription string
	Narration         string
	SceneIndex        int
	SceneCount        int
}

// GenerateImage produces one encoded still image for a scene. The model
// replies with descriptive text holding a resource locator; the first
// URL-shaped substring is fetched and returned as opaque bytes without
// re-encoding.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error) {
	style := c.style(req.SceneIndex, req.SceneCount)
	text, err := c.generateText(ctx, c.imageModel, buildImagePrompt(req, style), nil)
	if err != nil {
		return nil, err
	}

	resource := firstResourceURL(text)
	if resource == "" {
		return nil, fmt.Errorf("%w: image scene %d", domain.ErrNoResourceFound, req.SceneIndex)
	}

	data, err := c.fetchResource(ctx, resource)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", c.imageModel).
		Int("scene", req.SceneIndex).
		Str("style", string(style)).
		Int("bytes", len(data)).
		Msg("genai: image generated")

	return data, nil
}

func buildImagePrompt(req ImageRequest, style Style) string {
	sb := &strings.Builder{}
	sb.WriteString("Generate a vertical 9:16 illustration and reply with its URL.\n")
	switch style {
	case StyleHighImpact:
		sb.WriteString("Style: bold, dramatic, high contrast, poster-grade composition.\n")
	default:
		sb.WriteString("Style: clean, informational, consistent flat illustration.\n")
	}
	fmt.Fprintf(sb, "Scene visual: %s\n", strings.TrimSpace(req.VisualDescription))
	if narration := strings.TrimSpace(req.Narration); narration != "" {
		fmt.Fprintf(sb, "Narration context: %s\n", narration)
	}
	return sb.String()
}
