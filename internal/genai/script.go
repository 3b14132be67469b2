package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reelforge/internal/domain"
)

type scriptPayload struct {
	Scenes []scenePayload `json:"scenes"`
}

type scenePayload struct {
	Title             string  `json:"title"`
	Narration         string  `json:"narration"`
	VisualDescription string  `json:"visualDescription"`
	DurationSeconds   float64 `json:"durationSeconds"`
}

// GenerateScript asks the language model for a scene-by-scene script on the
// topic. The model replies with free text that may wrap the JSON in prose or
// markdown fencing; the single outermost brace-matched object is extracted
// and decoded. Scene ids are assigned here, once, from array position.
func (c *Client) GenerateScript(ctx context.Context, topic string) ([]*domain.Scene, error) {
	text, err := c.generateText(ctx, c.scriptModel, buildScriptPrompt(topic), &generationConfig{
		Temperature:      0.7,
		CandidateCount:   1,
		ResponseMimeType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var payload scriptPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(payload.Scenes) == 0 {
		return nil, fmt.Errorf("%w: script has no scenes", domain.ErrMalformedResponse)
	}

	scenes := make([]*domain.Scene, len(payload.Scenes))
	for i, s := range payload.Scenes {
		scenes[i] = &domain.Scene{
			ID:                i,
			Title:             strings.TrimSpace(s.Title),
			Narration:         strings.TrimSpace(s.Narration),
			VisualDescription: strings.TrimSpace(s.VisualDescription),
			DurationHint:      s.DurationSeconds,
		}
	}

	c.logger.Debug().
		Str("model", c.scriptModel).
		Int("scenes", len(scenes)).
		Msg("genai: script generated")

	return scenes, nil
}

func buildScriptPrompt(topic string) string {
	sb := &strings.Builder{}
	sb.WriteString("You write scripts for short-form vertical videos. ")
	sb.WriteString("Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"scenes":[{"title":string,"narration":string,"visualDescription":string,"durationSeconds":number}]}`)
	fmt.Fprintf(sb, ". Write 5-8 scenes about the topic: %q. ", topic)
	sb.WriteString("Narration is 1-3 spoken sentences per scene; visualDescription describes one still illustration; durationSeconds estimates the narration read aloud.")
	return sb.String()
}

// extractJSONObject locates the outermost matching brace pair in free-form
// model text. Fenced code blocks are stripped first. An empty response, a
// missing object, or unbalanced braces all map to ErrMalformedResponse.
func extractJSONObject(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrMalformedResponse)
	}
	text = trimCodeFence(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no json object found", domain.ErrMalformedResponse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces", domain.ErrMalformedResponse)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	idx := strings.Index(trimmed, "```")
	if idx < 0 {
		return trimmed
	}
	trimmed = trimmed[idx+3:]
	for _, tag := range []string{"json", "JSON"} {
		trimmed = strings.TrimPrefix(trimmed, tag)
	}
	trimmed = strings.TrimSpace(trimmed)
	if end := strings.LastIndex(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}
