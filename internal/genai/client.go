package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
)

// Options controls how the generation client is configured.
type Options struct {
	APIKey      string
	BaseURL     string
	ScriptModel string
	ImageModel  string
	SpeechModel string
	HTTPClient  *http.Client
	Logger      *infra.Logger

	// Style picks the visual style for a scene by position. Nil selects the
	// default rule: first and last scene high-impact, everything else
	// informational.
	Style StyleFunc
}

// Client is a stateless request/response wrapper around the three remote
// capabilities the pipeline needs: script, image, and speech generation. The
// three calls are independent and safe to invoke concurrently for different
// scenes; none of them is idempotent, so a retried call may yield different
// creative output than the attempt it replaces.
type Client struct {
	apiKey      string
	baseURL     string
	scriptModel string
	imageModel  string
	speechModel string
	httpClient  *http.Client
	logger      *infra.Logger
	style       StyleFunc
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a generation client. The credential is mandatory; an
// absent key is a fatal precondition surfaced before any generation attempt.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, domain.ErrMissingCredential
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	style := opts.Style
	if style == nil {
		style = PositionalStyle
	}

	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		scriptModel: modelOrDefault(opts.ScriptModel),
		imageModel:  modelOrDefault(opts.ImageModel),
		speechModel: modelOrDefault(opts.SpeechModel),
		httpClient:  httpClient,
		logger:      logger,
		style:       style,
	}, nil
}

func modelOrDefault(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return "gemini-2.0-flash"
	}
	return model
}

// generateText sends a single prompt to the named model and returns the first
// non-empty candidate text.
func (c *Client) generateText(ctx context.Context, model, prompt string, cfg *generationConfig) (string, error) {
	payload := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: cfg,
	}

	var response generateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	if err := c.invoke(ctx, path, payload, &response); err != nil {
		return "", err
	}

	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text, nil
			}
		}
	}
	return "", nil
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("model status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("model status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("model status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\\)\]]+`)

// firstResourceURL extracts the first URL-shaped substring from descriptive
// model text. The empty string means the response carried no locator.
func firstResourceURL(text string) string {
	return urlPattern.FindString(text)
}

// fetchResource downloads the binary the model pointed at, preserving the
// original encoded format end to end.
func (c *Client) fetchResource(ctx context.Context, resource string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read resource: %w", err)
	}
	return blob, nil
}
