package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sgerrors "github.com/randalmurphal/sketchgraph/pkg/sketchgraph/errors"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
)

// defaultGeminiBaseURL is the Gemini REST endpoint root.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini implements Provider using the Gemini REST API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a Gemini provider.
type GeminiOption func(*Gemini)

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// WithBaseURL overrides the API endpoint root, mainly for tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *Gemini) { g.baseURL = url }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *Gemini) { g.client = client }
}

// NewGemini creates a Gemini provider.
func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:  apiKey,
		model:   "gemini-2.5-flash",
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	ResponseMimeType string `json:"response_mime_type"`
}

// geminiResponse is the subset of the generateContent reply we read.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze implements Provider. The call goes through the rate-limit
// retry loop; throttling responses are retried with backoff while other
// failures propagate immediately as transport errors. Events carry no
// job id: the coordinator gives every run its own sink.
func (g *Gemini) Analyze(ctx context.Context, image []byte, prompt string, sink progress.Sink) (map[string]any, error) {
	return withRateLimitRetry(ctx, "", sink, func(ctx context.Context) (map[string]any, error) {
		return g.generateContent(ctx, image, prompt)
	})
}

// generateContent performs a single API call.
func (g *Gemini) generateContent(ctx context.Context, image []byte, prompt string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{
					MimeType: http.DetectContentType(image),
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		GenerationConfig: geminiGenConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return nil, &sgerrors.TransportError{Message: fmt.Sprintf("encode request: %v", err), Endpoint: endpoint}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &sgerrors.TransportError{Message: err.Error(), Endpoint: endpoint}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &sgerrors.TransportError{Message: err.Error(), Endpoint: endpoint}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sgerrors.TransportError{Message: fmt.Sprintf("read response: %v", err), Endpoint: endpoint}
	}

	if resp.StatusCode != http.StatusOK {
		// 429 carries the backend's suggested delay in the body text;
		// the retry loop parses it out of the error message.
		return nil, &sgerrors.TransportError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   endpoint,
		}
	}

	var reply geminiResponse
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return nil, &sgerrors.TransportError{Message: fmt.Sprintf("decode response: %v", err), Endpoint: endpoint}
	}

	if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
		return nil, &sgerrors.TransportError{Message: "empty response from model", Endpoint: endpoint}
	}

	text := reply.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return nil, &sgerrors.TransportError{Message: "empty response from model", Endpoint: endpoint}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &payload); err != nil {
		return nil, &sgerrors.TransportError{Message: fmt.Sprintf("malformed model reply: %v", err), Endpoint: endpoint}
	}

	return payload, nil
}
