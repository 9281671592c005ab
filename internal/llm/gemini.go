package llm

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"google.golang.org/genai"

	"github.com/chatdesk/chatdesk/internal/config"
	inthttp "github.com/chatdesk/chatdesk/internal/http"
	"github.com/chatdesk/chatdesk/internal/logging"
)

// Gemini talks to the Gemini API through the Google Gen AI SDK. The API key
// travels in a request header, never in the URL.
type Gemini struct {
	model  string
	retry  *retryablehttp.Client
	client *genai.Client // request/response calls, retried
	stream *genai.Client // streaming calls, no overall timeout
	logger *logging.Logger
	guard  streamGuard
}

// NewGemini validates cfg and builds the API clients. google.endpoint
// overrides the API base URL.
func NewGemini(ctx context.Context, cfg *config.UserConfig, deps Deps) (*Gemini, error) {
	if cfg.Google.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w: apiKey is required", ErrNotConfigured)
	}
	model := cfg.Google.Model
	if model == "" {
		model = "gemini-pro"
	}

	streamHTTP, err := inthttp.CreateStreamingClient(deps.Proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	base, err := inthttp.ConfigureHTTPClient(deps.Proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	retry, err := inthttp.NewRetryClient(base)
	if err != nil {
		return nil, err
	}

	newClient := func(httpClient *nethttp.Client) (*genai.Client, error) {
		clientCfg := &genai.ClientConfig{
			APIKey:     cfg.Google.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		}
		if cfg.Google.Endpoint != "" {
			clientCfg.HTTPOptions.BaseURL = strings.TrimSuffix(cfg.Google.Endpoint, "/") + "/"
		}
		return genai.NewClient(ctx, clientCfg)
	}

	client, err := newClient(retry.StandardClient())
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	stream, err := newClient(streamHTTP)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &Gemini{
		model:  model,
		retry:  retry,
		client: client,
		stream: stream,
		logger: deps.logger(),
	}, nil
}

// Name implements Service.
func (g *Gemini) Name() string { return config.ProviderGemini }

// convertGeminiMessages maps assistant to "model" and drops system messages.
func convertGeminiMessages(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role string
		switch m.Role {
		case RoleUser:
			role = "user"
		case RoleAssistant:
			role = "model"
		default:
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	return out
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// Chat implements Service.
func (g *Gemini) Chat(ctx context.Context, messages []Message) (string, error) {
	contents := convertGeminiMessages(messages)
	if len(contents) == 0 {
		return "", ErrNoMessages
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// StreamChat implements Service.
func (g *Gemini) StreamChat(ctx context.Context, messages []Message, onChunk ChunkFunc) error {
	contents := convertGeminiMessages(messages)
	if len(contents) == 0 {
		return ErrNoMessages
	}

	ctx, done := g.guard.begin(ctx)
	defer done()

	g.logger.Debug().Str("model", g.model).Int("messages", len(contents)).Msg("Starting Gemini stream")
	agg := &aggregator{onChunk: onChunk}
	for resp, err := range g.stream.Models.GenerateContentStream(ctx, g.model, contents, nil) {
		if err != nil {
			if wasAborted(ctx) {
				return nil
			}
			return fmt.Errorf("gemini: stream failed: %w", err)
		}
		agg.add(responseText(resp))
	}
	if wasAborted(ctx) {
		return nil
	}
	agg.finish()
	return nil
}

// AbortStreaming implements Service.
func (g *Gemini) AbortStreaming() {
	g.guard.abort()
}
