package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/chatdesk/chatdesk/internal/config"
	inthttp "github.com/chatdesk/chatdesk/internal/http"
	"github.com/chatdesk/chatdesk/internal/logging"
)

// Azure talks to an Azure OpenAI (or OpenAI-compatible) chat completions
// endpoint. azure.endpoint is the API base URL; requests go to
// <endpoint>/chat/completions.
type Azure struct {
	cfg    config.AzureConfig
	retry  *retryablehttp.Client
	client *openai.Client // request/response calls, retried
	stream *openai.Client // streaming calls, no overall timeout
	logger *logging.Logger
	guard  streamGuard
}

// NewAzure validates cfg and builds the API clients.
func NewAzure(cfg *config.UserConfig, deps Deps) (*Azure, error) {
	if cfg.Azure.APIKey == "" || cfg.Azure.Endpoint == "" {
		return nil, fmt.Errorf("azure: %w: apiKey and endpoint are required", ErrNotConfigured)
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

	baseURL := strings.TrimSuffix(cfg.Azure.Endpoint, "/")

	chatCfg := openai.DefaultConfig(cfg.Azure.APIKey)
	chatCfg.BaseURL = baseURL
	chatCfg.HTTPClient = retry.StandardClient()

	streamCfg := openai.DefaultConfig(cfg.Azure.APIKey)
	streamCfg.BaseURL = baseURL
	streamCfg.HTTPClient = streamHTTP

	return &Azure{
		cfg:    cfg.Azure,
		retry:  retry,
		client: openai.NewClientWithConfig(chatCfg),
		stream: openai.NewClientWithConfig(streamCfg),
		logger: deps.logger(),
	}, nil
}

// Name implements Service.
func (a *Azure) Name() string { return config.ProviderAzure }

func (a *Azure) request(messages []Message) (openai.ChatCompletionRequest, error) {
	if len(messages) == 0 {
		return openai.ChatCompletionRequest{}, ErrNoMessages
	}
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return openai.ChatCompletionRequest{Model: a.cfg.Model, Messages: converted}, nil
}

// Chat implements Service.
func (a *Azure) Chat(ctx context.Context, messages []Message) (string, error) {
	req, err := a.request(messages)
	if err != nil {
		return "", err
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", openaiError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat implements Service. With azure.stream=false it makes one Chat
// call and reports the answer as complete.
func (a *Azure) StreamChat(ctx context.Context, messages []Message, onChunk ChunkFunc) error {
	if !a.cfg.Stream {
		text, err := a.Chat(ctx, messages)
		if err != nil {
			return err
		}
		onChunk(text, true)
		return nil
	}

	req, err := a.request(messages)
	if err != nil {
		return err
	}

	ctx, done := a.guard.begin(ctx)
	defer done()

	a.logger.Debug().Str("model", a.cfg.Model).Int("messages", len(req.Messages)).Msg("Starting Azure OpenAI stream")
	stream, err := a.stream.CreateChatCompletionStream(ctx, req)
	if err != nil {
		if wasAborted(ctx) {
			return nil
		}
		return openaiError(err)
	}
	defer stream.Close()

	agg := &aggregator{onChunk: onChunk}
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if wasAborted(ctx) {
				return nil
			}
			return fmt.Errorf("azure: stream failed: %w", err)
		}
		if len(chunk.Choices) > 0 {
			agg.add(chunk.Choices[0].Delta.Content)
		}
	}
	if wasAborted(ctx) {
		return nil
	}
	agg.finish()
	return nil
}

// AbortStreaming implements Service.
func (a *Azure) AbortStreaming() {
	a.guard.abort()
}

// openaiError prefixes API failures with the provider and status code so
// they classify like the other providers' errors.
func openaiError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("azure: status %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("azure: status %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("azure: request failed: %w", err)
}
