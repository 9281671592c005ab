package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/credentials"
	inthttp "github.com/chatdesk/chatdesk/internal/http"
	"github.com/chatdesk/chatdesk/internal/logging"
)

// bedrockAPI is the subset of *bedrockruntime.Client the provider uses.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// Bedrock talks to Anthropic models on AWS Bedrock.
type Bedrock struct {
	client bedrockAPI
	creds  aws.CredentialsProvider
	cfg    config.BedrockConfig
	logger *logging.Logger
	guard  streamGuard
}

// NewBedrock builds a Bedrock client for cfg. Credentials come from the
// user config when both halves are set, otherwise from the environment.
func NewBedrock(ctx context.Context, cfg *config.UserConfig, deps Deps) (*Bedrock, error) {
	httpClient, err := inthttp.CreateStreamingClient(deps.Proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	configured := credentials.Pair{
		AccessKey: cfg.AWS.Credentials.AccessKeyID,
		SecretKey: cfg.AWS.Credentials.SecretAccessKey,
	}
	provider := credentials.Resolve(configured, deps.accessor())

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithCredentialsProvider(provider),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg.AWS.Bedrock.Endpoint
	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger := deps.logger()
	logger.Debug().
		Str("region", cfg.AWS.Region).
		Str("model", cfg.AWS.Bedrock.ModelID).
		Str("credentials", credentials.Describe(configured, deps.Accessor)).
		Msg("Created Bedrock client")

	return &Bedrock{
		client: client,
		creds:  provider,
		cfg:    cfg.AWS.Bedrock,
		logger: logger,
	}, nil
}

// Name implements Service.
func (b *Bedrock) Name() string { return config.ProviderBedrock }

// anthropicRequest is the Bedrock body for Anthropic messages models.
type anthropicRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []Message `json:"messages"`
	System           string    `json:"system,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	StopSequences    []string  `json:"stop_sequences,omitempty"`
}

func (b *Bedrock) payload(messages []Message) ([]byte, error) {
	req := anthropicRequest{
		AnthropicVersion: b.cfg.AnthropicVersion,
		MaxTokens:        b.cfg.MaxTokens,
		StopSequences:    b.cfg.StopSequences,
	}
	if b.cfg.Temperature > 0 {
		req.Temperature = aws.Float64(b.cfg.Temperature)
	}
	if b.cfg.TopP > 0 {
		req.TopP = aws.Float64(b.cfg.TopP)
	}

	var system []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, Message{Role: m.Role, Content: m.Content})
	}
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	req.System = strings.Join(system, "\n\n")

	return json.Marshal(req)
}

// checkCredentials fails early with credentials.ErrCredentialsUnavailable
// instead of letting the SDK sign with nothing.
func (b *Bedrock) checkCredentials(ctx context.Context) error {
	if b.creds == nil {
		return nil
	}
	if _, err := b.creds.Retrieve(ctx); err != nil {
		return fmt.Errorf("bedrock: %w", err)
	}
	return nil
}

// Chat implements Service.
func (b *Bedrock) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := b.payload(messages)
	if err != nil {
		return "", err
	}
	if err := b.checkCredentials(ctx); err != nil {
		return "", err
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.cfg.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke failed: %w", err)
	}

	return parseInvokeResponse(out.Body)
}

// anthropicResponse is the non-streaming response body.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func parseInvokeResponse(body []byte) (string, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse bedrock response: %w", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// StreamChat implements Service.
func (b *Bedrock) StreamChat(ctx context.Context, messages []Message, onChunk ChunkFunc) error {
	body, err := b.payload(messages)
	if err != nil {
		return err
	}
	if err := b.checkCredentials(ctx); err != nil {
		return err
	}

	ctx, done := b.guard.begin(ctx)
	defer done()

	out, err := b.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(b.cfg.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		if wasAborted(ctx) {
			return nil
		}
		return fmt.Errorf("bedrock stream failed: %w", err)
	}

	stream := out.GetStream()
	defer stream.Close()

	err = consumeBedrockStream(ctx, stream.Events(), onChunk, b.logger)
	if err == nil {
		err = stream.Err()
	}
	if wasAborted(ctx) {
		b.logger.Debug().Msg("Bedrock stream aborted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("bedrock stream failed: %w", err)
	}
	return nil
}

// consumeBedrockStream aggregates text deltas from events until the channel
// closes or ctx is done. Unparseable chunks are logged and skipped.
func consumeBedrockStream(ctx context.Context, events <-chan types.ResponseStream, onChunk ChunkFunc, logger *logging.Logger) error {
	agg := &aggregator{onChunk: onChunk}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				agg.finish()
				return nil
			}
			chunk, isChunk := event.(*types.ResponseStreamMemberChunk)
			if !isChunk {
				continue
			}
			ev, err := parseStreamChunk(chunk.Value.Bytes)
			if err != nil {
				logger.Warn().Err(err).Msg("Skipping malformed Bedrock chunk")
				continue
			}
			if ev.Err != "" {
				return fmt.Errorf("bedrock: %s", ev.Err)
			}
			agg.add(ev.Text)
			if ev.Stop {
				agg.finish()
			}
		}
	}
}

// streamEvent is the part of an Anthropic stream event the provider needs.
type streamEvent struct {
	Text string
	Stop bool
	Err  string
}

// parseStreamChunk decodes one Anthropic streaming event:
//
//	{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hi"}}
//	{"type":"content_block_stop","index":0}
//	{"type":"message_stop"}
//	{"type":"error","error":{"type":"overloaded_error","message":"..."}}
func parseStreamChunk(data []byte) (streamEvent, error) {
	if len(data) == 0 {
		return streamEvent{}, nil
	}
	var raw struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return streamEvent{}, fmt.Errorf("failed to parse stream chunk: %w", err)
	}

	var ev streamEvent
	if raw.Delta.Type == "text_delta" {
		ev.Text = raw.Delta.Text
	}
	switch raw.Type {
	case "content_block_stop", "message_stop":
		ev.Stop = true
	case "error":
		ev.Err = strings.TrimSpace(raw.Error.Type + ": " + raw.Error.Message)
	}
	return ev, nil
}

// AbortStreaming implements Service.
func (b *Bedrock) AbortStreaming() {
	b.guard.abort()
}
