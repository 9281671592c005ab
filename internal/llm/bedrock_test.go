package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/credentials"
	"github.com/chatdesk/chatdesk/internal/logging"
)

func quietLogger() *logging.Logger {
	l := logging.NewLogger("cli", nil)
	l.SetOutput(&bytes.Buffer{})
	return l
}

type fakeBedrock struct {
	lastInput *bedrockruntime.InvokeModelInput
	body      []byte
	err       error
}

func (f *fakeBedrock) InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func (f *fakeBedrock) InvokeModelWithResponseStream(ctx context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error) {
	return nil, context.Canceled
}

func newTestBedrock(api bedrockAPI, lookup map[string]string) *Bedrock {
	accessor := credentials.NewAccessorWithLookup(func(key string) (string, bool) {
		v, ok := lookup[key]
		return v, ok
	})
	return &Bedrock{
		client: api,
		creds:  credentials.Resolve(credentials.Pair{}, accessor),
		cfg:    config.DefaultUserConfig().AWS.Bedrock,
		logger: quietLogger(),
	}
}

var envCreds = map[string]string{
	credentials.EnvAccessKeyID:     "AKIA123",
	credentials.EnvSecretAccessKey: "secret",
}

func TestParseStreamChunk(t *testing.T) {
	tests := []struct {
		name string
		data string
		want streamEvent
	}{
		{"text delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`, streamEvent{Text: "Hel"}},
		{"block stop", `{"type":"content_block_stop","index":0}`, streamEvent{Stop: true}},
		{"message stop", `{"type":"message_stop"}`, streamEvent{Stop: true}},
		{"message start", `{"type":"message_start","message":{"id":"msg_1"}}`, streamEvent{}},
		{"non-text delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`, streamEvent{}},
		{"error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, streamEvent{Err: "overloaded_error: Overloaded"}},
		{"empty", ``, streamEvent{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStreamChunk([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseStreamChunk([]byte(`{"type":`))
	assert.Error(t, err)
}

func chunkEvent(data string) types.ResponseStream {
	return &types.ResponseStreamMemberChunk{Value: types.PayloadPart{Bytes: []byte(data)}}
}

type chunkRecorder struct {
	texts     []string
	completes int
}

func (r *chunkRecorder) onChunk(text string, complete bool) {
	r.texts = append(r.texts, text)
	if complete {
		r.completes++
	}
}

func TestConsumeBedrockStream_Aggregates(t *testing.T) {
	events := make(chan types.ResponseStream, 10)
	events <- chunkEvent(`{"type":"message_start"}`)
	events <- chunkEvent(`{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}`)
	events <- chunkEvent(`not json`)
	events <- chunkEvent(`{"type":"content_block_delta","delta":{"type":"text_delta","text":", world"}}`)
	events <- chunkEvent(`{"type":"content_block_stop"}`)
	events <- chunkEvent(`{"type":"message_stop"}`)
	close(events)

	var rec chunkRecorder
	err := consumeBedrockStream(context.Background(), events, rec.onChunk, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", "Hello, world", "Hello, world"}, rec.texts)
	assert.Equal(t, 1, rec.completes, "complete must be reported exactly once")
}

func TestConsumeBedrockStream_CompletesOnClose(t *testing.T) {
	events := make(chan types.ResponseStream, 2)
	events <- chunkEvent(`{"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}`)
	close(events)

	var rec chunkRecorder
	require.NoError(t, consumeBedrockStream(context.Background(), events, rec.onChunk, quietLogger()))
	assert.Equal(t, 1, rec.completes)
	assert.Equal(t, "partial", rec.texts[len(rec.texts)-1])
}

func TestConsumeBedrockStream_Error(t *testing.T) {
	events := make(chan types.ResponseStream, 1)
	events <- chunkEvent(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`)
	close(events)

	var rec chunkRecorder
	err := consumeBedrockStream(context.Background(), events, rec.onChunk, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
	assert.Zero(t, rec.completes)
}

func TestConsumeBedrockStream_Cancelled(t *testing.T) {
	events := make(chan types.ResponseStream)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rec chunkRecorder
	err := consumeBedrockStream(ctx, events, rec.onChunk, quietLogger())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rec.completes)
}

func TestBedrock_ChatPayload(t *testing.T) {
	api := &fakeBedrock{body: []byte(`{"content":[{"type":"text","text":"Hi there"}]}`)}
	b := newTestBedrock(api, envCreds)

	got, err := b.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "Be brief."},
		{Role: RoleUser, Content: "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", got)

	require.NotNil(t, api.lastInput)
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", *api.lastInput.ModelId)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(api.lastInput.Body, &payload))
	assert.Equal(t, "bedrock-2023-05-31", payload["anthropic_version"])
	assert.EqualValues(t, 4096, payload["max_tokens"])
	assert.Equal(t, "Be brief.", payload["system"])
	msgs := payload["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestBedrock_MissingCredentials(t *testing.T) {
	api := &fakeBedrock{body: []byte(`{"content":[{"text":"unused"}]}`)}
	b := newTestBedrock(api, map[string]string{credentials.EnvAccessKeyID: "AKIA123"})

	_, err := b.Chat(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}})
	assert.ErrorIs(t, err, credentials.ErrCredentialsUnavailable)
	assert.Nil(t, api.lastInput, "no request should be sent without credentials")

	err = b.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}}, func(string, bool) {})
	assert.ErrorIs(t, err, credentials.ErrCredentialsUnavailable)
}

func TestBedrock_EmptyResponse(t *testing.T) {
	b := newTestBedrock(&fakeBedrock{body: []byte(`{"content":[]}`)}, envCreds)
	_, err := b.Chat(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBedrock_NoMessages(t *testing.T) {
	b := newTestBedrock(&fakeBedrock{}, envCreds)
	_, err := b.Chat(context.Background(), []Message{{Role: RoleSystem, Content: "only system"}})
	assert.ErrorIs(t, err, ErrNoMessages)
}
