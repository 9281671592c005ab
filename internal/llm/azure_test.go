package llm

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdesk/chatdesk/internal/config"
)

var directProxy = &config.ProxySettings{Mode: config.ProxyModeNone}

func newTestAzure(t *testing.T, url string, stream bool) *Azure {
	t.Helper()
	cfg := config.DefaultUserConfig()
	cfg.Azure = config.AzureConfig{APIKey: "az-key", Endpoint: url, Model: "gpt-4o", Stream: stream}
	a, err := NewAzure(cfg, Deps{Proxy: directProxy, Logger: quietLogger()})
	require.NoError(t, err)
	a.retry.RetryMax = 0
	return a
}

func TestNewAzure_RequiresConfig(t *testing.T) {
	_, err := NewAzure(config.DefaultUserConfig(), Deps{Proxy: directProxy})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAzure_Chat(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer az-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.False(t, req.Stream)
		assert.Len(t, req.Messages, 2)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`)
	}))
	defer srv.Close()

	a := newTestAzure(t, srv.URL+"/", true)
	got, err := a.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are terse."},
		{Role: RoleUser, Content: "ping"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestAzure_ChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, `{"error":{"message":"Access denied"}}`, nethttp.StatusUnauthorized)
	}))
	defer srv.Close()

	a := newTestAzure(t, srv.URL, true)
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "ping"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Access denied")
}

func TestAzure_StreamChat(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := newTestAzure(t, srv.URL, true)
	var rec chunkRecorder
	require.NoError(t, a.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, rec.onChunk))

	assert.Equal(t, []string{"Hel", "Hello", "Hello"}, rec.texts)
	assert.Equal(t, 1, rec.completes)
}

func TestAzure_StreamDisabledFallsBackToChat(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"all at once"}}]}`)
	}))
	defer srv.Close()

	a := newTestAzure(t, srv.URL, false)
	var rec chunkRecorder
	require.NoError(t, a.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, rec.onChunk))
	assert.Equal(t, []string{"all at once"}, rec.texts)
	assert.Equal(t, 1, rec.completes)
}

func TestAzure_AbortStreaming(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		w.(nethttp.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	a := newTestAzure(t, srv.URL, true)
	var rec chunkRecorder
	err := a.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(text string, complete bool) {
		rec.onChunk(text, complete)
		a.AbortStreaming()
	})
	require.NoError(t, err, "abort must not surface as an error")
	assert.Equal(t, []string{"first"}, rec.texts)
	assert.Zero(t, rec.completes)
}
