// Package llm implements the chat providers (Bedrock, Azure OpenAI, Gemini)
// behind one Service interface.
package llm

import (
	"context"
	"errors"

	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/credentials"
	"github.com/chatdesk/chatdesk/internal/logging"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

var (
	// ErrUnsupportedProvider is returned by NewService for an unknown llm.provider.
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	// ErrEmptyResponse is returned when a provider answers without any text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrNoMessages is returned when Chat or StreamChat get nothing to send.
	ErrNoMessages = errors.New("no messages to send")
	// ErrNotConfigured is returned when a provider is missing its API key or endpoint.
	ErrNotConfigured = errors.New("provider is not configured")
)

// Message is one turn sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChunkFunc receives the text aggregated so far. The last call has
// complete set; it may repeat the previous text.
type ChunkFunc func(text string, complete bool)

// Service is a chat model provider.
//
// Only one stream runs per service at a time; starting a new one replaces
// the abort handle of the previous. AbortStreaming makes the running
// StreamChat return nil without a final complete chunk.
type Service interface {
	Name() string
	Chat(ctx context.Context, messages []Message) (string, error)
	StreamChat(ctx context.Context, messages []Message, onChunk ChunkFunc) error
	AbortStreaming()
}

// Deps are the shared collaborators handed to every provider.
type Deps struct {
	// Accessor reads AWS credentials from the environment. Nil uses the process environment.
	Accessor *credentials.Accessor
	// Proxy configures outbound HTTP. Nil uses the system proxy.
	Proxy *config.ProxySettings
	// Logger may be nil.
	Logger *logging.Logger
}

func (d Deps) logger() *logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.NewLogger("gui", nil)
}

func (d Deps) accessor() *credentials.Accessor {
	if d.Accessor != nil {
		return d.Accessor
	}
	return credentials.NewAccessor()
}
