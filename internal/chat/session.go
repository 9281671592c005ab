// Package chat drives one conversation at a time: it sends the history to
// the active model, streams the reply through the event bus and persists
// the exchange.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/conversation"
	"github.com/chatdesk/chatdesk/internal/events"
	"github.com/chatdesk/chatdesk/internal/llm"
	"github.com/chatdesk/chatdesk/internal/logging"
)

// Services supplies the model for a request. *llm.Registry implements it.
type Services interface {
	Service(ctx context.Context) (llm.Service, error)
	AbortStreaming()
}

// Session holds the current conversation.
type Session struct {
	store    *conversation.Store
	services Services
	config   llm.ConfigSource
	bus      *events.EventBus
	logger   *logging.Logger
	now      func() time.Time

	mu        sync.Mutex
	current   *conversation.Conversation
	streaming bool
}

// NewSession creates a session with no current conversation. bus and logger may be nil.
func NewSession(store *conversation.Store, services Services, cfg llm.ConfigSource, bus *events.EventBus, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.NewLogger("gui", nil)
	}
	return &Session{
		store:    store,
		services: services,
		config:   cfg,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
}

// Current returns a copy of the current conversation, or nil for a new chat.
func (s *Session) Current() *conversation.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Clone()
}

// Open makes the stored conversation id current.
func (s *Session) Open(id string) (*conversation.Conversation, error) {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.mu.Unlock()

	c, ok := s.store.Get(id)
	if !ok {
		var err error
		if c, err = s.store.Load(id); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = c.Clone()
	return c, nil
}

// NewChat clears the current conversation; the next Send creates one.
func (s *Session) NewChat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming {
		return ErrBusy
	}
	s.current = nil
	return nil
}

// Abort stops the reply being streamed, if any. Text received so far is kept.
func (s *Session) Abort() {
	s.services.AbortStreaming()
}

// Streaming reports whether a reply is in progress.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Send appends prompt to the current conversation, streams the reply and
// saves the exchange. Chunks are published as EventChatChunk with requestID;
// the saved result is published as EventChatComplete and returned. Failures
// are published as EventChatError and returned.
func (s *Session) Send(ctx context.Context, requestID, prompt string) (*conversation.Conversation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.streaming = true
	var conv *conversation.Conversation
	if s.current != nil {
		conv = s.current.Clone()
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
	}()

	convID := ""
	var history []conversation.Message
	var systemPrompt string
	if conv != nil {
		convID = conv.ID
		history = conv.Content.Messages
		systemPrompt = conv.Content.SystemPrompt
	}

	cfg := s.config.Get()
	history = append(history, conversation.Message{
		Role:      conversation.RoleUser,
		Content:   prompt,
		Timestamp: s.now().UnixMilli(),
	})
	request := BuildRequest(history, systemPrompt, cfg.Chat.MaxHistoryLength)

	svc, err := s.services.Service(ctx)
	if err != nil {
		return nil, s.fail(requestID, convID, err)
	}

	log := s.logger.With().Str("provider", svc.Name()).Str("request", requestID).Logger()
	log.Debug().Int("messages", len(request)).Msg("Sending chat request")

	var reply string
	err = svc.StreamChat(ctx, request, func(text string, complete bool) {
		reply = text
		if !complete && s.bus != nil {
			s.bus.PublishChat(requestID, convID, text, false)
		}
	})
	if err != nil {
		return nil, s.fail(requestID, convID, err)
	}
	if reply == "" {
		// Aborted before any text arrived: nothing to keep
		log.Debug().Msg("Chat request ended without a reply")
		if s.bus != nil {
			s.bus.PublishChat(requestID, convID, "", true)
		}
		return conv, nil
	}

	history = append(history, conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   reply,
		Timestamp: s.now().UnixMilli(),
	})

	saved, err := s.persist(conv, history, prompt, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save conversation")
		return nil, s.fail(requestID, convID, err)
	}

	s.mu.Lock()
	s.current = saved.Clone()
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.PublishChat(requestID, saved.ID, reply, true)
	}
	return saved, nil
}

func (s *Session) persist(conv *conversation.Conversation, messages []conversation.Message, prompt string, cfg *config.UserConfig) (*conversation.Conversation, error) {
	if conv == nil {
		opts := conversation.SaveOptions{Model: modelName(cfg)}
		if cfg.LLM.Provider == config.ProviderBedrock {
			t := cfg.AWS.Bedrock.Temperature
			opts.Temperature = &t
		}
		return s.store.Save(Subject(prompt), messages, opts)
	}

	conv.Content.Messages = messages
	conv.Timestamp = s.now().UnixMilli()
	if err := s.store.Update(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Session) fail(requestID, convID string, err error) error {
	kind := Classify(err)
	s.logger.Error().Err(err).Str("kind", kind).Str("request", requestID).Msg("Chat request failed")
	if s.bus != nil {
		s.bus.PublishChatError(requestID, convID, kind, err)
	}
	return fmt.Errorf("%s: %w", UserMessage(kind), err)
}

// BuildRequest converts the most recent maxHistory messages (all when
// maxHistory <= 0) into a model request, led by the system prompt if any.
// The window never starts on an assistant turn.
func BuildRequest(history []conversation.Message, systemPrompt string, maxHistory int) []llm.Message {
	if maxHistory > 0 && len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
		for len(history) > 1 && history[0].Role == conversation.RoleAssistant {
			history = history[1:]
		}
	}
	out := make([]llm.Message, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// Subject derives a conversation subject from its first prompt.
func Subject(prompt string) string {
	prompt = strings.Join(strings.Fields(prompt), " ")
	runes := []rune(prompt)
	if len(runes) <= constants.SubjectMaxRunes {
		return prompt
	}
	return string(runes[:constants.SubjectMaxRunes])
}

func modelName(cfg *config.UserConfig) string {
	switch cfg.LLM.Provider {
	case config.ProviderBedrock:
		return cfg.AWS.Bedrock.ModelID
	case config.ProviderGemini:
		return cfg.Google.Model
	case config.ProviderAzure:
		return cfg.Azure.Model
	}
	return ""
}
