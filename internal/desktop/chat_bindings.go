package desktop

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/chatdesk/chatdesk/internal/chat"
	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/conversation"
	"github.com/chatdesk/chatdesk/internal/credentials"
	"github.com/chatdesk/chatdesk/internal/llm"
)

// ChatPlugin exposes configuration, stored conversations and streaming chat.
type ChatPlugin struct {
	app           *App
	config        *config.Store
	conversations *conversation.Store
	registry      *llm.Registry
	accessor      *credentials.Accessor
	session       *chat.Session
}

// GetConfig returns the current user config.
func (p *ChatPlugin) GetConfig() *config.UserConfig {
	return p.config.Get()
}

// SaveConfig replaces the user config.
func (p *ChatPlugin) SaveConfig(cfg config.UserConfig) error {
	return p.config.Save(&cfg)
}

// UpdateConfig merges a partial JSON document into the user config.
func (p *ChatPlugin) UpdateConfig(patch string) (*config.UserConfig, error) {
	return p.config.Patch([]byte(patch))
}

// ResetConfig restores the default user config.
func (p *ChatPlugin) ResetConfig() error {
	return p.config.Reset()
}

// GetCredentialSource describes where Bedrock credentials will come from.
func (p *ChatPlugin) GetCredentialSource() string {
	cfg := p.config.Get()
	configured := credentials.Pair{
		AccessKey: cfg.AWS.Credentials.AccessKeyID,
		SecretKey: cfg.AWS.Credentials.SecretAccessKey,
	}
	return credentials.Describe(configured, p.accessor)
}

// ListConversations returns stored conversations, newest first.
func (p *ChatPlugin) ListConversations() ([]conversation.Summary, error) {
	list, err := p.conversations.List()
	if err != nil {
		return nil, err
	}
	out := make([]conversation.Summary, 0, len(list))
	for _, c := range list {
		out = append(out, c.Summary())
	}
	return out, nil
}

// OpenConversation makes a stored conversation current and returns it.
func (p *ChatPlugin) OpenConversation(id string) (*conversation.Conversation, error) {
	return p.session.Open(id)
}

// GetCurrentConversation returns the current conversation, or nil for a new chat.
func (p *ChatPlugin) GetCurrentConversation() *conversation.Conversation {
	return p.session.Current()
}

// NewChat starts a new conversation on the next message.
func (p *ChatPlugin) NewChat() error {
	return p.session.NewChat()
}

// DeleteConversation removes a stored conversation. Deleting the current
// one starts a new chat.
func (p *ChatPlugin) DeleteConversation(id string) error {
	if current := p.session.Current(); current != nil && current.ID == id {
		if err := p.session.NewChat(); err != nil {
			return err
		}
	}
	return p.conversations.Delete(id)
}

// SendMessage starts streaming a reply to prompt and returns the request ID
// carried by the chatdesk:chat_* events for it.
func (p *ChatPlugin) SendMessage(prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", chat.ErrEmptyPrompt
	}
	if p.session.Streaming() {
		return "", chat.ErrBusy
	}

	requestID := uuid.NewString()
	ctx := p.app.context()
	go p.send(ctx, requestID, prompt)
	return requestID, nil
}

func (p *ChatPlugin) send(ctx context.Context, requestID, prompt string) {
	if _, err := p.session.Send(ctx, requestID, prompt); err != nil {
		// Other failures were already published by the session
		if errors.Is(err, chat.ErrBusy) {
			desktopLogger.Warn().Str("request", requestID).Msg("Dropped message sent while streaming")
			p.app.bus.PublishChatError(requestID, "", chat.KindOther, err)
		}
	}
}

// AbortStreaming stops the reply in progress. Text received so far is kept.
func (p *ChatPlugin) AbortStreaming() {
	p.session.Abort()
}

// IsStreaming reports whether a reply is in progress.
func (p *ChatPlugin) IsStreaming() bool {
	return p.session.Streaming()
}
