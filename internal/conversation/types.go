// Package conversation persists chat conversations as one JSON file each.
package conversation

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of a conversation.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Content is the body of a conversation file.
type Content struct {
	Messages     []Message `json:"messages"`
	Model        string    `json:"model,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
}

// Conversation is stored at <dir>/<ID>.json.
type Conversation struct {
	ID        string  `json:"id"`
	Subject   string  `json:"subject"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds of the last write
	Content   Content `json:"content"`
}

// SaveOptions are the optional fields recorded with a new conversation.
type SaveOptions struct {
	Model        string
	Temperature  *float64
	SystemPrompt string
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Content.Messages = append([]Message(nil), c.Content.Messages...)
	if c.Content.Temperature != nil {
		t := *c.Content.Temperature
		clone.Content.Temperature = &t
	}
	return &clone
}

// Summary is the list view of a conversation.
type Summary struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Timestamp    int64  `json:"timestamp"`
	MessageCount int    `json:"messageCount"`
}

// Summary returns the list view of c.
func (c *Conversation) Summary() Summary {
	return Summary{
		ID:           c.ID,
		Subject:      c.Subject,
		Timestamp:    c.Timestamp,
		MessageCount: len(c.Content.Messages),
	}
}
