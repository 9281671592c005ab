package chat

import (
	"errors"

	inthttp "github.com/chatdesk/chatdesk/internal/http"
)

// Error kinds reported with EventChatError.
const (
	KindCredentials = "credentials"
	KindNetwork     = "network"
	KindOther       = "other"
)

var (
	// ErrBusy is returned by Send while another reply is streaming.
	ErrBusy = errors.New("a reply is already streaming")
	// ErrEmptyPrompt is returned by Send for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Classify maps a provider error to the kind shown to the user.
func Classify(err error) string {
	switch inthttp.ClassifyError(err) {
	case inthttp.ErrorTypeCredential:
		return KindCredentials
	case inthttp.ErrorTypeNetwork, inthttp.ErrorTypeRetryable:
		return KindNetwork
	default:
		return KindOther
	}
}

// UserMessage is the sentence the UI shows for an error kind.
func UserMessage(kind string) string {
	switch kind {
	case KindCredentials:
		return "Failed to load credentials. Please check your configuration."
	case KindNetwork:
		return "Network error. Please check your connection and try again."
	default:
		return "The model request failed. Please try again."
	}
}
