package conversation

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/chatdesk/chatdesk/internal/constants"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID returns the base36 millisecond timestamp of now padded with random
// alphanumerics to constants.ConversationIDLength characters. IDs sort
// roughly by creation time and are safe to use as file names.
func NewID(now time.Time) string {
	id := []byte(strconv.FormatInt(now.UnixMilli(), 36))
	for len(id) < constants.ConversationIDLength {
		id = append(id, idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return string(id)
}

// ValidID reports whether id can name a conversation file.
func ValidID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return false
		}
	}
	return true
}
