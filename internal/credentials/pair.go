// Package credentials provides access to the AWS credential pair used by the
// chat front-end and the Bedrock provider.
package credentials

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pair is the (access key, secret key) tuple handed to the front-end.
//
// It is built fresh on every call and never cached. On the wire it is a
// two-element JSON array so front-end code can destructure it as
// `const [accessKey, secretKey] = await GetAWSCredentials()`.
type Pair struct {
	AccessKey string
	SecretKey string
}

// Values returns the pair as two strings.
func (p Pair) Values() (string, string) {
	return p.AccessKey, p.SecretKey
}

// Array returns the pair in its wire shape, [accessKey, secretKey].
func (p Pair) Array() [2]string {
	return [2]string{p.AccessKey, p.SecretKey}
}

// IsComplete reports whether both halves are non-empty.
func (p Pair) IsComplete() bool {
	return p.AccessKey != "" && p.SecretKey != ""
}

// MaskedSecret returns the secret with everything but the last four
// characters replaced, for display in logs and the CLI.
func (p Pair) MaskedSecret() string {
	return mask(p.SecretKey)
}

// MarshalJSON encodes the pair as ["accessKey", "secretKey"].
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Array())
}

// UnmarshalJSON accepts the array form produced by MarshalJSON.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("credential pair: %w", err)
	}
	if len(values) != 2 {
		return fmt.Errorf("credential pair: expected 2 elements, got %d", len(values))
	}
	p.AccessKey, p.SecretKey = values[0], values[1]
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
