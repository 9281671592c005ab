package http

import (
	"errors"
	"math/rand"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/credentials"
)

// ErrorType represents different classes of errors for retry and reporting
type ErrorType int

const (
	// ErrorTypeSuccess indicates operation succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential indicates missing, invalid or expired credentials
	ErrorTypeCredential
	// ErrorTypeNetwork indicates network/connection issues (timeouts, connection refused, etc.)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors that can be retried (500, 502, 503, throttling)
	ErrorTypeRetryable
	// ErrorTypeFatal indicates client errors that should not be retried (400, 404, invalid request)
	ErrorTypeFatal
)

// ClassifyError determines the error type of a provider failure.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}
	if errors.Is(err, credentials.ErrCredentialsUnavailable) {
		return ErrorTypeCredential
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTypeNetwork
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "expired") ||
		strings.Contains(errStr, "invalid token") ||
		strings.Contains(errStr, "expiredtoken") ||
		strings.Contains(errStr, "unrecognizedclient") ||
		strings.Contains(errStr, "invalidsignature") ||
		strings.Contains(errStr, "security token") ||
		strings.Contains(errStr, "accessdenied") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "api key not valid") ||
		strings.Contains(errStr, "failed to retrieve credentials") ||
		strings.Contains(errStr, "signature") {
		return ErrorTypeCredential
	}

	if strings.Contains(errStr, "tls handshake timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "timeout") {
		return ErrorTypeNetwork
	}

	if strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "serviceunavailable") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "internalserver") ||
		strings.Contains(errStr, "modelnotready") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return ErrorTypeRetryable
	}

	// Unknown errors are fatal so nothing retries forever
	return ErrorTypeFatal
}

// CalculateBackoff returns exponential backoff duration with full jitter.
//
// Formula: random(0, min(maxDelay, initialDelay * 2^attempt))
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(min(attempt, 30))) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// retryBackoff adapts CalculateBackoff to retryablehttp, honoring Retry-After
// on 429/503 responses.
func retryBackoff(minWait, maxWait time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil && (resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode == nethttp.StatusServiceUnavailable) {
		if d := retryablehttp.DefaultBackoff(minWait, maxWait, attemptNum, resp); d > 0 {
			return d
		}
	}
	return max(minWait/2, CalculateBackoff(attemptNum+1, minWait, maxWait))
}

// retryLogger implements the retryablehttp.LeveledLogger interface on the
// package logger. URL query secrets are masked before logging.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Fields(redactFields(keysAndValues)).Msg(msg)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(redactFields(keysAndValues)).Msg(msg)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Fields(redactFields(keysAndValues)).Msg(msg)
}

// secretParams are query parameters that carry credentials.
var secretParams = []string{"key", "api-key", "api_key", "access_token", "token", "sig"}

// redactFields returns keysAndValues with any "url" value masked.
func redactFields(keysAndValues []interface{}) []interface{} {
	out := append([]interface{}(nil), keysAndValues...)
	for i := 0; i+1 < len(out); i += 2 {
		if k, ok := out[i].(string); !ok || k != "url" {
			continue
		}
		switch v := out[i+1].(type) {
		case *url.URL:
			if v != nil {
				out[i+1] = RedactURL(v.String())
			}
		case string:
			out[i+1] = RedactURL(v)
		}
	}
	return out
}

// RedactURL masks credential-bearing query parameters in raw.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	query := u.Query()
	changed := false
	for _, name := range secretParams {
		if query.Has(name) {
			query.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// NewRetryClient wraps base with retries for idempotent provider calls.
// A nil base uses ConfigureHTTPClient(nil).
func NewRetryClient(base *nethttp.Client) (*retryablehttp.Client, error) {
	if base == nil {
		var err error
		if base, err = ConfigureHTTPClient(nil); err != nil {
			return nil, err
		}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = constants.MaxRetries
	retryClient.RetryWaitMin = constants.RetryInitialDelay
	retryClient.RetryWaitMax = constants.RetryMaxDelay
	retryClient.Backoff = retryBackoff
	retryClient.CheckRetry = retryablehttp.DefaultRetryPolicy
	retryClient.Logger = retryLogger{}
	return retryClient, nil
}

// ErrorTypeName returns a human-readable name for an ErrorType
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeCredential:
		return "credential"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
