package constants

import (
	"time"
)

// Application identity
const (
	// AppName is the display name used for window titles and log lines.
	AppName = "ChatDesk"

	// AppIdentifier names the per-user data directory under the OS config dir.
	AppIdentifier = "com.chatdesk.app"
)

// Environment variables
const (
	// EnvDebug enables debug logging when set to any non-empty value.
	EnvDebug = "CHATDESK_DEBUG"

	// EnvDataDir overrides the app data directory (used by tests and portable installs).
	EnvDataDir = "CHATDESK_DATA_DIR"
)

// File names inside the app data directory
const (
	UserConfigFile   = "config.json"
	AppSettingsFile  = "settings.ini"
	ConversationsDir = "conversations"
	LogFileName      = "chatdesk.log"
)

// HTTP transport
const (
	// HTTPDialTimeout - TCP connect timeout for provider endpoints
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for pooled connections
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections stay in the pool
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake timeout
	HTTPTLSHandshakeTimeout = 15 * time.Second

	// HTTPExpectContinueTimeout - wait for 100-continue
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPClientTimeout - overall timeout for non-streaming requests.
	// Streaming requests rely on context cancellation instead.
	HTTPClientTimeout = 120 * time.Second
)

// Retry configuration
const (
	// MaxRetries - maximum number of retries for transient provider errors
	MaxRetries = 3

	// RetryInitialDelay - initial delay before first retry
	RetryInitialDelay = 500 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries
	RetryMaxDelay = 10 * time.Second
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios
	EventBusMaxBuffer = 5000

	// ChatChunkInterval - minimum time between chunk events forwarded to the
	// front-end for one conversation (the complete event is never throttled)
	ChatChunkInterval = 50 * time.Millisecond
)

// Chat
const (
	// SubjectMaxRunes - conversation subjects are cut from the first prompt
	SubjectMaxRunes = 50

	// ConversationIDLength - total length of generated conversation IDs
	ConversationIDLength = 16
)
