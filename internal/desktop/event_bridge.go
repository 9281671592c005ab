package desktop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/events"
)

// Front-end event names.
const (
	EventNameLog           = "chatdesk:log"
	EventNameChatChunk     = "chatdesk:chat_chunk"
	EventNameChatComplete  = "chatdesk:chat_complete"
	EventNameChatError     = "chatdesk:chat_error"
	EventNameConfigChanged = "chatdesk:config_changed"
)

type emitFunc func(ctx context.Context, name string, data ...interface{})

// EventBridge forwards events from internal EventBus to Wails runtime.
type EventBridge struct {
	ctx          context.Context
	eventBus     *events.EventBus
	subscription <-chan events.Event
	emit         emitFunc

	// Throttling for chunk events, keyed by request ID
	lastChunk     map[string]time.Time
	chunkInterval time.Duration

	stopC   chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge(ctx context.Context, eventBus *events.EventBus) *EventBridge {
	return &EventBridge{
		ctx:           ctx,
		eventBus:      eventBus,
		emit:          runtime.EventsEmit,
		lastChunk:     make(map[string]time.Time),
		chunkInterval: constants.ChatChunkInterval,
		stopC:         make(chan struct{}),
	}
}

// Start begins forwarding events. A second Start is ignored.
func (eb *EventBridge) Start() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.started {
		desktopLogger.Warn().Msg("Event bridge already started, ignoring duplicate Start()")
		return nil
	}

	eb.subscription = eb.eventBus.SubscribeAll()
	if eb.subscription == nil {
		return fmt.Errorf("event bridge: failed to subscribe to event bus")
	}

	eb.started = true
	eb.wg.Add(1)
	go eb.forwardLoop()

	desktopLogger.Debug().Msg("Event bridge started")
	return nil
}

// Stop stops forwarding events.
func (eb *EventBridge) Stop() {
	eb.mu.Lock()
	if !eb.started {
		eb.mu.Unlock()
		return
	}
	eb.started = false
	eb.lastChunk = make(map[string]time.Time)
	sub := eb.subscription
	eb.mu.Unlock()

	close(eb.stopC)
	eb.wg.Wait()
	eb.eventBus.UnsubscribeAll(sub)

	desktopLogger.Debug().Msg("Event bridge stopped")
}

func (eb *EventBridge) forwardLoop() {
	defer eb.wg.Done()

	for {
		select {
		case event, ok := <-eb.subscription:
			if !ok {
				return
			}
			eb.forwardEvent(event)

		case <-eb.stopC:
			return
		}
	}
}

func (eb *EventBridge) forwardEvent(event events.Event) {
	switch e := event.(type) {
	case *events.LogEvent:
		eb.emit(eb.ctx, EventNameLog, logEventToDTO(e))

	case *events.ChatEvent:
		switch e.Type() {
		case events.EventChatChunk:
			if eb.shouldThrottle(e.RequestID) {
				return
			}
			eb.emit(eb.ctx, EventNameChatChunk, chatEventToDTO(e))
		case events.EventChatComplete:
			// Terminal events are never throttled
			eb.forget(e.RequestID)
			eb.emit(eb.ctx, EventNameChatComplete, chatEventToDTO(e))
		case events.EventChatError:
			eb.forget(e.RequestID)
			eb.emit(eb.ctx, EventNameChatError, chatEventToDTO(e))
		}

	case *events.ConfigChangedEvent:
		eb.emit(eb.ctx, EventNameConfigChanged, configChangedEventToDTO(e))
	}
}

func (eb *EventBridge) shouldThrottle(key string) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	now := time.Now()
	if last, ok := eb.lastChunk[key]; ok {
		if now.Sub(last) < eb.chunkInterval {
			return true
		}
	}
	eb.lastChunk[key] = now
	return false
}

func (eb *EventBridge) forget(key string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	delete(eb.lastChunk, key)
}

// DTO conversion functions for JSON-safe serialization

// LogEventDTO is the JSON-safe version of events.LogEvent.
type LogEventDTO struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Stage     string `json:"stage"`
	Error     string `json:"error,omitempty"`
}

func logEventToDTO(e *events.LogEvent) LogEventDTO {
	dto := LogEventDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		Level:     e.Level.String(),
		Message:   e.Message,
		Stage:     e.Stage,
	}
	if e.Error != nil {
		dto.Error = e.Error.Error()
	}
	return dto
}

// ChatEventDTO is the JSON-safe version of events.ChatEvent.
type ChatEventDTO struct {
	Timestamp      string `json:"timestamp"`
	RequestID      string `json:"requestId"`
	ConversationID string `json:"conversationId,omitempty"`
	Text           string `json:"text"`
	Complete       bool   `json:"complete"`
	Error          string `json:"error,omitempty"`
	ErrorKind      string `json:"errorKind,omitempty"`
}

func chatEventToDTO(e *events.ChatEvent) ChatEventDTO {
	dto := ChatEventDTO{
		Timestamp:      e.Timestamp().Format(time.RFC3339Nano),
		RequestID:      e.RequestID,
		ConversationID: e.ConversationID,
		Text:           e.Text,
		Complete:       e.Complete,
		ErrorKind:      e.ErrorKind,
	}
	if e.Error != nil {
		dto.Error = e.Error.Error()
	}
	return dto
}

// ConfigChangedDTO carries the new user config to the front-end.
type ConfigChangedDTO struct {
	Timestamp string             `json:"timestamp"`
	Source    string             `json:"source"`
	Config    *config.UserConfig `json:"config,omitempty"`
}

func configChangedEventToDTO(e *events.ConfigChangedEvent) ConfigChangedDTO {
	cfg, _ := e.Current.(*config.UserConfig)
	return ConfigChangedDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		Source:    e.Source,
		Config:    cfg,
	}
}
