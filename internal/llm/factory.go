package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/events"
)

// NewService builds the provider selected by cfg.LLM.Provider.
func NewService(ctx context.Context, cfg *config.UserConfig, deps Deps) (Service, error) {
	switch cfg.LLM.Provider {
	case config.ProviderBedrock:
		return NewBedrock(ctx, cfg, deps)
	case config.ProviderGemini:
		return NewGemini(ctx, cfg, deps)
	case config.ProviderAzure:
		return NewAzure(cfg, deps)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.LLM.Provider)
	}
}

// ConfigSource supplies the current user config. *config.Store implements it.
type ConfigSource interface {
	Get() *config.UserConfig
}

// BuildFunc constructs a service; NewService in production.
type BuildFunc func(ctx context.Context, cfg *config.UserConfig, deps Deps) (Service, error)

// Registry caches the service for the current config and rebuilds it when
// the provider settings change.
type Registry struct {
	source ConfigSource
	deps   Deps
	build  BuildFunc

	mu  sync.Mutex
	svc Service
	key string
	// stale holds services dropped by Invalidate whose stream may still run.
	stale []Service
}

// NewRegistry creates a registry reading from source.
func NewRegistry(source ConfigSource, deps Deps) *Registry {
	return &Registry{source: source, deps: deps, build: NewService}
}

// Service returns the cached service, building it on first use or after the
// provider settings changed.
func (r *Registry) Service(ctx context.Context) (Service, error) {
	cfg := r.source.Get()
	key := providerKey(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.svc != nil && r.key == key {
		return r.svc, nil
	}

	svc, err := r.build(ctx, cfg, r.deps)
	if err != nil {
		return nil, err
	}
	if r.svc != nil {
		r.svc.AbortStreaming()
	}
	for _, old := range r.stale {
		old.AbortStreaming()
	}
	r.stale = nil
	r.svc = svc
	r.key = key
	return svc, nil
}

// Invalidate drops the cached service so the next call rebuilds it. A stream
// in flight keeps running and can still be stopped with AbortStreaming until
// the replacement is built.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.svc != nil {
		r.stale = append(r.stale, r.svc)
	}
	r.svc = nil
	r.key = ""
}

// AbortStreaming aborts the stream of the cached service and of any service
// invalidated while streaming.
func (r *Registry) AbortStreaming() {
	r.mu.Lock()
	targets := append([]Service(nil), r.stale...)
	if r.svc != nil {
		targets = append(targets, r.svc)
	}
	r.mu.Unlock()
	for _, svc := range targets {
		svc.AbortStreaming()
	}
}

// Watch invalidates the registry whenever a config change touches the
// provider settings. The returned func stops watching.
func (r *Registry) Watch(bus *events.EventBus) (stop func()) {
	ch := bus.Subscribe(events.EventConfigChanged)
	quit := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-quit:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				changed, isChange := ev.(*events.ConfigChangedEvent)
				if !isChange {
					continue
				}
				prev, _ := changed.Previous.(*config.UserConfig)
				cur, _ := changed.Current.(*config.UserConfig)
				if prev == nil || cur == nil || providerKey(prev) != providerKey(cur) {
					r.Invalidate()
					r.deps.logger().Debug().Str("source", changed.Source).Msg("LLM provider settings changed")
				}
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(quit)
			bus.Unsubscribe(events.EventConfigChanged, ch)
		})
	}
}

// providerKey fingerprints every setting a built service depends on.
func providerKey(cfg *config.UserConfig) string {
	var section any
	switch cfg.LLM.Provider {
	case config.ProviderBedrock:
		section = cfg.AWS
	case config.ProviderGemini:
		section = cfg.Google
	case config.ProviderAzure:
		section = cfg.Azure
	}
	data, _ := json.Marshal(struct {
		Provider string
		Section  any
	}{cfg.LLM.Provider, section})
	return string(data)
}
