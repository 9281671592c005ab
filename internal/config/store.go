package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chatdesk/chatdesk/internal/events"
	"github.com/chatdesk/chatdesk/internal/logging"
)

// ErrOperationInProgress is returned by Save, Patch and Reset while another
// config operation holds the store.
var ErrOperationInProgress = errors.New("config operation already in progress")

// Store is the in-memory owner of the user config.
//
// Only one load/save/reset runs at a time. A Load that arrives while the
// store is busy is dropped; Save, Patch and Reset fail with
// ErrOperationInProgress instead of queueing.
type Store struct {
	path   string
	bus    *events.EventBus
	logger *logging.Logger

	op sync.Mutex   // held for the duration of one operation
	mu sync.RWMutex // guards cfg
	cfg *UserConfig
}

// NewStore creates a store for path (empty = default location) holding the
// defaults until Load is called. bus and logger may be nil.
func NewStore(path string, bus *events.EventBus, logger *logging.Logger) *Store {
	if path == "" {
		path = UserConfigPath()
	}
	if logger == nil {
		logger = logging.NewLogger("gui", nil)
	}
	return &Store{
		path:   path,
		bus:    bus,
		logger: logger,
		cfg:    DefaultUserConfig(),
	}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current config.
func (s *Store) Get() *UserConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Load reads the file into the store. Failures fall back to defaults and are
// only logged.
func (s *Store) Load() {
	if !s.op.TryLock() {
		return
	}
	defer s.op.Unlock()

	cfg, err := LoadUserConfig(s.path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Using default user config")
	}
	s.replace("load", cfg)
}

// Save validates and persists cfg, then makes it current.
func (s *Store) Save(cfg *UserConfig) error {
	if !s.op.TryLock() {
		return ErrOperationInProgress
	}
	defer s.op.Unlock()

	return s.saveLocked("save", cfg)
}

// Patch merges a partial JSON document into the current config and saves it.
func (s *Store) Patch(data []byte) (*UserConfig, error) {
	if !s.op.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer s.op.Unlock()

	merged, err := MergeUserConfig(s.Get(), data)
	if err != nil {
		return nil, err
	}
	if err := s.saveLocked("save", merged); err != nil {
		return nil, err
	}
	return merged.Clone(), nil
}

// Reset writes the defaults. If writing fails the defaults still become
// current in memory and the write error is returned.
func (s *Store) Reset() error {
	if !s.op.TryLock() {
		return ErrOperationInProgress
	}
	defer s.op.Unlock()

	defaults := DefaultUserConfig()
	err := SaveUserConfig(defaults, s.path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset config")
	}
	s.replace("reset", defaults)
	return err
}

func (s *Store) saveLocked(source string, cfg *UserConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := SaveUserConfig(cfg, s.path); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save config")
		return fmt.Errorf("save config: %w", err)
	}
	s.replace(source, cfg.Clone())
	return nil
}

func (s *Store) replace(source string, cfg *UserConfig) {
	s.mu.Lock()
	previous := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.PublishConfigChanged(source, previous.Clone(), cfg.Clone())
	}
}
