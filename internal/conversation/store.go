package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/chatdesk/chatdesk/internal/logging"
)

var (
	// ErrNotInitialized is returned by every Store call made before Init.
	ErrNotInitialized = errors.New("conversation store not initialized")
	// ErrNotFound is returned when no file exists for an ID.
	ErrNotFound = errors.New("conversation not found")
	// ErrInvalidID is returned for IDs that cannot name a file.
	ErrInvalidID = errors.New("invalid conversation id")
)

// Store reads and writes conversations under dir on fs and keeps an
// in-memory list sorted newest first.
type Store struct {
	fs     afero.Fs
	dir    string
	logger *logging.Logger
	now    func() time.Time

	mu          sync.RWMutex
	initialized bool
	cache       []*Conversation
}

// NewStore creates a store for dir on fs. logger may be nil.
func NewStore(fs afero.Fs, dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewLogger("gui", nil)
	}
	return &Store{
		fs:     fs,
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
}

// Init creates the directory and loads the cache. Calling it again reloads.
func (s *Store) Init() error {
	if err := s.fs.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create conversation directory: %w", err)
	}
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	_, err := s.List()
	return err
}

func (s *Store) file(id string) string {
	return path.Join(s.dir, id+".json")
}

func (s *Store) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (s *Store) write(c *Conversation) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.file(c.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write conversation %s: %w", c.ID, err)
	}
	return nil
}

// Save creates a new conversation with a fresh ID and writes it.
func (s *Store) Save(subject string, messages []Message, opts SaveOptions) (*Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	now := s.now()
	c := &Conversation{
		ID:        NewID(now),
		Subject:   subject,
		Timestamp: now.UnixMilli(),
		Content: Content{
			Messages:     append([]Message{}, messages...),
			Model:        opts.Model,
			Temperature:  opts.Temperature,
			SystemPrompt: opts.SystemPrompt,
		},
	}
	if err := s.write(c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache = append([]*Conversation{c.Clone()}, s.cache...)
	s.mu.Unlock()

	s.logger.Debug().Str("id", c.ID).Int("messages", len(messages)).Msg("Saved conversation")
	return c, nil
}

// Load reads one conversation from disk.
func (s *Store) Load(id string) (*Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return s.read(s.file(id), id)
}

func (s *Store) read(name, id string) (*Conversation, error) {
	data, err := afero.ReadFile(s.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read conversation %s: %w", id, err)
	}
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse conversation %s: %w", id, err)
	}
	return &c, nil
}

// List reads every *.json file, newest first, and refreshes the cache.
// Files that cannot be read or parsed are skipped with a warning.
func (s *Store) List() ([]*Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	list := make([]*Conversation, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		c, err := s.read(path.Join(s.dir, name), strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Skipping unreadable conversation")
			continue
		}
		list = append(list, c)
	}
	sortNewestFirst(list)

	s.mu.Lock()
	s.cache = make([]*Conversation, len(list))
	for i, c := range list {
		s.cache[i] = c.Clone()
	}
	s.mu.Unlock()

	return list, nil
}

// Update rewrites an existing conversation and refreshes the cache order.
// The caller sets Timestamp.
func (s *Store) Update(c *Conversation) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !ValidID(c.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, c.ID)
	}
	if err := s.write(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i, cached := range s.cache {
		if cached.ID == c.ID {
			s.cache[i] = c.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.cache = append(s.cache, c.Clone())
	}
	sortNewestFirst(s.cache)
	return nil
}

// Delete removes a conversation file and its cache entry.
func (s *Store) Delete(id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if err := s.fs.Remove(s.file(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cached := range s.cache {
		if cached.ID == id {
			s.cache = append(s.cache[:i], s.cache[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the cached conversation with id, if any.
func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cache {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return nil, false
}

// Cached returns the cached list, newest first.
func (s *Store) Cached() []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Conversation, len(s.cache))
	for i, c := range s.cache {
		out[i] = c.Clone()
	}
	return out
}

func sortNewestFirst(list []*Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp > list[j].Timestamp
	})
}
