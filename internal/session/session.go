package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/store"
)

// Session holds the identity whose data the stores operate on. The pointer
// is persisted under store.KeyCurrentIdentity so it survives restarts.
type Session struct {
	mu      sync.RWMutex
	kv      store.KV
	logger  *slog.Logger
	current *model.Identity
}

func New(kv store.KV, logger *slog.Logger) *Session {
	return &Session{kv: kv, logger: logger}
}

// Load rehydrates the current identity from durable storage. A missing or
// unreadable record leaves the session signed out.
func (s *Session) Load() error {
	data, err := s.kv.Get(store.KeyCurrentIdentity)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if data == nil {
		return nil
	}
	var id model.Identity
	if err := json.Unmarshal(data, &id); err != nil || id.ID == "" {
		s.logger.Warn("current identity unreadable, starting signed out", "error", err)
		return nil
	}
	s.current = &id
	return nil
}

// Current returns a copy of the active identity, or nil when signed out.
func (s *Session) Current() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

// set persists id as the current identity and then makes it active.
func (s *Session) set(id model.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(store.KeyCurrentIdentity, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.current = &id
	return nil
}

func (s *Session) clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(store.KeyCurrentIdentity); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.current = nil
	return nil
}
