package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dukerupert/precrastine/internal/model"
)

// Durable keys. Per-identity collections live under "<prefix>:<identity id>".
const (
	KeyRegisteredIdentities = "registered-identities"
	KeyCurrentIdentity      = "current-identity"

	tasksPrefix     = "tasks:"
	lifeAreasPrefix = "life-areas:"
)

func TasksKey(identityID string) string {
	return tasksPrefix + identityID
}

func LifeAreasKey(identityID string) string {
	return lifeAreasPrefix + identityID
}

// KV is the durable key-value store every collection is persisted to.
// Get returns nil, nil for an absent key.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	// Replace makes entries the entire contents of the store in one step:
	// either every key is written and every other key removed, or nothing changes.
	Replace(entries map[string][]byte) error
}

// ErrMalformed marks a persisted value that could not be decoded.
var ErrMalformed = errors.New("malformed persisted value")

// readJSON decodes the value at key into v and reports whether the key existed.
func readJSON(kv KV, key string, v any) (bool, error) {
	data, err := kv.Get(key)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %q: %w: %v", key, ErrMalformed, err)
	}
	return true, nil
}

// ValidateEntry checks that value is a well-formed record for key. Unknown
// keys are rejected.
func ValidateEntry(key string, value []byte) error {
	switch {
	case key == KeyRegisteredIdentities:
		var regs []model.Registration
		if err := decodeStrict(value, &regs); err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		seen := make(map[string]bool, len(regs))
		for _, r := range regs {
			if r.ID == "" || r.Email == "" {
				return fmt.Errorf("%q: %w: identity without id or email", key, ErrMalformed)
			}
			if seen[r.Email] {
				return fmt.Errorf("%q: %w: duplicate email %q", key, ErrMalformed, r.Email)
			}
			seen[r.Email] = true
		}
	case key == KeyCurrentIdentity:
		var id model.Identity
		if err := decodeStrict(value, &id); err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		if id.ID == "" {
			return fmt.Errorf("%q: %w: identity without id", key, ErrMalformed)
		}
	case strings.HasPrefix(key, tasksPrefix) && len(key) > len(tasksPrefix):
		var tasks []model.Task
		if err := decodeStrict(value, &tasks); err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		for _, t := range tasks {
			if t.ID == "" || !t.Priority.Valid() {
				return fmt.Errorf("%q: %w: task %q has no id or an invalid priority", key, ErrMalformed, t.ID)
			}
		}
	case strings.HasPrefix(key, lifeAreasPrefix) && len(key) > len(lifeAreasPrefix):
		var areas []model.LifeArea
		if err := decodeStrict(value, &areas); err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		for _, a := range areas {
			if !model.ValidScore(a.Score) {
				return fmt.Errorf("%q: %w: area %q score %d", key, ErrMalformed, a.ID, a.Score)
			}
		}
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return nil
}

func writeJSON(kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := kv.Set(key, data); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// MemoryKV is an in-process KV, used by tests and as a scratch store.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Replace(entries map[string][]byte) error {
	next := make(map[string][]byte, len(entries))
	for k, v := range entries {
		next[k] = append([]byte(nil), v...)
	}
	m.mu.Lock()
	m.data = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
