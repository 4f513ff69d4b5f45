package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/precrastine/internal/model"
)

// ErrEmailInUse is returned when an email already belongs to another identity.
var ErrEmailInUse = errors.New("email already in use")

// IdentityStore owns the registered-identity collection.
type IdentityStore struct {
	mu     sync.Mutex
	kv     KV
	logger *slog.Logger
}

func NewIdentityStore(kv KV, logger *slog.Logger) *IdentityStore {
	return &IdentityStore{kv: kv, logger: logger}
}

func (s *IdentityStore) load() ([]model.Registration, error) {
	var regs []model.Registration
	_, err := readJSON(s.kv, KeyRegisteredIdentities, &regs)
	if errors.Is(err, ErrMalformed) {
		s.logger.Warn("registered identities unreadable, treating as empty", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *IdentityStore) save(regs []model.Registration) error {
	return writeJSON(s.kv, KeyRegisteredIdentities, regs)
}

// List returns every registered identity without credentials.
func (s *IdentityStore) List() ([]model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.Identity, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.Identity)
	}
	return out, nil
}

func (s *IdentityStore) GetByEmail(email string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range regs {
		if r.Email == email {
			id := r.Identity
			return &id, nil
		}
	}
	return nil, nil
}

// Create registers a new identity. It returns ErrEmailInUse if the email is taken.
func (s *IdentityStore) Create(email, password, name string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range regs {
		if r.Email == email {
			return nil, ErrEmailInUse
		}
	}

	reg := model.Registration{
		Identity: model.Identity{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      name,
			CreatedAt: time.Now().UTC(),
		},
		Password: password,
	}
	if err := s.save(append(regs, reg)); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	id := reg.Identity
	return &id, nil
}

// Authenticate returns the identity whose email and password both match exactly,
// or nil if none does.
func (s *IdentityStore) Authenticate(email, password string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range regs {
		if r.Email == email && r.Password == password {
			id := r.Identity
			return &id, nil
		}
	}
	return nil, nil
}

// Update merges u into the registered identity with the given id. It returns
// nil if the id is not registered and ErrEmailInUse if the new email belongs
// to someone else.
func (s *IdentityStore) Update(id string, u model.ProfileUpdate) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs, err := s.load()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, r := range regs {
		if r.ID == id {
			idx = i
			continue
		}
		if u.Email != nil && r.Email == *u.Email {
			return nil, ErrEmailInUse
		}
	}
	if idx < 0 {
		return nil, nil
	}

	u.Apply(&regs[idx].Identity)
	if err := s.save(regs); err != nil {
		return nil, fmt.Errorf("update identity: %w", err)
	}
	updated := regs[idx].Identity
	return &updated, nil
}
