package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/precrastine/internal/event"
	"github.com/dukerupert/precrastine/internal/model"
)

// ErrScoreOutOfRange is returned for scores outside [model.MinScore, model.MaxScore].
var ErrScoreOutOfRange = errors.New("score out of range")

// defaultLifeAreas is the canonical wheel, in display order.
var defaultLifeAreas = []model.LifeArea{
	{ID: "health", Name: "Saúde", Color: "#10B981", Icon: "Heart"},
	{ID: "career", Name: "Carreira", Color: "#3B82F6", Icon: "Briefcase"},
	{ID: "relationships", Name: "Relacionamentos", Color: "#EC4899", Icon: "Users"},
	{ID: "finances", Name: "Finanças", Color: "#F59E0B", Icon: "DollarSign"},
	{ID: "personal", Name: "Desenvolvimento Pessoal", Color: "#8B5CF6", Icon: "BookOpen"},
	{ID: "leisure", Name: "Lazer", Color: "#06B6D4", Icon: "Gamepad2"},
	{ID: "family", Name: "Família", Color: "#EF4444", Icon: "Home"},
	{ID: "spirituality", Name: "Espiritualidade", Color: "#84CC16", Icon: "Sun"},
}

// CanonicalLifeAreaIDs returns the ids of the eight canonical areas in display order.
func CanonicalLifeAreaIDs() []string {
	ids := make([]string, len(defaultLifeAreas))
	for i, a := range defaultLifeAreas {
		ids[i] = a.ID
	}
	return ids
}

// LifeAreaStore owns the life-area wheel of the current identity.
type LifeAreaStore struct {
	mu     sync.Mutex
	kv     KV
	scope  Scope
	bus    *event.Bus
	logger *slog.Logger

	owner  string
	areas  []model.LifeArea
	loaded bool
}

func NewLifeAreaStore(kv KV, scope Scope, bus *event.Bus, logger *slog.Logger) *LifeAreaStore {
	return &LifeAreaStore{kv: kv, scope: scope, bus: bus, logger: logger}
}

func (s *LifeAreaStore) publish(action, id, identityID string) {
	if s.bus != nil {
		s.bus.Publish(event.New(event.EntityLifeArea, action, id, identityID))
	}
}

// hydrate loads the current identity's wheel, seeding and persisting the
// canonical areas when none are stored. seeded reports whether that happened.
// Caller holds s.mu.
func (s *LifeAreaStore) hydrate() (ok, seeded bool, err error) {
	cur := s.scope.Current()
	if cur == nil {
		return false, false, nil
	}
	if s.loaded && s.owner == cur.ID {
		return true, false, nil
	}

	var stored []model.LifeArea
	found, err := readJSON(s.kv, LifeAreasKey(cur.ID), &stored)
	if errors.Is(err, ErrMalformed) {
		s.logger.Warn("life areas unreadable, reseeding", "identity_id", cur.ID, "error", err)
		found, err = false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("load life areas: %w", err)
	}

	areas, changed := reconcile(stored, cur.ID, time.Now().UTC())
	if !found || changed {
		if err := writeJSON(s.kv, LifeAreasKey(cur.ID), areas); err != nil {
			return false, false, fmt.Errorf("seed life areas: %w", err)
		}
	}

	s.owner = cur.ID
	s.areas = areas
	s.loaded = true
	return true, !found, nil
}

// reconcile returns exactly one record per canonical area, in canonical order.
// Stored records keep their score and timestamp; missing areas are seeded,
// unknown ids and duplicates are dropped, out-of-range scores reset.
func reconcile(stored []model.LifeArea, identityID string, now time.Time) ([]model.LifeArea, bool) {
	byID := make(map[string]model.LifeArea, len(stored))
	for _, a := range stored {
		if _, dup := byID[a.ID]; !dup {
			byID[a.ID] = a
		}
	}

	changed := len(stored) != len(defaultLifeAreas)
	areas := make([]model.LifeArea, len(defaultLifeAreas))
	for i, def := range defaultLifeAreas {
		area := def
		area.UserID = identityID
		area.Score = model.DefaultScore
		area.LastUpdated = now

		if got, ok := byID[def.ID]; ok {
			if model.ValidScore(got.Score) {
				area.Score = got.Score
			} else {
				changed = true
			}
			if !got.LastUpdated.IsZero() {
				area.LastUpdated = got.LastUpdated
			}
			if i >= len(stored) || stored[i].ID != def.ID || got.UserID != identityID {
				changed = true
			}
		} else {
			changed = true
		}
		areas[i] = area
	}
	return areas, changed
}

// List returns the current identity's eight life areas, seeding them on first access.
func (s *LifeAreaStore) List() ([]model.LifeArea, error) {
	areas, seededFor, err := s.list()
	if seededFor != "" {
		s.publish(event.ActionSeeded, "", seededFor)
	}
	return areas, err
}

func (s *LifeAreaStore) list() ([]model.LifeArea, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, seeded, err := s.hydrate()
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return []model.LifeArea{}, "", nil
	}
	out := make([]model.LifeArea, len(s.areas))
	copy(out, s.areas)
	if seeded {
		return out, s.owner, nil
	}
	return out, "", nil
}

// UpdateScore sets the score of a canonical area and stamps lastUpdated.
// An unknown area id, or nobody signed in, is a no-op that returns nil.
// Otherwise scores outside [1,10] are rejected with ErrScoreOutOfRange and
// change nothing.
func (s *LifeAreaStore) UpdateScore(areaID string, score int) (*model.LifeArea, error) {
	if s.scope.Current() == nil {
		return nil, nil
	}
	if !model.ValidScore(score) {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrScoreOutOfRange, score, model.MinScore, model.MaxScore)
	}

	area, err := s.updateScore(areaID, score)
	if area != nil {
		s.publish(event.ActionUpdated, area.ID, area.UserID)
	}
	return area, err
}

func (s *LifeAreaStore) updateScore(areaID string, score int) (*model.LifeArea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, _, err := s.hydrate()
	if err != nil || !ok {
		return nil, err
	}

	idx := -1
	for i, a := range s.areas {
		if a.ID == areaID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	next := make([]model.LifeArea, len(s.areas))
	copy(next, s.areas)
	next[idx].Score = score
	next[idx].LastUpdated = time.Now().UTC()
	if err := writeJSON(s.kv, LifeAreasKey(s.owner), next); err != nil {
		return nil, fmt.Errorf("save life areas: %w", err)
	}
	s.areas = next

	area := next[idx]
	return &area, nil
}
