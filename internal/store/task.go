package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/precrastine/internal/event"
	"github.com/dukerupert/precrastine/internal/model"
)

// ErrInvalidPriority is returned for a priority other than low, medium or high.
var ErrInvalidPriority = errors.New("invalid priority")

// Scope reports the identity whose data the stores operate on; nil when
// nobody is signed in.
type Scope interface {
	Current() *model.Identity
}

// TaskStore owns the task list of the current identity. The list is
// rehydrated from the durable store whenever the current identity changes.
type TaskStore struct {
	mu     sync.Mutex
	kv     KV
	scope  Scope
	bus    *event.Bus
	logger *slog.Logger

	owner  string
	tasks  []model.Task
	loaded bool
}

func NewTaskStore(kv KV, scope Scope, bus *event.Bus, logger *slog.Logger) *TaskStore {
	return &TaskStore{kv: kv, scope: scope, bus: bus, logger: logger}
}

// publish runs after s.mu is released so subscribers may read the store.
func (s *TaskStore) publish(action string, t *model.Task) {
	if s.bus != nil && t != nil {
		s.bus.Publish(event.New(event.EntityTask, action, t.ID, t.UserID))
	}
}

// hydrate makes the in-memory list belong to the current identity. It returns
// false when nobody is signed in. Caller holds s.mu.
func (s *TaskStore) hydrate() (bool, error) {
	cur := s.scope.Current()
	if cur == nil {
		return false, nil
	}
	if s.loaded && s.owner == cur.ID {
		return true, nil
	}

	var tasks []model.Task
	_, err := readJSON(s.kv, TasksKey(cur.ID), &tasks)
	if errors.Is(err, ErrMalformed) {
		s.logger.Warn("task list unreadable, treating as empty", "identity_id", cur.ID, "error", err)
		tasks, err = nil, nil
	}
	if err != nil {
		return false, fmt.Errorf("load tasks: %w", err)
	}

	s.owner = cur.ID
	s.tasks = tasks
	s.loaded = true
	return true, nil
}

// commit persists next and, once the write succeeds, makes it the in-memory list.
func (s *TaskStore) commit(next []model.Task) error {
	if err := writeJSON(s.kv, TasksKey(s.owner), next); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	s.tasks = next
	return nil
}

func (s *TaskStore) indexOf(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// List returns the current identity's tasks in insertion order.
func (s *TaskStore) List() ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.hydrate()
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Task{}, nil
	}
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *TaskStore) Get(id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.hydrate()
	if err != nil || !ok {
		return nil, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, nil
	}
	t := s.tasks[i]
	return &t, nil
}

// Add appends a new task owned by the current identity. Empty priority and
// category take their defaults. It returns nil when nobody is signed in.
func (s *TaskStore) Add(f model.TaskFields) (*model.Task, error) {
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, f.Priority)
	}
	t, err := s.add(f)
	s.publish(event.ActionCreated, t)
	return t, err
}

func (s *TaskStore) add(f model.TaskFields) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.hydrate()
	if err != nil || !ok {
		return nil, err
	}

	t := model.Task{
		ID:          uuid.NewString(),
		Title:       f.Title,
		Description: f.Description,
		Completed:   f.Completed,
		Priority:    f.Priority,
		Category:    f.Category,
		DueDate:     f.DueDate,
		CreatedAt:   time.Now().UTC(),
		UserID:      s.owner,
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Category == "" {
		t.Category = model.DefaultCategory
	}

	next := make([]model.Task, 0, len(s.tasks)+1)
	next = append(next, s.tasks...)
	next = append(next, t)
	if err := s.commit(next); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update merges u into the matching task. An unknown id is a no-op that returns nil.
func (s *TaskStore) Update(id string, u model.TaskUpdate) (*model.Task, error) {
	if u.Priority != nil && !u.Priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, *u.Priority)
	}
	t, err := s.mutate(id, func(t *model.Task) { u.Apply(t) })
	s.publish(event.ActionUpdated, t)
	return t, err
}

// Toggle flips the completion state of the matching task. An unknown id is a no-op.
func (s *TaskStore) Toggle(id string) (*model.Task, error) {
	t, err := s.mutate(id, func(t *model.Task) { t.Completed = !t.Completed })
	s.publish(event.ActionToggled, t)
	return t, err
}

func (s *TaskStore) mutate(id string, fn func(*model.Task)) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.hydrate()
	if err != nil || !ok {
		return nil, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, nil
	}

	next := make([]model.Task, len(s.tasks))
	copy(next, s.tasks)
	fn(&next[i])
	if err := s.commit(next); err != nil {
		return nil, err
	}
	t := next[i]
	return &t, nil
}

// Delete removes the matching task and reports whether one was removed.
func (s *TaskStore) Delete(id string) (bool, error) {
	t, err := s.remove(id)
	s.publish(event.ActionDeleted, t)
	return t != nil, err
}

func (s *TaskStore) remove(id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.hydrate()
	if err != nil || !ok {
		return nil, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, nil
	}

	removed := s.tasks[i]
	next := make([]model.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:i]...)
	next = append(next, s.tasks[i+1:]...)
	if err := s.commit(next); err != nil {
		return nil, err
	}
	return &removed, nil
}
