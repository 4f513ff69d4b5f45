package store

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/precrastine/internal/event"
	"github.com/dukerupert/precrastine/internal/model"
)

// fakeScope is a Scope whose current identity tests switch directly.
type fakeScope struct {
	mu  sync.Mutex
	cur *model.Identity
}

func (f *fakeScope) Current() *model.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cur == nil {
		return nil
	}
	c := *f.cur
	return &c
}

func (f *fakeScope) set(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "" {
		f.cur = nil
		return
	}
	f.cur = &model.Identity{ID: id, Email: id + "@example.com", Name: id}
}

func setupTaskStore(t *testing.T) (*TaskStore, *fakeScope, *MemoryKV, *[]event.Event) {
	t.Helper()
	kv := NewMemoryKV()
	scope := &fakeScope{}
	scope.set("u1")
	bus := event.NewBus(slog.Default())
	var events []event.Event
	bus.Subscribe(func(e event.Event) { events = append(events, e) })
	return NewTaskStore(kv, scope, bus, slog.Default()), scope, kv, &events
}

func TestTaskAddDefaults(t *testing.T) {
	s, _, _, events := setupTaskStore(t)

	task, err := s.Add(model.TaskFields{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if task.ID == "" {
		t.Error("expected generated id")
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want %q", task.Priority, model.PriorityMedium)
	}
	if task.Category != model.DefaultCategory {
		t.Errorf("category = %q, want %q", task.Category, model.DefaultCategory)
	}
	if task.Completed {
		t.Error("expected new task to be pending")
	}
	if task.UserID != "u1" {
		t.Errorf("userId = %q, want %q", task.UserID, "u1")
	}
	if task.CreatedAt.IsZero() {
		t.Error("expected createdAt")
	}

	if len(*events) != 1 || (*events)[0].Type != "task_created" {
		t.Errorf("events = %+v, want one task_created", *events)
	}
}

func TestTaskIDsUnique(t *testing.T) {
	s, _, _, _ := setupTaskStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		task, err := s.Add(model.TaskFields{Title: "t"})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if seen[task.ID] {
			t.Fatalf("duplicate id %q", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestTaskListInsertionOrder(t *testing.T) {
	s, _, _, _ := setupTaskStore(t)
	for _, title := range []string{"a", "b", "c"} {
		s.Add(model.TaskFields{Title: title})
	}

	tasks, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	for i, want := range []string{"a", "b", "c"} {
		if tasks[i].Title != want {
			t.Errorf("tasks[%d] = %q, want %q", i, tasks[i].Title, want)
		}
	}
}

func TestTaskPersistedAndRehydrated(t *testing.T) {
	s, scope, kv, _ := setupTaskStore(t)
	due := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	added, _ := s.Add(model.TaskFields{Title: "Buy milk", Priority: model.PriorityHigh, DueDate: &due})

	// A fresh store over the same durable state sees the same list.
	fresh := NewTaskStore(kv, scope, nil, slog.Default())
	tasks, err := fresh.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if got.ID != added.ID || got.Title != "Buy milk" || got.Priority != model.PriorityHigh {
		t.Errorf("rehydrated = %+v, want %+v", got, added)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("dueDate = %v, want %v", got.DueDate, due)
	}
}

func TestTaskToggle(t *testing.T) {
	s, _, _, events := setupTaskStore(t)
	added, _ := s.Add(model.TaskFields{Title: "Buy milk"})

	toggled, err := s.Toggle(added.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Completed {
		t.Error("expected completed after first toggle")
	}

	toggled, _ = s.Toggle(added.ID)
	if toggled.Completed {
		t.Error("expected pending after second toggle")
	}

	got, _ := s.Get(added.ID)
	if got.Completed {
		t.Error("stored task should be pending")
	}
	if last := (*events)[len(*events)-1]; last.Type != "task_toggled" {
		t.Errorf("last event = %q, want task_toggled", last.Type)
	}
}

func TestTaskUpdate(t *testing.T) {
	s, _, _, _ := setupTaskStore(t)
	due := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	added, _ := s.Add(model.TaskFields{Title: "Buy milk", Description: "2L", DueDate: &due})

	high := model.PriorityHigh
	updated, err := s.Update(added.ID, model.TaskUpdate{Title: strPtr("Buy oat milk"), Priority: &high})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Buy oat milk" {
		t.Errorf("title = %q, want %q", updated.Title, "Buy oat milk")
	}
	if updated.Description != "2L" {
		t.Errorf("description = %q, want unchanged", updated.Description)
	}
	if updated.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want high", updated.Priority)
	}
	if updated.ID != added.ID || updated.UserID != added.UserID || !updated.CreatedAt.Equal(added.CreatedAt) {
		t.Error("identity fields must not change on update")
	}

	cleared, _ := s.Update(added.ID, model.TaskUpdate{ClearDueDate: true})
	if cleared.DueDate != nil {
		t.Errorf("dueDate = %v, want nil", cleared.DueDate)
	}
}

func TestTaskDelete(t *testing.T) {
	s, _, _, events := setupTaskStore(t)
	a, _ := s.Add(model.TaskFields{Title: "a"})
	b, _ := s.Add(model.TaskFields{Title: "b"})

	removed, err := s.Delete(a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Error("expected removed = true")
	}

	tasks, _ := s.List()
	if len(tasks) != 1 || tasks[0].ID != b.ID {
		t.Errorf("tasks = %+v, want only %s", tasks, b.ID)
	}
	if last := (*events)[len(*events)-1]; last.Type != "task_deleted" || last.ID != a.ID {
		t.Errorf("last event = %+v, want task_deleted for %s", last, a.ID)
	}
}

func TestTaskUnknownIDIsNoOp(t *testing.T) {
	s, _, kv, events := setupTaskStore(t)
	s.Add(model.TaskFields{Title: "a"})
	before, _ := kv.Get(TasksKey("u1"))
	eventsBefore := len(*events)

	if got, err := s.Toggle("missing"); err != nil || got != nil {
		t.Errorf("toggle = %+v, %v; want nil, nil", got, err)
	}
	if got, err := s.Update("missing", model.TaskUpdate{Title: strPtr("x")}); err != nil || got != nil {
		t.Errorf("update = %+v, %v; want nil, nil", got, err)
	}
	if removed, err := s.Delete("missing"); err != nil || removed {
		t.Errorf("delete = %v, %v; want false, nil", removed, err)
	}
	if got, _ := s.Get("missing"); got != nil {
		t.Error("expected nil for unknown id")
	}

	after, _ := kv.Get(TasksKey("u1"))
	if string(before) != string(after) {
		t.Error("durable state changed on unknown id")
	}
	if len(*events) != eventsBefore {
		t.Errorf("events = %d, want %d", len(*events), eventsBefore)
	}
}

func TestTaskNoIdentity(t *testing.T) {
	s, scope, kv, events := setupTaskStore(t)
	scope.set("")

	tasks, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("len = %d, want 0", len(tasks))
	}
	if tasks == nil {
		t.Error("expected empty slice, not nil")
	}

	added, err := s.Add(model.TaskFields{Title: "x"})
	if err != nil || added != nil {
		t.Errorf("add = %+v, %v; want nil, nil", added, err)
	}
	keys, _ := kv.Keys()
	if len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
	if len(*events) != 0 {
		t.Errorf("events = %d, want 0", len(*events))
	}
}

func TestTaskIsolationBetweenIdentities(t *testing.T) {
	s, scope, _, _ := setupTaskStore(t)
	alice, _ := s.Add(model.TaskFields{Title: "alice task"})

	scope.set("u2")
	tasks, _ := s.List()
	if len(tasks) != 0 {
		t.Fatalf("u2 sees %d tasks, want 0", len(tasks))
	}
	if got, _ := s.Toggle(alice.ID); got != nil {
		t.Error("u2 must not be able to toggle u1's task")
	}
	if removed, _ := s.Delete(alice.ID); removed {
		t.Error("u2 must not be able to delete u1's task")
	}
	s.Add(model.TaskFields{Title: "bob task"})

	scope.set("u1")
	tasks, _ = s.List()
	if len(tasks) != 1 || tasks[0].Title != "alice task" || tasks[0].Completed {
		t.Errorf("u1 tasks = %+v, want untouched alice task", tasks)
	}
}

func TestTaskMalformedTreatedAsEmpty(t *testing.T) {
	s, _, kv, _ := setupTaskStore(t)
	kv.Set(TasksKey("u1"), []byte(`{"oops":`))

	tasks, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("len = %d, want 0", len(tasks))
	}

	if _, err := s.Add(model.TaskFields{Title: "fresh"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	tasks, _ = s.List()
	if len(tasks) != 1 {
		t.Errorf("len = %d, want 1", len(tasks))
	}
}

func TestTaskSubscriberCanReadStore(t *testing.T) {
	kv := NewMemoryKV()
	scope := &fakeScope{}
	scope.set("u1")
	bus := event.NewBus(slog.Default())
	s := NewTaskStore(kv, scope, bus, slog.Default())

	var seen int
	bus.Subscribe(func(event.Event) {
		tasks, _ := s.List()
		seen = len(tasks)
	})
	s.Add(model.TaskFields{Title: "a"})

	if seen != 1 {
		t.Errorf("subscriber saw %d tasks, want 1", seen)
	}
}

func TestTaskInvalidPriorityRejected(t *testing.T) {
	s, _, kv, events := setupTaskStore(t)

	if _, err := s.Add(model.TaskFields{Title: "x", Priority: "urgent"}); !errors.Is(err, ErrInvalidPriority) {
		t.Errorf("add err = %v, want ErrInvalidPriority", err)
	}
	list, _ := s.List()
	if len(list) != 0 {
		t.Fatalf("tasks = %d, want 0 after rejected add", len(list))
	}

	task, err := s.Add(model.TaskFields{Title: "Buy milk", Priority: model.PriorityHigh})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	bad := model.Priority("whatever")
	if _, err := s.Update(task.ID, model.TaskUpdate{Priority: &bad}); !errors.Is(err, ErrInvalidPriority) {
		t.Errorf("update err = %v, want ErrInvalidPriority", err)
	}

	got, _ := s.Get(task.ID)
	if got.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want unchanged %q", got.Priority, model.PriorityHigh)
	}
	raw, _ := kv.Get(TasksKey("u1"))
	if bytes.Contains(raw, []byte("whatever")) || bytes.Contains(raw, []byte("urgent")) {
		t.Errorf("persisted = %s, want no invalid priority", raw)
	}
	if len(*events) != 1 {
		t.Errorf("events = %d, want only the valid create", len(*events))
	}
}
