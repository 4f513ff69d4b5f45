package session

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/dukerupert/precrastine/internal/event"
	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/store"
)

type testEnv struct {
	kv         *store.MemoryKV
	session    *Session
	identities *store.IdentityStore
	ctl        *Controller
	tasks      *store.TaskStore
	events     *[]event.Event
}

func setupController(t *testing.T) testEnv {
	t.Helper()
	kv := store.NewMemoryKV()
	bus := event.NewBus(slog.Default())
	var events []event.Event
	bus.Subscribe(func(e event.Event) { events = append(events, e) })

	sess := New(kv, slog.Default())
	identities := store.NewIdentityStore(kv, slog.Default())
	return testEnv{
		kv:         kv,
		session:    sess,
		identities: identities,
		ctl:        NewController(identities, sess, bus, slog.Default()),
		tasks:      store.NewTaskStore(kv, sess, bus, slog.Default()),
		events:     &events,
	}
}

func strPtr(s string) *string { return &s }

func TestRegisterLoginLogoutScenario(t *testing.T) {
	env := setupController(t)

	ok, err := env.ctl.Register("alice@example.com", "secret1", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !ok {
		t.Fatal("expected register to succeed")
	}
	cur := env.ctl.Current()
	if cur == nil || cur.Email != "alice@example.com" {
		t.Fatalf("current = %+v, want alice", cur)
	}
	raw, _ := env.kv.Get(store.KeyCurrentIdentity)
	if strings.Contains(string(raw), "secret1") {
		t.Error("current identity must not carry the credential")
	}

	if err := env.ctl.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if env.ctl.Current() != nil {
		t.Error("expected signed out after logout")
	}
	all, _ := env.identities.List()
	if len(all) != 1 {
		t.Errorf("registered = %d, want 1 after logout", len(all))
	}

	ok, err = env.ctl.Login("alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !ok {
		t.Fatal("expected login to succeed")
	}
	if got := env.ctl.Current(); got == nil || got.ID != cur.ID {
		t.Errorf("current = %+v, want %s", got, cur.ID)
	}

	env.ctl.Logout()
	ok, err = env.ctl.Login("alice@example.com", "wrong")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if ok {
		t.Error("expected login with wrong password to fail")
	}
	if env.ctl.Current() != nil {
		t.Error("failed login must not sign anyone in")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := setupController(t)
	env.ctl.Register("alice@example.com", "secret1", "Alice")
	env.ctl.Logout()

	ok, err := env.ctl.Register("alice@example.com", "other", "Impostor")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ok {
		t.Error("expected duplicate register to fail")
	}
	if env.ctl.Current() != nil {
		t.Error("duplicate register must not sign in")
	}
}

func TestRegisterPublishesEvents(t *testing.T) {
	env := setupController(t)
	env.ctl.Register("alice@example.com", "secret1", "Alice")
	env.ctl.Logout()

	var types []string
	for _, e := range *env.events {
		types = append(types, e.Type)
	}
	want := []string{"identity_created", "session_logged_in", "session_logged_out"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestLogoutWhenSignedOut(t *testing.T) {
	env := setupController(t)
	if err := env.ctl.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(*env.events) != 0 {
		t.Errorf("events = %d, want 0", len(*env.events))
	}
}

func TestUpdateProfile(t *testing.T) {
	env := setupController(t)
	env.ctl.Register("alice@example.com", "secret1", "Alice")

	err := env.ctl.UpdateProfile(model.ProfileUpdate{Name: strPtr("Alice Liddell"), Email: strPtr("al@example.com")})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	cur := env.ctl.Current()
	if cur.Name != "Alice Liddell" || cur.Email != "al@example.com" {
		t.Errorf("current = %+v", cur)
	}

	// The registered record follows, so the next login uses the new email.
	env.ctl.Logout()
	if ok, _ := env.ctl.Login("al@example.com", "secret1"); !ok {
		t.Error("expected login with updated email to succeed")
	}
	if ok, _ := env.ctl.Login("alice@example.com", "secret1"); ok {
		t.Error("expected login with old email to fail")
	}
}

func TestUpdateProfileEmailInUse(t *testing.T) {
	env := setupController(t)
	env.ctl.Register("bob@example.com", "secret2", "Bob")
	env.ctl.Register("alice@example.com", "secret1", "Alice")

	err := env.ctl.UpdateProfile(model.ProfileUpdate{Email: strPtr("bob@example.com")})
	if !errors.Is(err, store.ErrEmailInUse) {
		t.Fatalf("err = %v, want ErrEmailInUse", err)
	}
	if got := env.ctl.Current().Email; got != "alice@example.com" {
		t.Errorf("email = %q, want unchanged", got)
	}
}

func TestUpdateProfileSignedOut(t *testing.T) {
	env := setupController(t)
	if err := env.ctl.UpdateProfile(model.ProfileUpdate{Name: strPtr("x")}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if raw, _ := env.kv.Get(store.KeyCurrentIdentity); raw != nil {
		t.Error("signed-out update must not write a session")
	}
}

func TestUpdateProfileUnregisteredCurrent(t *testing.T) {
	env := setupController(t)
	env.session.set(model.Identity{ID: "ghost", Name: "Ghost"})

	if err := env.ctl.UpdateProfile(model.ProfileUpdate{Name: strPtr("Casper")}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if got := env.ctl.Current().Name; got != "Casper" {
		t.Errorf("name = %q, want %q", got, "Casper")
	}
}

func TestRestore(t *testing.T) {
	env := setupController(t)
	env.ctl.Register("alice@example.com", "secret1", "Alice")
	alice := env.ctl.Current()

	env.ctl.Register("bob@example.com", "secret2", "Bob")
	if err := env.ctl.Restore(alice); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := env.ctl.Current(); got.ID != alice.ID {
		t.Errorf("current = %s, want %s", got.ID, alice.ID)
	}

	if err := env.ctl.Restore(nil); err != nil {
		t.Fatalf("restore nil: %v", err)
	}
	if env.ctl.Current() != nil {
		t.Error("expected signed out")
	}
}

func TestBuyMilkScenario(t *testing.T) {
	env := setupController(t)
	env.ctl.Register("alice@example.com", "secret1", "Alice")

	added, err := env.tasks.Add(model.TaskFields{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	env.tasks.Toggle(added.ID)

	// Simulate a restart: fresh session and store over the same durable state.
	sess := New(env.kv, slog.Default())
	if err := sess.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	tasks := store.NewTaskStore(env.kv, sess, nil, slog.Default())
	list, err := tasks.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	got := list[0]
	if got.Title != "Buy milk" || !got.Completed || got.Priority != model.PriorityMedium {
		t.Errorf("task = %+v", got)
	}
	if got.UserID != env.ctl.Current().ID {
		t.Errorf("userId = %q, want %q", got.UserID, env.ctl.Current().ID)
	}

	// Another identity sees nothing.
	env.ctl.Register("bob@example.com", "secret2", "Bob")
	list, _ = env.tasks.List()
	if len(list) != 0 {
		t.Errorf("bob sees %d tasks, want 0", len(list))
	}
}
