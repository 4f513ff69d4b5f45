package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/precrastine/internal/auth"
	"github.com/dukerupert/precrastine/internal/session"
	"github.com/dukerupert/precrastine/internal/store"
)

type testEnv struct {
	ctl   *session.Controller
	tasks *store.TaskStore
	areas *store.LifeAreaStore
	auth  *AuthHandler
	task  *TaskHandler
	area  *LifeAreaHandler
	stats *StatsHandler
	fixed time.Time
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()
	kv := store.NewMemoryKV()
	logger := slog.Default()
	sess := session.New(kv, logger)
	ctl := session.NewController(store.NewIdentityStore(kv, logger), sess, nil, logger)
	tasks := store.NewTaskStore(kv, sess, nil, logger)
	areas := store.NewLifeAreaStore(kv, sess, nil, logger)

	env := &testEnv{
		ctl:   ctl,
		tasks: tasks,
		areas: areas,
		auth:  NewAuthHandler(ctl, logger),
		task:  NewTaskHandler(tasks, logger),
		area:  NewLifeAreaHandler(areas, logger),
		stats: NewStatsHandler(tasks, areas, logger),
		fixed: time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC),
	}
	env.task.now = func() time.Time { return env.fixed }
	env.stats.now = func() time.Time { return env.fixed }
	return env
}

// signIn registers alice, which also signs alice in.
func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	if ok, err := e.ctl.Register("alice@example.com", "secret1", "Alice"); err != nil || !ok {
		t.Fatalf("register = %v, %v", ok, err)
	}
}

// request builds a request carrying the current identity, as
// middleware.RequireIdentity would.
func (e *testEnv) request(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if cur := e.ctl.Current(); cur != nil {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{Identity: *cur}))
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}
