package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/precrastine/internal/event"
	"github.com/dukerupert/precrastine/internal/handler"
	"github.com/dukerupert/precrastine/internal/logging"
	"github.com/dukerupert/precrastine/internal/metrics"
	"github.com/dukerupert/precrastine/internal/middleware"
	"github.com/dukerupert/precrastine/internal/session"
	"github.com/dukerupert/precrastine/internal/store"
	ws "github.com/dukerupert/precrastine/internal/websocket"
)

// Config tunes the HTTP surface.
type Config struct {
	// LoginRateLimit is the number of login attempts allowed per client IP per minute.
	LoginRateLimit int
	// TrustProxy keys the login limit on X-Forwarded-For rather than the
	// connection's peer address.
	TrustProxy bool
}

type Server struct {
	session     *session.Session
	controller  *session.Controller
	tasks       *store.TaskStore
	lifeAreas   *store.LifeAreaStore
	bus         *event.Bus
	hub         *ws.Hub
	metrics     *metrics.Metrics
	authH       *handler.AuthHandler
	taskH       *handler.TaskHandler
	lifeAreaH   *handler.LifeAreaHandler
	statsH      *handler.StatsHandler
	rateLimiter *middleware.RateLimiter
	subs        []event.Subscription
	cfg         Config
	logger      *slog.Logger
}

// New wires the stores, the change feed and the handlers over kv. sess must
// already be loaded.
func New(kv store.KV, sess *session.Session, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Server {
	bus := event.NewBus(logging.Component(logger, "events"))
	hub := ws.NewHub(logging.Component(logger, "websocket"))

	identityStore := store.NewIdentityStore(kv, logging.Component(logger, "identities"))
	taskStore := store.NewTaskStore(kv, sess, bus, logging.Component(logger, "tasks"))
	lifeAreaStore := store.NewLifeAreaStore(kv, sess, bus, logging.Component(logger, "life_areas"))
	ctl := session.NewController(identityStore, sess, bus, logging.Component(logger, "session"))

	subs := []event.Subscription{hub.Subscribe(bus)}
	if m != nil {
		subs = append(subs, m.ObserveEvents(bus))
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return &Server{
		session:     sess,
		controller:  ctl,
		tasks:       taskStore,
		lifeAreas:   lifeAreaStore,
		bus:         bus,
		hub:         hub,
		metrics:     m,
		authH:       handler.NewAuthHandler(ctl, logging.Component(logger, "auth")),
		taskH:       handler.NewTaskHandler(taskStore, logging.Component(logger, "task")),
		lifeAreaH:   handler.NewLifeAreaHandler(lifeAreaStore, logging.Component(logger, "life_area")),
		statsH:      handler.NewStatsHandler(taskStore, lifeAreaStore, logging.Component(logger, "stats")),
		rateLimiter: middleware.NewRateLimiter(),
		subs:        subs,
		cfg:         cfg,
		logger:      logger,
	}
}

// Controller returns the session controller, used by the seed command.
func (s *Server) Controller() *session.Controller {
	return s.controller
}

func (s *Server) Tasks() *store.TaskStore {
	return s.tasks
}

func (s *Server) LifeAreas() *store.LifeAreaStore {
	return s.lifeAreas
}

func (s *Server) Bus() *event.Bus {
	return s.bus
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Close detaches the change feed and metrics from the event bus.
func (s *Server) Close() {
	for _, sub := range s.subs {
		s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /api/health", s.healthHandler)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("POST /api/auth/register", s.authH.Register)
	mux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)

	s.registerProtectedRoutes(mux)

	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	return middleware.RequestLogger(logging.Component(s.logger, "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":            "ok",
		"websocket_clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	key := middleware.RealIP
	if s.cfg.TrustProxy {
		key = middleware.ForwardedIP
	}
	rl := middleware.RateLimit(s.rateLimiter, key, s.cfg.LoginRateLimit, time.Minute)
	return rl(h).ServeHTTP
}

// registerProtectedRoutes puts every route that needs a signed-in identity on
// mux directly, so outer middleware still sees the matched pattern.
func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	protect := middleware.RequireIdentity(s.session)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	handle("GET /api/auth/me", s.authH.Me)
	handle("PUT /api/users/profile", s.authH.UpdateProfile)

	handle("GET /api/tasks", s.taskH.List)
	handle("POST /api/tasks", s.taskH.Create)
	handle("GET /api/tasks/{id}", s.taskH.Get)
	handle("PUT /api/tasks/{id}", s.taskH.Update)
	handle("POST /api/tasks/{id}/toggle", s.taskH.Toggle)
	handle("DELETE /api/tasks/{id}", s.taskH.Delete)

	handle("GET /api/life-areas", s.lifeAreaH.List)
	handle("PUT /api/life-areas/{id}", s.lifeAreaH.UpdateScore)

	handle("GET /api/stats", s.statsH.Get)

	handle("GET /ws", ws.HandleWebSocket(s.hub, logging.Component(s.logger, "websocket")))
}
