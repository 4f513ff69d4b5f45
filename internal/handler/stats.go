package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/precrastine/internal/overview"
	"github.com/dukerupert/precrastine/internal/store"
)

type StatsHandler struct {
	tasks  *store.TaskStore
	areas  *store.LifeAreaStore
	logger *slog.Logger
	now    func() time.Time
}

func NewStatsHandler(ts *store.TaskStore, as *store.LifeAreaStore, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{tasks: ts, areas: as, logger: logger, now: time.Now}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List()
	if err != nil {
		h.logger.Error("stats: list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	areas, err := h.areas.List()
	if err != nil {
		h.logger.Error("stats: list life areas", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]overview.Stats{"stats": overview.Compute(tasks, areas, h.now())})
}
