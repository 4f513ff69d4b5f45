package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/store"
	"github.com/dukerupert/precrastine/internal/wheel"
)

type LifeAreaHandler struct {
	areas    *store.LifeAreaStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewLifeAreaHandler(as *store.LifeAreaStore, logger *slog.Logger) *LifeAreaHandler {
	return &LifeAreaHandler{areas: as, validate: newValidator(), logger: logger}
}

type scoreRequest struct {
	Score *int `json:"score" validate:"required"`
}

func (h *LifeAreaHandler) List(w http.ResponseWriter, r *http.Request) {
	areas, err := h.areas.List()
	if err != nil {
		h.logger.Error("list life areas", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list life areas")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lifeAreas": areas,
		"wheel":     wheel.Summarize(areas),
	})
}

func (h *LifeAreaHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	area, err := h.areas.UpdateScore(r.PathValue("id"), *req.Score)
	if errors.Is(err, store.ErrScoreOutOfRange) {
		writeError(w, http.StatusBadRequest, "score must be between 1 and 10")
		return
	}
	if err != nil {
		h.logger.Error("update life area", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update life area")
		return
	}
	if area == nil {
		writeError(w, http.StatusNotFound, "life area not found")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool            `json:"success"`
		LifeArea *model.LifeArea `json:"lifeArea"`
	}{true, area})
}
