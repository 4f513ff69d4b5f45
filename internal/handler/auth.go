package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/precrastine/internal/auth"
	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/photo"
	"github.com/dukerupert/precrastine/internal/session"
	"github.com/dukerupert/precrastine/internal/store"
)

type AuthHandler struct {
	ctl      *session.Controller
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthHandler(ctl *session.Controller, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{ctl: ctl, validate: newValidator(), logger: logger}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	Name  *string `json:"name" validate:"omitnil,max=100"`
	Email *string `json:"email" validate:"omitnil,email"`
	Photo *string `json:"photo" validate:"omitnil,max=3000000"`
}

type userResponse struct {
	Success bool            `json:"success,omitempty"`
	User    *model.Identity `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ok, err := h.ctl.Register(req.Email, req.Password, req.Name)
	if err != nil {
		h.logger.Error("register", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "email already in use")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Success: true, User: h.ctl.Current()})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ok, err := h.ctl.Login(req.Email, req.Password)
	if err != nil {
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: h.ctl.Current()})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.ctl.Logout(); err != nil {
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userResponse{User: auth.Identity(r.Context())})
}

// UpdateProfile ignores blank fields, as the profile form sends every field.
// A photo is stored as a 200x200 JPEG data URL.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name, req.Email, req.Photo = blankToNil(req.Name), blankToNil(req.Email), blankToNil(req.Photo)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Photo != nil {
		processed, err := photo.Process(*req.Photo)
		if err != nil {
			h.logger.Debug("rejected profile photo", "error", err)
			writeError(w, http.StatusBadRequest, "photo must be a PNG, JPEG or GIF image")
			return
		}
		req.Photo = &processed
	}

	err := h.ctl.UpdateProfile(model.ProfileUpdate{Name: req.Name, Email: req.Email, Photo: req.Photo})
	if errors.Is(err, store.ErrEmailInUse) {
		writeError(w, http.StatusBadRequest, "email already in use")
		return
	}
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: h.ctl.Current()})
}

func blankToNil(s *string) *string {
	s = trimPtr(s)
	if s == nil || *s == "" {
		return nil
	}
	return s
}
