// Package handlers exposes the application core to the rendering and
// form layer as a JSON API. The rendering layer never touches the store
// directly; everything it displays flows through these endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"depenses/internal/auth"
	"depenses/internal/models"
	"depenses/internal/repository"
	"depenses/internal/session"
	"depenses/internal/stats"
)

// Context key type to avoid collisions.
type contextKey string

// userContextKey is the context key for the authenticated user.
const userContextKey contextKey = "user"

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	auth     *auth.Manager
	sessions *session.Manager
	repo     *repository.Repository
	stats    *stats.Engine
}

// New creates a Handlers instance.
func New(a *auth.Manager, s *session.Manager, r *repository.Repository, e *stats.Engine) *Handlers {
	return &Handlers{auth: a, sessions: s, repo: r, stats: e}
}

// Routes returns the API router.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.requireAuth(h.Logout))

	mux.HandleFunc("GET /api/expenses", h.requireAuth(h.ListExpenses))
	mux.HandleFunc("POST /api/expenses", h.requireAuth(h.CreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", h.requireAuth(h.DeleteExpense))

	mux.HandleFunc("GET /api/categories", h.Categories)

	mux.HandleFunc("GET /api/stats/categories", h.requireAuth(h.StatsByCategory))
	mux.HandleFunc("GET /api/stats/days", h.requireAuth(h.StatsByDay))
	mux.HandleFunc("GET /api/stats/months", h.requireAuth(h.StatsByMonth))

	return mux
}

// userFromContext retrieves the authenticated user set by requireAuth.
func userFromContext(r *http.Request) models.UserView {
	user, _ := r.Context().Value(userContextKey).(models.UserView)
	return user
}

// requireAuth resolves the bearer session token and rejects requests
// without a live session.
func (h *Handlers) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "missing session token")
			return
		}
		user, ok := h.sessions.Get(token)
		if !ok {
			writeErrorMessage(w, http.StatusUnauthorized, "session expired or unknown")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

type registerRequest struct {
	Username   string `json:"username"`
	PIN        string `json:"pin"`
	PINConfirm string `json:"pin_confirm"`
}

// Register creates a new account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := h.auth.Register(r.Context(), req.Username, req.PIN, req.PINConfirm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type loginResponse struct {
	Token string          `json:"token"`
	User  models.UserView `json:"user"`
}

// Login verifies credentials and opens a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := h.auth.Authenticate(r.Context(), req.Username, req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.sessions.Create(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout clears the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps the domain error taxonomy to HTTP statuses. Every
// failure yields a message; nothing is swallowed.
func writeError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: vErr.Message, Field: vErr.Field})
	case errors.Is(err, models.ErrDuplicateUser):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrInvalidCredential):
		writeErrorMessage(w, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
