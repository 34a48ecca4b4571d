// Package handler contains the HTTP request handlers of the user directory.
//
// Handlers are glue: they parse the request (path params, query string,
// JSON body), call the UserService, and write the result with writeJSON or
// writeError. No business rule lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/usersdot/internal/apperror"
	"github.com/sakif/usersdot/internal/model"
)

// UserService is what the handlers need from the service layer.
// *service.UserService satisfies it; tests pass a fake.
type UserService interface {
	List(ctx context.Context, page, limit int, query string) (*model.UserPage, error)
	FindOne(ctx context.Context, id int64) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, input model.UserInput) (*model.User, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id int64) error
	Health(ctx context.Context) error
}

// UserHandler serves the /users REST resource.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList returns one page of users.
//
// HTTP: GET /users?page=1&limit=10&query=ali
//
// page and limit that are missing or not integers are treated as absent and
// the service applies its defaults.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	page := intParam(qs.Get("page"))
	limit := intParam(qs.Get("limit"))

	result, err := h.users.List(r.Context(), page, limit, qs.Get("query"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// HandleExists reports whether an email is already taken.
//
// HTTP: GET /users/exists?email=a@x.com → {"exists": true}
func (h *UserHandler) HandleExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.users.EmailExists(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]bool{"exists": exists})
}

// HandleGetByID returns a single user.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.FindOne(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// HandleCreate creates a user.
//
// HTTP: POST /users
// REQUEST BODY: {"name":"Ali","surname":"Kaya","email":"ali@x.com","password":"...", ...}
// RESPONSE: 201 Created with the stored user (no password field).
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input model.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	user, err := h.users.Create(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, user)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /users/{id}
// Fields missing from the body are handled according to the configured
// patch mode (keep or clear).
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch model.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	user, err := h.users.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// HandleDelete removes a user.
//
// HTTP: DELETE /users/{id} → 204 No Content
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth pings the store.
//
// HTTP: GET /healthz → 200 {"status":"ok"} or 503 {"status":"unavailable"}
func (h *UserHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Health(r.Context()); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// userID reads the {id} URL parameter. A non-numeric id is a validation error.
func userID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "id must be an integer")
	}
	return id, nil
}

// intParam parses a query-string integer; anything unparsable is 0 (absent).
func intParam(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
