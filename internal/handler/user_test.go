package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/usersdot/internal/apperror"
	"github.com/sakif/usersdot/internal/handler"
	"github.com/sakif/usersdot/internal/model"
)

// MockUserService records what the handler passed in and returns canned values.
type MockUserService struct {
	CapturedPage  int
	CapturedLimit int
	CapturedQuery string
	CapturedID    int64
	CapturedInput model.UserInput
	CapturedPatch model.UserPatch
	CapturedEmail string

	ReturnPage   *model.UserPage
	ReturnUser   *model.User
	ReturnExists bool
	ReturnErr    error
}

func (m *MockUserService) List(_ context.Context, page, limit int, query string) (*model.UserPage, error) {
	m.CapturedPage, m.CapturedLimit, m.CapturedQuery = page, limit, query
	return m.ReturnPage, m.ReturnErr
}

func (m *MockUserService) FindOne(_ context.Context, id int64) (*model.User, error) {
	m.CapturedID = id
	return m.ReturnUser, m.ReturnErr
}

func (m *MockUserService) EmailExists(_ context.Context, email string) (bool, error) {
	m.CapturedEmail = email
	return m.ReturnExists, m.ReturnErr
}

func (m *MockUserService) Create(_ context.Context, input model.UserInput) (*model.User, error) {
	m.CapturedInput = input
	return m.ReturnUser, m.ReturnErr
}

func (m *MockUserService) Update(_ context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	m.CapturedID, m.CapturedPatch = id, patch
	return m.ReturnUser, m.ReturnErr
}

func (m *MockUserService) Delete(_ context.Context, id int64) error {
	m.CapturedID = id
	return m.ReturnErr
}

func (m *MockUserService) Health(context.Context) error { return m.ReturnErr }

// newRouter mounts the handler the way the server does, so chi fills {id}.
func newRouter(svc handler.UserService) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := handler.NewUserHandler(svc, logger)

	r := chi.NewRouter()
	r.Get("/healthz", h.HandleHealth)
	r.Get("/users", h.HandleList)
	r.Get("/users/exists", h.HandleExists)
	r.Get("/users/{id}", h.HandleGetByID)
	r.Post("/users", h.HandleCreate)
	r.Put("/users/{id}", h.HandleUpdate)
	r.Delete("/users/{id}", h.HandleDelete)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestUserHandler_List(t *testing.T) {
	t.Run("passes paging and query through", func(t *testing.T) {
		svc := &MockUserService{ReturnPage: &model.UserPage{
			Users: []model.User{{ID: 1, Name: "Ali"}},
			Total: 11, Page: 2, Limit: 5,
		}}

		rr := do(t, newRouter(svc), http.MethodGet, "/users?page=2&limit=5&query=al", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 2, svc.CapturedPage)
		assert.Equal(t, 5, svc.CapturedLimit)
		assert.Equal(t, "al", svc.CapturedQuery)

		var page model.UserPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
		assert.Equal(t, 11, page.Total)
		assert.Len(t, page.Users, 1)
	})

	t.Run("search text is read from query", func(t *testing.T) {
		svc := &MockUserService{ReturnPage: &model.UserPage{Users: []model.User{}}}

		rr := do(t, newRouter(svc), http.MethodGet, "/users?query=zey", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "zey", svc.CapturedQuery)
	})

	t.Run("non-integer paging is treated as absent", func(t *testing.T) {
		svc := &MockUserService{ReturnPage: &model.UserPage{Users: []model.User{}}}

		rr := do(t, newRouter(svc), http.MethodGet, "/users?page=abc&limit=1.5", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Zero(t, svc.CapturedPage)
		assert.Zero(t, svc.CapturedLimit)
	})

	t.Run("store failure is a generic 500", func(t *testing.T) {
		svc := &MockUserService{ReturnErr: apperror.QueryFailed("listing users", errors.New("SELECT ... syntax error"))}

		rr := do(t, newRouter(svc), http.MethodGet, "/users", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "internal_error", resp.Error)
		assert.NotContains(t, resp.Message, "SELECT")
	})
}

func TestUserHandler_GetByID(t *testing.T) {
	t.Run("found, without password", func(t *testing.T) {
		svc := &MockUserService{ReturnUser: &model.User{ID: 42, Email: "a@x.com", PasswordHash: "deadbeef"}}

		rr := do(t, newRouter(svc), http.MethodGet, "/users/42", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(42), svc.CapturedID)
		assert.NotContains(t, rr.Body.String(), "password")
		assert.NotContains(t, rr.Body.String(), "deadbeef")
	})

	t.Run("not found", func(t *testing.T) {
		svc := &MockUserService{ReturnErr: apperror.NotFound("user", "9")}

		rr := do(t, newRouter(svc), http.MethodGet, "/users/9", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeError(t, rr).Error)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		svc := &MockUserService{}

		rr := do(t, newRouter(svc), http.MethodGet, "/users/abc", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Equal(t, "id", resp.Field)
	})
}

func TestUserHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &MockUserService{ReturnUser: &model.User{ID: 7, Name: "Ali", Email: "ali@x.com"}}
		body := `{"name":"Ali","surname":"Kaya","email":"ali@x.com","password":"pw","phone":"1","age":30,"country":"TR","district":"Kadikoy","role":"user"}`

		rr := do(t, newRouter(svc), http.MethodPost, "/users", body)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "pw", svc.CapturedInput.Password)
		require.NotNil(t, svc.CapturedInput.Age)
		assert.Equal(t, 30, *svc.CapturedInput.Age)

		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, int64(7), user.ID)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		svc := &MockUserService{}

		rr := do(t, newRouter(svc), http.MethodPost, "/users", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("validation error", func(t *testing.T) {
		svc := &MockUserService{ReturnErr: apperror.ValidationFailed("surname", "surname is required")}

		rr := do(t, newRouter(svc), http.MethodPost, "/users", `{"name":"Ali"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "surname is required", resp.Message)
		assert.Equal(t, "surname", resp.Field)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := &MockUserService{ReturnErr: apperror.Conflict("user", "email", "ali@x.com")}

		rr := do(t, newRouter(svc), http.MethodPost, "/users", `{"email":"ali@x.com"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "conflict", decodeError(t, rr).Error)
	})
}

func TestUserHandler_Update(t *testing.T) {
	t.Run("absent fields stay nil", func(t *testing.T) {
		svc := &MockUserService{ReturnUser: &model.User{ID: 3, Phone: "555"}}

		rr := do(t, newRouter(svc), http.MethodPut, "/users/3", `{"phone":"555"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(3), svc.CapturedID)
		require.NotNil(t, svc.CapturedPatch.Phone)
		assert.Equal(t, "555", *svc.CapturedPatch.Phone)
		assert.Nil(t, svc.CapturedPatch.Name)
		assert.Nil(t, svc.CapturedPatch.Password)
	})

	t.Run("missing user", func(t *testing.T) {
		svc := &MockUserService{ReturnErr: apperror.NotFound("user", "3")}

		rr := do(t, newRouter(svc), http.MethodPut, "/users/3", `{}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("email taken", func(t *testing.T) {
		svc := &MockUserService{ReturnErr: apperror.Conflict("user", "email", "b@x.com")}

		rr := do(t, newRouter(svc), http.MethodPut, "/users/3", `{"email":"b@x.com"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rr := do(t, newRouter(&MockUserService{}), http.MethodPut, "/users/3", `nope`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUserHandler_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := &MockUserService{}

		rr := do(t, newRouter(svc), http.MethodDelete, "/users/5", "")

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
		assert.Equal(t, int64(5), svc.CapturedID)
	})

	t.Run("already gone", func(t *testing.T) {
		svc := &MockUserService{ReturnErr: apperror.NotFound("user", "5")}

		rr := do(t, newRouter(svc), http.MethodDelete, "/users/5", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUserHandler_Exists(t *testing.T) {
	svc := &MockUserService{ReturnExists: true}

	rr := do(t, newRouter(svc), http.MethodGet, "/users/exists?email=a%40x.com", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a@x.com", svc.CapturedEmail)
	assert.JSONEq(t, `{"exists":true}`, rr.Body.String())
}

func TestUserHandler_Health(t *testing.T) {
	rr := do(t, newRouter(&MockUserService{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, newRouter(&MockUserService{ReturnErr: errors.New("pool closed")}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.False(t, strings.Contains(rr.Body.String(), "pool closed"))
}
