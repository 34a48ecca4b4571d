package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/usersdot/internal/apperror"
)

func TestWriteJSON_EncodeFailureGoesToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rr := httptest.NewRecorder()

	// Channels cannot be encoded as JSON.
	writeJSON(rr, logger, http.StatusOK, map[string]any{"c": make(chan int)})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, buf.String(), "failed to encode JSON response")
}

func TestWriteError_Mapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"validation", apperror.ValidationFailed("name", "name is required"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("user", "1"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("user", "email", "a@x.com"), http.StatusConflict, "conflict"},
		{"query", apperror.QueryFailed("listing users", errors.New("boom")), http.StatusInternalServerError, "internal_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), `"error":"`+tt.wantKind+`"`)
			assert.NotContains(t, rr.Body.String(), "boom")
		})
	}
}
