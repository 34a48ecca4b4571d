package handler_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/usersdot/internal/handler"
)

func TestPageHandler_HandleAdmin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	templates := fstest.MapFS{
		"base.html":  {Data: []byte(`{{define "base"}}<title>{{.Title}}</title><body data-api="{{.APIBase}}">{{template "content" .}}</body>{{end}}`)},
		"users.html": {Data: []byte(`{{define "content"}}<table id="users" data-page-size="{{.PageSize}}"></table>{{end}}`)},
	}

	h, err := handler.NewPageHandler(templates, "/api", logger)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.HandleAdmin(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), `data-api="/api"`)
	assert.Contains(t, rr.Body.String(), `data-page-size="5"`)
}

func TestNewPageHandler_MissingTemplate(t *testing.T) {
	_, err := handler.NewPageHandler(fstest.MapFS{}, "/api", slog.Default())
	assert.Error(t, err)
}
