package handler

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
)

// PageHandler serves the admin UI shell.
// Templates are parsed once at startup and reused for every request.
type PageHandler struct {
	templates *template.Template
	apiBase   string
	logger    *slog.Logger
}

// NewPageHandler parses base.html and users.html from templates.
//
// base.html holds the page skeleton with a {{template "content" .}}
// placeholder; users.html fills it with {{define "content"}}. apiBase is the
// prefix the browser script uses for REST calls (e.g. "/api").
func NewPageHandler(templates fs.FS, apiBase string, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templates, "base.html", "users.html")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates: tmpl,
		apiBase:   apiBase,
		logger:    logger,
	}, nil
}

// HandleAdmin serves the single-page admin UI. Both views (list and create)
// are rendered client-side from the same page.
//
// HTTP: GET /
func (h *PageHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":    "Users · Admin",
		"APIBase":  h.apiBase,
		"PageSize": 5,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
