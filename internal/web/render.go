package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/logger"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// ReportPageData is the template data for a record report page.
type ReportPageData struct {
	PageData
	Body      template.HTML
	PathValue string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer writes JSON responses and the few HTML pages the service has.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	log       *zap.Logger
}

// NewRenderer parses the page templates from templateFS.
func NewRenderer(templateFS fs.FS, version string, log *zap.Logger) *Renderer {
	layout := template.Must(template.New("layout").ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"report": "report.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layout.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		log:       log,
	}
}

// renderPage renders a named page template with the given status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		logger.FromContext(req.Context(), r.log).Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.FromContext(req.Context(), r.log).Error("template execution failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError writes err as {"error":{code,message,status}}, or as an HTML
// page when the client prefers HTML. Internal causes are logged, never sent.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	sErr := errors.From(err)

	log := logger.FromContext(req.Context(), r.log)
	if sErr.Code == errors.ErrInternal {
		log.Error("request failed", zap.String(logger.FieldErrorCode, string(sErr.Code)), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String(logger.FieldErrorCode, string(sErr.Code)), zap.String(logger.FieldError, sErr.Message))
	}

	if wantsHTML(req) {
		r.renderPage(w, req, sErr.Status, "error", ErrorPageData{
			PageData: PageData{
				Title:   fmt.Sprintf("Error %d", sErr.Status),
				Version: r.version,
			},
			StatusCode: sErr.Status,
			Message:    sErr.Message,
		})
		return
	}

	renderJSON(w, sErr.Status, errorBody(sErr))
}

// errorBody builds the wire form of an error.
func errorBody(sErr *errors.StringError) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    string(sErr.Code),
			"message": sErr.Message,
			"status":  sErr.Status,
		},
	}
}

// wantsHTML reports whether the client asked for HTML over JSON.
func wantsHTML(req *http.Request) bool {
	accept := req.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
