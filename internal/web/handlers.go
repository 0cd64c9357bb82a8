package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/filter"
	"github.com/hpungsan/sift/internal/ops"
	"github.com/hpungsan/sift/internal/report"
	"github.com/hpungsan/sift/internal/store"
)

// maxBodyBytes bounds a POST /strings body.
const maxBodyBytes = 1 << 20

// Handlers contains the HTTP route handlers.
type Handlers struct {
	store    *store.Store
	renderer *Renderer
}

// HandleCreate handles POST /strings.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	value, err := decodeValue(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	rec, err := ops.Create(r.Context(), h.store, ops.ValueInput{Value: value})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusCreated, rec)
}

// HandleGet handles GET /strings/{value}.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := ops.Fetch(r.Context(), h.store, ops.ValueInput{Value: r.PathValue("value")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, rec)
}

// HandleList handles GET /strings with optional filter parameters.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	set, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.List(r.Context(), h.store, ops.ListInput{Filters: set})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleSearch handles GET /strings/filter-by-natural-language.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Search(r.Context(), h.store, ops.SearchInput{Query: r.URL.Query().Get("query")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleDelete handles DELETE /strings/{value}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := ops.Delete(r.Context(), h.store, ops.ValueInput{Value: r.PathValue("value")}); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleReport handles GET /strings/{value}/report, an HTML property sheet.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	value := r.PathValue("value")

	rec, err := ops.Fetch(r.Context(), h.store, ops.ValueInput{Value: value})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	body, err := report.HTML(rec)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	h.renderer.renderPage(w, r, http.StatusOK, "report", ReportPageData{
		PageData: PageData{
			Title:   "Report",
			Version: h.renderer.version,
		},
		Body:      body,
		PathValue: url.PathEscape(value),
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeValue extracts the "value" field from a JSON object body. A body
// that is not exactly one JSON object is INVALID_REQUEST; a missing, null
// or non-string value is INVALID_VALUE.
func decodeValue(body io.Reader) (string, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(body)
	if err := dec.Decode(&fields); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return "", errors.NewInvalidRequest("request body too large")
		}
		return "", errors.NewInvalidRequest("request body must be a JSON object")
	}
	if fields == nil {
		return "", errors.NewInvalidRequest("request body must be a JSON object")
	}
	if _, err := dec.Token(); !stderrors.Is(err, io.EOF) {
		return "", errors.NewInvalidRequest("request body must contain a single JSON object")
	}

	raw, ok := fields["value"]
	if !ok {
		return "", errors.NewInvalidValue(`missing "value" field`)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", errors.NewInvalidValue(`"value" must be a string`)
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", errors.NewInvalidValue(`"value" must be a string`)
	}
	return value, nil
}
