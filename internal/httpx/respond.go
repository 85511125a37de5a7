package httpx

import (
	"encoding/json"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/rs/zerolog/hlog"
	"io"
	"net/http"
	"strconv"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
	Issues  []apperr.Issue `json:"issues,omitempty"`
}

type pageBody[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

type okBody struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status of its kind. Errors outside the
// taxonomy are logged and answered with a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: string(apperr.KindInternal)})
		return
	}
	if e.Status() >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("kind", string(e.Kind)).Msg("request failed")
	}
	writeJSON(w, e.Status(), errorBody{Error: string(e.Kind), Details: e.Details, Issues: e.Issues})
}

// decodeJSON reads a JSON body into dst; a malformed body is a ValidationError.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "malformed JSON body"
		if err == io.EOF {
			msg = "request body required"
		}
		return apperr.Validation(apperr.Issue{Path: "body", Message: msg})
	}
	return nil
}

// parsePage reads page and pageSize, clamping them to sane bounds.
func parsePage(r *http.Request) (page, size int) {
	page, size = defaultPage, defaultPageSize
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n >= 1 {
		page = n
	}
	if n, err := strconv.Atoi(q.Get("pageSize")); err == nil && n >= 1 {
		size = min(n, maxPageSize)
	}
	return page, size
}

func paged[T any](items []T, page, size, total int) pageBody[T] {
	if items == nil {
		items = []T{}
	}
	return pageBody[T]{Items: items, Page: page, PageSize: size, Total: total}
}
