package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"neuronbudget/internal/backend"
	"neuronbudget/internal/core"
)

const userIDHeader = "X-User-ID"

// sessionFrom derives the ambient session from the request. An absent or
// blank header means signed out.
func sessionFrom(r *http.Request) backend.Session {
	return backend.Session{UserID: strings.TrimSpace(r.Header.Get(userIDHeader))}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps repository errors to HTTP status codes: missing records to
// 404, rejected input to 422, unreachable backends to 503.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidRecord), errors.Is(err, core.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStorageUnavailable), errors.Is(err, core.ErrRemoteUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
	} else {
		slog.WarnContext(r.Context(), "Request rejected", "error", err, "status", status, "url", r.URL.Path)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody decodes a JSON request body, rejecting unknown fields so typos
// surface as 422s instead of silently dropped data.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", core.ErrInvalidRecord, err)
	}
	return nil
}

// filterFrom parses the transaction filter query parameters.
func filterFrom(r *http.Request) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		f.Type = core.TransactionType(v)
		if err := f.Type.Validate(); err != nil {
			return core.TransactionFilter{}, err
		}
	}
	f.Category = strings.TrimSpace(q.Get("category"))

	if v := strings.TrimSpace(q.Get("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return core.TransactionFilter{}, fmt.Errorf("%w: year %q: must be a number", core.ErrInvalidRecord, v)
		}
		f.Year = year
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return core.TransactionFilter{}, fmt.Errorf("%w: month %q: must be 1-12", core.ErrInvalidRecord, v)
		}
		if f.Year == 0 {
			return core.TransactionFilter{}, fmt.Errorf("%w: month filter requires year", core.ErrInvalidRecord)
		}
		f.Month = time.Month(month)
	}
	return f, nil
}
