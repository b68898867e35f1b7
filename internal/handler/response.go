// Package handler contains the HTTP handlers of the API.
//
// Handlers only translate between HTTP and the service layer: decode the
// request, call a service, encode the result. Every error goes through
// WriteError so clients always see the same JSON error shape:
//
//	{"error": "validation_error", "message": "...", "fields": {"email": "..."}}
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/profiles-api/internal/apperror"
)

// maxBodyBytes caps request bodies. Every payload in this API is tiny.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`            // machine-readable type, e.g. "not_found"
	Message string            `json:"message"`          // human-readable description
	Fields  map[string]string `json:"fields,omitempty"` // per-field problems on 400
}

// writeJSON sends data as JSON with the given status. Headers must be set
// before WriteHeader, which is why Content-Type comes first.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps an error to a status code and writes it.
//
//	ErrValidation      → 400 validation_error
//	ErrUnauthenticated → 401 not_authenticated (+ WWW-Authenticate: Token)
//	ErrForbidden       → 403 permission_denied
//	ErrNotFound        → 404 not_found
//	anything else      → 500 internal_error, details only in the log
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := http.StatusInternalServerError, "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, errorType = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status, errorType = http.StatusUnauthorized, "not_authenticated"
			w.Header().Set("WWW-Authenticate", "Token")
		case errors.Is(err, apperror.ErrForbidden):
			status, errorType = http.StatusForbidden, "permission_denied"
		case errors.Is(err, apperror.ErrNotFound):
			status, errorType = http.StatusNotFound, "not_found"
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   errorType,
				Message: appErr.Message,
				Fields:  appErr.Fields,
			})
			return
		}
	}

	// Never echo internal errors: they may contain SQL or file paths.
	slog.Error("unhandled error",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads the request body into dst. Unknown fields are ignored,
// so a client-supplied "user_profile" on a post simply has no effect.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			// Empty body: every field is simply missing.
			return nil
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", fmt.Sprintf("Request body must be at most %d bytes.", maxErr.Limit))
		default:
			return apperror.ValidationFailed("body", "JSON parse error: "+err.Error())
		}
	}
	return nil
}

// idParam parses the {id} path segment. Anything that is not a positive
// integer cannot name a record, so it is reported as not found.
func idParam(r *http.Request, resource string) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(resource, raw)
	}
	return id, nil
}
