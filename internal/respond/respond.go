// Package respond writes JSON success payloads and the error envelope
// shared by handlers and middleware.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/observability/requestid"
)

// ErrorItem is one entry of the error envelope
type ErrorItem struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

// Writer renders responses. With Debug set, internal error causes are
// included in the message.
type Writer struct {
	Logger *slog.Logger
	Debug  bool
}

func New(logger *slog.Logger, debug bool) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Logger: logger, Debug: debug}
}

// JSON writes v with the given status
func (rw *Writer) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rw.Logger.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// NoContent writes 204
func (rw *Writer) NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps err to its status and writes the envelope. Errors that are
// not AppErrors are treated as internal.
func (rw *Writer) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternal("internal server error", err)
	}
	status := appErr.StatusCode()

	var items []ErrorItem
	if !IsClientError(appErr) {
		rw.Logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", requestid.From(r.Context())),
			slog.String("error", err.Error()),
		)
		msg := "internal server error"
		if rw.Debug {
			msg = appErr.Error()
		}
		items = []ErrorItem{{Message: msg, Code: status}}
	} else {
		rw.Logger.DebugContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path),
			slog.String("type", appErr.Type.String()),
			slog.Int("status", status),
		)
		for _, m := range appErr.Messages() {
			items = append(items, ErrorItem{Message: m, Code: status})
		}
	}

	rw.JSON(w, status, ErrorResponse{Errors: items})
}

// Status writes a plain status error such as 404 for an unknown route
func (rw *Writer) Status(w http.ResponseWriter, status int, message string) {
	rw.JSON(w, status, ErrorResponse{Errors: []ErrorItem{{Message: message, Code: status}}})
}

// IsClientError reports whether err maps to a 4xx
func IsClientError(err error) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	s := appErr.StatusCode()
	return s >= 400 && s < 500
}
