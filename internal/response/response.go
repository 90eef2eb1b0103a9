// Package response writes the JSON success and error envelopes shared by handlers and middleware.
package response

import (
	"encoding/json"
	"net/http"

	"clothing-marketplace/internal/model"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestIDHeader echoes the request id back to the caller for support tickets.
const RequestIDHeader = "X-Request-ID"

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries a stable machine-readable code and a human message.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// Error writes a failure envelope. Errors that are not domain errors are reported as
// INTERNAL_ERROR without exposing their text.
func Error(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	de, ok := model.AsDomainError(err)
	if !ok {
		de = model.ErrInternal
	}
	status := de.HTTPStatus()

	if id := chimw.GetReqID(r.Context()); id != "" {
		w.Header().Set(RequestIDHeader, id)
	}

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("code", de.Code).
		Int("status", status).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", chimw.GetReqID(r.Context())).
		Msg("request failed")

	write(w, status, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:      de.Code,
			Message:   de.Message,
			Retryable: de.Retryable(),
		},
	})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure here has no recovery path.
	_ = json.NewEncoder(w).Encode(body)
}
