package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"clothing-marketplace/internal/idempotency"
	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/response"

	"github.com/rs/zerolog"
)

// maxIdempotentBody bounds the request body buffered for hashing.
const maxIdempotentBody = 1 << 20

// Idempotency replays the stored response when a request repeats an Idempotency-Key.
// A repeat that arrives while the first request is still running gets a retryable 409.
// Requests without the header pass through. A nil replayer disables the middleware.
func Idempotency(replayer *idempotency.Replayer, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotency.HeaderKey))
			if replayer == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
			if err != nil {
				response.Error(w, r, model.ErrInvalidJSON.Wrap(err), logger)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := idempotency.HashBody(body)
			storeKey := idempotency.Key("idem", scope(r), key)

			rec, err := replayer.Begin(r.Context(), storeKey, requestHash)
			if err != nil {
				response.Error(w, r, model.ErrServiceUnavailable.Wrap(err), logger)
				return
			}
			if rec != nil {
				switch {
				case rec.RequestHash != requestHash:
					response.Error(w, r, model.ErrIdempotencyKeyReused, logger)
				case rec.InFlight:
					response.Error(w, r, model.ErrRequestInProgress, logger)
				default:
					logger.Debug().Str("idempotency_key", key).Str("path", r.URL.Path).Msg("replaying stored response")
					rec.Write(w)
				}
				return
			}

			// The claim must not outlive a cancelled request or a panicking handler.
			storeCtx := context.WithoutCancel(r.Context())
			completed := false
			defer func() {
				if completed {
					return
				}
				if err := replayer.Release(storeCtx, storeKey); err != nil {
					logger.Error().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
				}
			}()

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)
			completed = true

			if err := replayer.Complete(storeCtx, storeKey, cw.status, cw.Header().Get("Content-Type"), cw.body.Bytes(), requestHash); err != nil {
				logger.Error().Err(err).Str("idempotency_key", key).Msg("failed to persist idempotency record")
			}
		})
	}
}

// scope ties a key to the caller and endpoint so two clients cannot collide.
func scope(r *http.Request) string {
	caller := "anonymous"
	if p, ok := PrincipalFrom(r.Context()); ok {
		caller = p.ID.String()
	}
	return strings.Join([]string{caller, r.Method, r.URL.Path}, "|")
}

// captureWriter tees the response so it can be stored after the handler returns.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}
