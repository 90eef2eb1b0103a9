package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HeaderKey is the request header carrying the client-chosen idempotency key.
const HeaderKey = "Idempotency-Key"

// inFlightTTL bounds how long a claim outlives a request that never completes.
const inFlightTTL = 2 * time.Minute

// Record is a stored response for a previously completed request, or the claim held
// while the first request with the key is still running.
type Record struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
	InFlight    bool   `json:"in_flight,omitempty"`
}

// Replayer stores and looks up responses keyed by principal, route and idempotency key.
type Replayer struct {
	store Store
	ttl   time.Duration
}

// NewReplayer creates a replayer that keeps responses for ttl.
func NewReplayer(store Store, ttl time.Duration) *Replayer {
	return &Replayer{store: store, ttl: ttl}
}

// HashBody returns a stable digest of a request body.
func HashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Begin atomically claims key for a new request. It returns nil when the caller now owns
// the key and must call Complete or Release. Otherwise it returns the existing record,
// which is InFlight while the owning request is still running.
func (r *Replayer) Begin(ctx context.Context, key, requestHash string) (*Record, error) {
	claim, err := json.Marshal(Record{RequestHash: requestHash, InFlight: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode idempotency claim: %w", err)
	}
	claimed, err := r.store.SetNX(ctx, key, string(claim), inFlightTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	rec, err := r.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// The owner released the key between the two calls; its retry is still settling.
		return &Record{RequestHash: requestHash, InFlight: true}, nil
	}
	return rec, nil
}

// Lookup returns the stored record for key, or nil when none exists.
func (r *Replayer) Lookup(ctx context.Context, key string) (*Record, error) {
	stored, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(stored), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &rec, nil
}

// Complete replaces the claim on key with the finished response. A 5xx response releases
// the claim instead so infrastructure failures can be retried with the same key.
func (r *Replayer) Complete(ctx context.Context, key string, status int, contentType string, body []byte, requestHash string) error {
	if status >= http.StatusInternalServerError {
		return r.Release(ctx, key)
	}
	payload, err := json.Marshal(Record{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(body),
		ContentType: contentType,
		RequestHash: requestHash,
	})
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := r.store.Set(ctx, key, string(payload), r.ttl); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// Release drops the claim on key.
func (r *Replayer) Release(ctx context.Context, key string) error {
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Write replays rec onto w.
func (rec *Record) Write(w http.ResponseWriter) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.Status)
	if decoded, err := base64.StdEncoding.DecodeString(rec.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}
