package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clothing-marketplace/internal/idempotency"
	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory idempotency.Store.
type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", idempotency.ErrMiss
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value.(string)
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestIdempotency(t *testing.T) {
	logger := zerolog.Nop()
	caller := model.Principal{ID: uuid.New(), Role: model.RoleCustomer}

	newRequest := func(key, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
		if key != "" {
			req.Header.Set(idempotency.HeaderKey, key)
		}
		return req.WithContext(WithPrincipal(req.Context(), caller))
	}

	setup := func(store *memStore) (http.Handler, *int) {
		calls := 0
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"echo":` + string(body) + `}`))
		})
		return Idempotency(idempotency.NewReplayer(store, time.Hour), logger)(next), &calls
	}

	t.Run("Replays stored response for same key and body", func(t *testing.T) {
		handler, calls := setup(newMemStore())

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, newRequest("key-1", `{"quantity":1}`))
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, newRequest("key-1", `{"quantity":1}`))

		assert.Equal(t, 1, *calls)
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	})

	t.Run("Different body with same key conflicts", func(t *testing.T) {
		handler, calls := setup(newMemStore())

		handler.ServeHTTP(httptest.NewRecorder(), newRequest("key-2", `{"quantity":1}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest("key-2", `{"quantity":2}`))

		assert.Equal(t, 1, *calls)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), model.ErrCodeIdempotencyKeyReused)
	})

	t.Run("Requests without a key are not stored", func(t *testing.T) {
		store := newMemStore()
		handler, calls := setup(store)

		handler.ServeHTTP(httptest.NewRecorder(), newRequest("", `{}`))
		handler.ServeHTTP(httptest.NewRecorder(), newRequest("", `{}`))

		assert.Equal(t, 2, *calls)
		assert.Empty(t, store.data)
	})

	t.Run("Store outage returns service unavailable", func(t *testing.T) {
		store := newMemStore()
		store.setErr = errors.New("redis down")
		handler, calls := setup(store)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest("key-3", `{}`))

		assert.Equal(t, 0, *calls)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Concurrent request with the same key is rejected while the first runs", func(t *testing.T) {
		store := newMemStore()
		entered := make(chan struct{})
		proceed := make(chan struct{})
		var calls atomic.Int32
		handler := Idempotency(idempotency.NewReplayer(store, time.Hour), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			close(entered)
			<-proceed
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"order":"o-1"}`))
		}))

		first := httptest.NewRecorder()
		done := make(chan struct{})
		go func() {
			defer close(done)
			handler.ServeHTTP(first, newRequest("key-5", `{"quantity":1}`))
		}()
		<-entered

		duplicate := httptest.NewRecorder()
		handler.ServeHTTP(duplicate, newRequest("key-5", `{"quantity":1}`))
		close(proceed)
		<-done

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusConflict, duplicate.Code)
		assert.Contains(t, duplicate.Body.String(), model.ErrCodeRequestInProgress)
		assert.Contains(t, duplicate.Body.String(), `"retryable":true`)

		retry := httptest.NewRecorder()
		handler.ServeHTTP(retry, newRequest("key-5", `{"quantity":1}`))
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, http.StatusCreated, retry.Code)
		assert.Equal(t, first.Body.String(), retry.Body.String())
		assert.Equal(t, "true", retry.Header().Get("Idempotent-Replayed"))
	})

	t.Run("Server error releases the key for a retry", func(t *testing.T) {
		store := newMemStore()
		calls := 0
		handler := Idempotency(idempotency.NewReplayer(store, time.Hour), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))

		failed := httptest.NewRecorder()
		handler.ServeHTTP(failed, newRequest("key-6", `{}`))
		assert.Equal(t, http.StatusServiceUnavailable, failed.Code)
		assert.Empty(t, store.data)

		retry := httptest.NewRecorder()
		handler.ServeHTTP(retry, newRequest("key-6", `{}`))
		assert.Equal(t, 2, calls)
		assert.Equal(t, http.StatusCreated, retry.Code)
	})

	t.Run("Panicking handler releases the key", func(t *testing.T) {
		store := newMemStore()
		handler := Idempotency(idempotency.NewReplayer(store, time.Hour), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		assert.Panics(t, func() {
			handler.ServeHTTP(httptest.NewRecorder(), newRequest("key-7", `{}`))
		})
		assert.Empty(t, store.data)
	})

	t.Run("Nil replayer passes through", func(t *testing.T) {
		calls := 0
		handler := Idempotency(nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusCreated)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest("key-4", `{}`))

		require.Equal(t, 1, calls)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}
