package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	err     error
	closed  bool
	release chan struct{}
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.release != nil {
		<-w.release
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaPublisher_PublishAndFlush(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, 8, zerolog.Nop())

	orderID := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.Publish(context.Background(),
		New(TypeOrderCreated, orderID, "ORD1", "pending", "customer", at),
		New(TypeOrderCancelled, orderID, "ORD1", "cancelled", "customer", at),
	)
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 2)
	assert.True(t, w.closed)
	assert.Equal(t, orderID.String(), string(w.msgs[0].Key))
	assert.Equal(t, "event-type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, TypeOrderCreated, string(w.msgs[0].Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &decoded))
	assert.Equal(t, TypeOrderCancelled, decoded.Type)
	assert.Equal(t, "cancelled", decoded.Status)
	assert.Nil(t, decoded.ReturnID)
}

func TestKafkaPublisher_WriteErrorIsSwallowed(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker unavailable")}
	p := newKafkaPublisher(w, 1, zerolog.Nop())

	p.Publish(context.Background(), New(TypeOrderCreated, uuid.New(), "ORD2", "pending", "", time.Now()))

	assert.NoError(t, p.Close())
}

func TestKafkaPublisher_FullQueueDrops(t *testing.T) {
	w := &recordingWriter{release: make(chan struct{})}
	p := newKafkaPublisher(w, 1, zerolog.Nop())

	for i := 0; i < 5; i++ {
		p.Publish(context.Background(), New(TypeOrderCreated, uuid.New(), "ORD", "pending", "", time.Now()))
	}
	close(w.release)
	require.NoError(t, p.Close())

	assert.LessOrEqual(t, len(w.msgs), 2, "one in flight plus one buffered")
}

func TestKafkaPublisher_PublishAfterClose(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, 1, zerolog.Nop())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), New(TypeOrderCreated, uuid.New(), "ORD", "pending", "", time.Now()))
	})
	assert.Empty(t, w.msgs)
}

func TestEvent_WithReturn(t *testing.T) {
	returnID := uuid.New()
	ev := New(TypeReturnRequested, uuid.New(), "ORD3", "requested", "customer", time.Now()).WithReturn(returnID)

	require.NotNil(t, ev.ReturnID)
	assert.Equal(t, returnID, *ev.ReturnID)
	assert.NotEqual(t, uuid.Nil, ev.ID)
}
