// Package events publishes order and return domain events to Kafka after their transaction commits.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the order core.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderCancelled     = "order.cancelled"
	TypeOrderStatusChanged = "order.status_changed"
	TypeReturnRequested    = "return.requested"
	TypeReturnCancelled    = "return.cancelled"
	TypeReturnDecided      = "return.decided"
	TypeReturnRefunded     = "return.refunded"
)

// Event is the envelope written to the topic. Messages are keyed by order id so every
// event of one order lands on the same partition.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	OccurredAt  time.Time  `json:"occurredAt"`
	OrderID     uuid.UUID  `json:"orderId"`
	OrderNumber string     `json:"orderNumber,omitempty"`
	ReturnID    *uuid.UUID `json:"returnId,omitempty"`
	Status      string     `json:"status"`
	Source      string     `json:"source,omitempty"`
}

// New builds an event with a fresh id.
func New(eventType string, orderID uuid.UUID, orderNumber, status, source string, at time.Time) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		OccurredAt:  at.UTC(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Status:      status,
		Source:      source,
	}
}

// WithReturn attaches the return the event is about.
func (e Event) WithReturn(id uuid.UUID) Event {
	e.ReturnID = &id
	return e
}

// Publisher delivers events on a best-effort basis. Publish never blocks on the broker and
// never fails the caller's operation.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
	Close() error
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, ...Event) {}
func (Noop) Close() error                      { return nil }
