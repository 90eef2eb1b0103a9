package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"clothing-marketplace/internal/lifecycle"
	"clothing-marketplace/internal/model"
)

// shippingStatuses maps courier status strings, lower-cased with single spaces, to order events.
var shippingStatuses = map[string]lifecycle.OrderEvent{
	"picked up":        lifecycle.EventShipmentPickedUp,
	"in transit":       lifecycle.EventShipmentInTransit,
	"out for delivery": lifecycle.EventShipmentOutForDelivery,
	"delivered":        lifecycle.EventShipmentDelivered,
	"rto initiated":    lifecycle.EventShipmentRTO,
	"rto delivered":    lifecycle.EventShipmentRTO,
}

var deliveredDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ShippingEvent is a decoded courier status callback.
type ShippingEvent struct {
	Order         OrderRef
	AWB           string
	CurrentStatus string
	// Event is empty when the status is not one this service tracks.
	Event       lifecycle.OrderEvent
	DeliveredAt *time.Time
}

// Known reports whether the courier status maps to an order event.
func (e ShippingEvent) Known() bool {
	return e.Event != ""
}

type shippingPayload struct {
	OrderID       json.RawMessage `json:"order_id"`
	AWB           string          `json:"awb"`
	CurrentStatus string          `json:"current_status"`
	DeliveredDate string          `json:"delivered_date"`
}

// MapShippingStatus resolves a free-text courier status case-insensitively.
func MapShippingStatus(status string) (lifecycle.OrderEvent, bool) {
	normalized := strings.ToLower(status)
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	normalized = strings.Join(strings.Fields(normalized), " ")
	event, ok := shippingStatuses[normalized]
	return event, ok
}

// DecodeShippingEvent parses a raw courier body. The order id may be sent as a string or a number.
func DecodeShippingEvent(raw []byte) (ShippingEvent, error) {
	var p shippingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ShippingEvent{}, model.ErrInvalidJSON.Wrap(err)
	}

	event, _ := MapShippingStatus(p.CurrentStatus)

	return ShippingEvent{
		Order:         ParseOrderRef(rawString(p.OrderID)),
		AWB:           strings.TrimSpace(p.AWB),
		CurrentStatus: p.CurrentStatus,
		Event:         event,
		DeliveredAt:   parseDeliveredDate(p.DeliveredDate),
	}, nil
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func parseDeliveredDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range deliveredDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
