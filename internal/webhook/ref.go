package webhook

import (
	"strings"

	"github.com/google/uuid"
)

// OrderRef points at an order either by its id or by its human-readable number.
// Providers echo back whichever one was attached when the payment or shipment was created.
type OrderRef struct {
	ID     uuid.UUID
	Number string
}

// ParseOrderRef interprets s as an order id when it parses as a UUID and as an order number otherwise.
func ParseOrderRef(s string) OrderRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return OrderRef{}
	}
	if id, err := uuid.Parse(s); err == nil {
		return OrderRef{ID: id}
	}
	return OrderRef{Number: strings.ToUpper(s)}
}

// IsZero reports whether the reference is empty.
func (r OrderRef) IsZero() bool {
	return r.ID == uuid.Nil && r.Number == ""
}

func (r OrderRef) String() string {
	if r.ID != uuid.Nil {
		return r.ID.String()
	}
	return r.Number
}
