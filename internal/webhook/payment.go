package webhook

import (
	"encoding/json"
	"strings"

	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment gateway event names.
const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventRefundCreated     = "refund.created"
)

// PaymentEvent is one of PaymentAuthorized, PaymentCaptured, PaymentFailed, RefundCreated or UnknownEvent.
type PaymentEvent interface {
	EventName() string
	isPaymentEvent()
}

// PaymentAuthorized reports funds held but not yet captured.
type PaymentAuthorized struct {
	PaymentID string
	Amount    decimal.Decimal
	Order     OrderRef
}

// PaymentCaptured reports a successful capture.
type PaymentCaptured struct {
	PaymentID string
	Amount    decimal.Decimal
	Order     OrderRef
}

// PaymentFailed reports a failed payment attempt.
type PaymentFailed struct {
	PaymentID string
	Amount    decimal.Decimal
	Order     OrderRef
	Reason    string
}

// RefundCreated reports a refund issued against a return.
type RefundCreated struct {
	RefundID string
	Amount   decimal.Decimal
	ReturnID uuid.UUID
}

// UnknownEvent is any event this service does not act on.
type UnknownEvent struct {
	Name string
}

func (PaymentAuthorized) EventName() string { return EventPaymentAuthorized }
func (PaymentCaptured) EventName() string   { return EventPaymentCaptured }
func (PaymentFailed) EventName() string     { return EventPaymentFailed }
func (RefundCreated) EventName() string     { return EventRefundCreated }
func (e UnknownEvent) EventName() string    { return e.Name }

func (PaymentAuthorized) isPaymentEvent() {}
func (PaymentCaptured) isPaymentEvent()   {}
func (PaymentFailed) isPaymentEvent()     {}
func (RefundCreated) isPaymentEvent()     {}
func (UnknownEvent) isPaymentEvent()      {}

type paymentEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	Amount           int64  `json:"amount"`
	ErrorDescription string `json:"error_description"`
	Notes            struct {
		OrderID string `json:"order_id"`
	} `json:"notes"`
}

type refundEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Notes  struct {
		ReturnID string `json:"return_id"`
	} `json:"notes"`
}

// fromMinorUnits converts a paise amount into rupees.
func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// DecodePaymentEvent parses a raw gateway body. Known events missing their entity decode
// as UnknownEvent so they are acknowledged without effect.
func DecodePaymentEvent(raw []byte) (PaymentEvent, error) {
	var env paymentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, model.ErrInvalidJSON.Wrap(err)
	}

	name := strings.TrimSpace(env.Event)
	payment := env.Payload.Payment
	refund := env.Payload.Refund

	switch {
	case name == EventPaymentAuthorized && payment != nil:
		return PaymentAuthorized{
			PaymentID: payment.Entity.ID,
			Amount:    fromMinorUnits(payment.Entity.Amount),
			Order:     ParseOrderRef(payment.Entity.Notes.OrderID),
		}, nil
	case name == EventPaymentCaptured && payment != nil:
		return PaymentCaptured{
			PaymentID: payment.Entity.ID,
			Amount:    fromMinorUnits(payment.Entity.Amount),
			Order:     ParseOrderRef(payment.Entity.Notes.OrderID),
		}, nil
	case name == EventPaymentFailed && payment != nil:
		return PaymentFailed{
			PaymentID: payment.Entity.ID,
			Amount:    fromMinorUnits(payment.Entity.Amount),
			Order:     ParseOrderRef(payment.Entity.Notes.OrderID),
			Reason:    payment.Entity.ErrorDescription,
		}, nil
	case name == EventRefundCreated && refund != nil:
		returnID, _ := uuid.Parse(strings.TrimSpace(refund.Entity.Notes.ReturnID))
		return RefundCreated{
			RefundID: refund.Entity.ID,
			Amount:   fromMinorUnits(refund.Entity.Amount),
			ReturnID: returnID,
		}, nil
	}

	return UnknownEvent{Name: name}, nil
}
