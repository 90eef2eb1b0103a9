package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnType distinguishes refunds from size/colour exchanges.
type ReturnType string

const (
	ReturnTypeReturn   ReturnType = "return"
	ReturnTypeExchange ReturnType = "exchange"
)

// ReturnReason is the fixed set of reasons a customer may give.
type ReturnReason string

const (
	ReturnReasonWrongSize      ReturnReason = "wrong_size"
	ReturnReasonDamaged        ReturnReason = "damaged"
	ReturnReasonNotAsDescribed ReturnReason = "not_as_described"
	ReturnReasonChangedMind    ReturnReason = "changed_mind"
	ReturnReasonQualityIssue   ReturnReason = "quality_issue"
	ReturnReasonWrongItem      ReturnReason = "wrong_item"
	ReturnReasonOther          ReturnReason = "other"
)

// ReturnStatus is a state of the return workflow.
type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusCancelled ReturnStatus = "cancelled"
	ReturnStatusCompleted ReturnStatus = "completed"
)

// ReturnStatuses lists every known return status.
var ReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusCancelled,
	ReturnStatusCompleted,
}

// IsValid reports whether s is a known return status.
func (s ReturnStatus) IsValid() bool {
	for _, known := range ReturnStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsActive reports whether the return still blocks another return for the same order.
func (s ReturnStatus) IsActive() bool {
	return s != ReturnStatusCancelled && s != ReturnStatusRejected
}

// RefundStatus tracks the payment provider side of a return.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
)

// Return is a return or exchange request spawned from a delivered order.
type Return struct {
	ID                uuid.UUID           `json:"id"`
	ReturnNumber      string              `json:"returnNumber"`
	OrderID           uuid.UUID           `json:"orderId"`
	CustomerID        uuid.UUID           `json:"customerId"`
	Type              ReturnType          `json:"type"`
	Reason            ReturnReason        `json:"reason"`
	Description       *string             `json:"description,omitempty"`
	Status            ReturnStatus        `json:"status"`
	RefundAmount      decimal.Decimal     `json:"refundAmount"`
	RefundStatus      RefundStatus        `json:"refundStatus"`
	RefundID          *string             `json:"refundId,omitempty"`
	RefundedAmount    decimal.NullDecimal `json:"refundedAmount"`
	ExchangeVariantID *uuid.UUID          `json:"exchangeVariantId,omitempty"`
	CancelledAt       *time.Time          `json:"cancelledAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// CreateReturnRequest represents the request payload for creating a return.
type CreateReturnRequest struct {
	OrderID           uuid.UUID    `json:"orderId" validate:"required"`
	Type              ReturnType   `json:"type" validate:"required,oneof=return exchange"`
	Reason            ReturnReason `json:"reason" validate:"required,oneof=wrong_size damaged not_as_described changed_mind quality_issue wrong_item other"`
	Description       *string      `json:"description,omitempty" validate:"omitempty,max=1000"`
	ExchangeVariantID *uuid.UUID   `json:"exchangeVariantId,omitempty" validate:"required_if=Type exchange"`
}

// ReturnFilter narrows a return listing. Zero-valued IDs are ignored.
type ReturnFilter struct {
	CustomerID uuid.UUID
	Status     ReturnStatus
	Limit      int
	Offset     int
}
