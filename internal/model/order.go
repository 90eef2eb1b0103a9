package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnWindow is how long after creation an order stays eligible for a return or exchange.
const ReturnWindow = 14 * 24 * time.Hour

// SellerPayoutCycle is the default settlement cycle for seller payouts. It is a separate policy
// from ReturnWindow and the two must not be derived from each other.
const SellerPayoutCycle = 7 * 24 * time.Hour

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPaymentPending  OrderStatus = "payment_pending"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusInTransit       OrderStatus = "in_transit"
	OrderStatusOutForDelivery  OrderStatus = "out_for_delivery"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturned        OrderStatus = "returned"
)

// OrderStatuses lists every known order status.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaymentPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusInTransit,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusReturnRequested,
	OrderStatusReturned,
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no forward transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusCompleted || s == OrderStatusReturned
}

// PaymentStatus tracks the payment side of an order.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// Order is a single-variant purchase with its pricing frozen at creation time.
type Order struct {
	ID                   uuid.UUID       `json:"id"`
	OrderNumber          string          `json:"orderNumber"`
	CustomerID           uuid.UUID       `json:"customerId"`
	SellerID             uuid.UUID       `json:"sellerId"`
	ProductID            uuid.UUID       `json:"productId"`
	VariantID            uuid.UUID       `json:"variantId"`
	DeliveryAddressID    uuid.UUID       `json:"deliveryAddressId"`
	Quantity             int             `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unitPrice"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	TaxAmount            decimal.Decimal `json:"taxAmount"`
	ShippingCost         decimal.Decimal `json:"shippingCost"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	CommissionAmount     decimal.Decimal `json:"commissionAmount"`
	SellerPayoutAmount   decimal.Decimal `json:"sellerPayoutAmount"`
	PaymentMethod        PaymentMethod   `json:"paymentMethod"`
	PaymentStatus        PaymentStatus   `json:"paymentStatus"`
	PaymentID            *string         `json:"paymentId,omitempty"`
	PaymentFailureReason *string         `json:"paymentFailureReason,omitempty"`
	Status               OrderStatus     `json:"status"`
	TrackingNumber       *string         `json:"trackingNumber,omitempty"`
	CancellationReason   *string         `json:"cancellationReason,omitempty"`
	ReturnWindowEndDate  time.Time       `json:"returnWindowEndDate"`
	CancelledAt          *time.Time      `json:"cancelledAt,omitempty"`
	DeliveredAt          *time.Time      `json:"deliveredAt,omitempty"`
	CompletedAt          *time.Time      `json:"completedAt,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// OrderStatusHistory is one append-only audit row for an order transition.
type OrderStatusHistory struct {
	ID        uuid.UUID   `json:"id"`
	OrderID   uuid.UUID   `json:"orderId"`
	Status    OrderStatus `json:"status"`
	Notes     string      `json:"notes"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CreateOrderRequest represents the request payload for creating an order.
type CreateOrderRequest struct {
	VariantID         uuid.UUID     `json:"variantId" validate:"required"`
	Quantity          int           `json:"quantity" validate:"min=1,max=10"`
	DeliveryAddressID uuid.UUID     `json:"deliveryAddressId" validate:"required"`
	PaymentMethod     PaymentMethod `json:"paymentMethod" validate:"required,oneof=cod online"`
}

// CancelOrderRequest represents the request payload for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// OrderFilter narrows an order listing. Zero-valued IDs are ignored.
type OrderFilter struct {
	CustomerID uuid.UUID
	SellerID   uuid.UUID
	Status     OrderStatus
	Limit      int
	Offset     int
}
