package service

import (
	"context"
	"fmt"
	"time"

	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/webhook"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// OrderService defines operations for order placement and the customer side of the order lifecycle.
type OrderService interface {
	// CreateOrder reserves stock and persists an order with frozen pricing in one transaction.
	CreateOrder(ctx context.Context, principal model.Principal, req *model.CreateOrderRequest) (*model.Order, error)

	// GetOrder retrieves an order visible to the principal.
	GetOrder(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error)

	// ListOrders returns one page of the orders visible to the principal, newest first.
	ListOrders(ctx context.Context, principal model.Principal, params model.ListParams) (*model.Page[model.Order], error)

	// CancelOrder cancels an order that has not shipped and releases its reservation.
	CancelOrder(ctx context.Context, principal model.Principal, id uuid.UUID, req *model.CancelOrderRequest) (*model.Order, error)

	// History returns the status audit trail of an order visible to the principal.
	History(ctx context.Context, principal model.Principal, id uuid.UUID) ([]model.OrderStatusHistory, error)
}

// ReturnService defines operations for the return and exchange workflow.
type ReturnService interface {
	// CreateReturn opens a return or exchange against a delivered order inside its return window.
	CreateReturn(ctx context.Context, principal model.Principal, req *model.CreateReturnRequest) (*model.Return, error)

	// GetReturn retrieves a return visible to the principal.
	GetReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error)

	// ListReturns returns one page of the returns visible to the principal, newest first.
	ListReturns(ctx context.Context, principal model.Principal, params model.ListParams) (*model.Page[model.Return], error)

	// CancelReturn withdraws a return that has not been decided and restores the order to delivered.
	CancelReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error)

	// ApproveReturn records an admin approval.
	ApproveReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error)

	// RejectReturn records an admin rejection and restores the order to delivered.
	RejectReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error)
}

// WebhookService applies authenticated provider events to orders and returns.
type WebhookService interface {
	// HandlePayment applies a payment gateway event. Only infrastructure failures return an error.
	HandlePayment(ctx context.Context, event webhook.PaymentEvent) (*WebhookResult, error)

	// HandleShipping applies a courier status event. Only infrastructure failures return an error.
	HandleShipping(ctx context.Context, event webhook.ShippingEvent) (*WebhookResult, error)
}

// Webhook outcomes reported back to providers and recorded in metrics.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
)

// WebhookResult describes what an authenticated provider event did.
type WebhookResult struct {
	Outcome  string     `json:"outcome"`
	OrderID  *uuid.UUID `json:"orderId,omitempty"`
	ReturnID *uuid.UUID `json:"returnId,omitempty"`
	Status   string     `json:"status,omitempty"`
}

// CatalogService defines read operations on purchasable variants.
type CatalogService interface {
	// ListVariants lists the variants of a product with their stock counters.
	ListVariants(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error)
}

// Clock returns the current time. Services take one so time-dependent rules can be tested.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// maxNumberAttempts bounds how many order or return numbers are tried on a collision.
const maxNumberAttempts = 3

type txBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// inTx runs fn inside a bounded transaction, committing when fn succeeds and rolling back otherwise.
func inTx(ctx context.Context, db txBeginner, logger zerolog.Logger, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func historyEntry(orderID uuid.UUID, status model.OrderStatus, notes string, at time.Time) *model.OrderStatusHistory {
	return &model.OrderStatusHistory{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		Notes:     notes,
		CreatedAt: at,
	}
}

// canSeeOrder applies the visibility rule shared by order reads: customers see their own orders,
// sellers the orders of their products and admins everything.
func canSeeOrder(p model.Principal, o *model.Order) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCustomer:
		return o.CustomerID == p.ID
	case model.RoleSeller:
		return o.SellerID == p.ID
	}
	return false
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
