package repository

import (
	"context"
	"time"

	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VariantRepository defines data access for product variants and their stock counters.
type VariantRepository interface {
	// GetForOrder reads a variant joined with its product's seller and pricing inside tx.
	// Returns nil when the variant does not exist.
	GetForOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.ProductVariant, error)

	// GetByID reads a variant outside a transaction. Returns nil when the variant does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error)

	// ListByProduct lists all variants of a product ordered by size.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error)

	// Reserve moves quantity units from available to reserved if enough are available at write time.
	// Returns false when the conditional update matched no row.
	Reserve(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) (bool, error)

	// StockAvailable re-reads the available counter inside tx.
	StockAvailable(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error)

	// Release moves quantity units from reserved back to available.
	Release(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error

	// Fulfil removes quantity delivered units from reserved.
	Fulfil(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error
}

// AddressRepository defines data access for delivery addresses.
type AddressRepository interface {
	// GetForCustomer returns the address only if it belongs to customerID, nil otherwise.
	GetForCustomer(ctx context.Context, id, customerID uuid.UUID) (*model.Address, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new bounded database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order within the provided transaction.
	// Returns ErrDuplicateNumber when the order number is already taken; tx remains usable.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetByID retrieves an order by its ID. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForUpdate retrieves and row-locks an order inside tx. Returns nil when not found.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// GetByNumberForUpdate retrieves and row-locks an order by its order number. Returns nil when not found.
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, orderNumber string) (*model.Order, error)

	// List returns one page of orders matching filter and the total number of matches.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)

	// Update persists the mutable status, payment, shipping and timestamp fields of an order.
	Update(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// AppendHistory appends an audit row for an order transition.
	AppendHistory(ctx context.Context, tx pgx.Tx, entry *model.OrderStatusHistory) error

	// ListHistory returns the audit trail of an order, oldest first.
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error)

	// ListCompletable returns delivered orders whose return window ended before now.
	ListCompletable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// ReturnRepository defines data access for return and exchange requests.
type ReturnRepository interface {
	// Create inserts a return within the provided transaction.
	// Returns ErrDuplicateNumber on a return number collision and model.ErrActiveReturnExists
	// when another active return exists for the order.
	Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error

	// HasActive reports whether the order has a return that is neither cancelled nor rejected.
	HasActive(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (bool, error)

	// GetByID retrieves a return by its ID. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Return, error)

	// GetForUpdate retrieves and row-locks a return inside tx. Returns nil when not found.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Return, error)

	// List returns one page of returns matching filter and the total number of matches.
	List(ctx context.Context, filter model.ReturnFilter) ([]model.Return, int, error)

	// Update persists the status and refund fields of a return.
	Update(ctx context.Context, tx pgx.Tx, ret *model.Return) error
}
