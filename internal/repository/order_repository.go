package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_number, customer_id, seller_id, product_id, variant_id, delivery_address_id,
	quantity, unit_price, subtotal, tax_amount, shipping_cost, total_amount,
	commission_amount, seller_payout_amount, payment_method, payment_status, payment_id,
	payment_failure_reason, status, tracking_number, cancellation_reason,
	return_window_end_date, cancelled_at, delivered_at, completed_at, created_at, updated_at
`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	txCfg  TxConfig
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, txCfg TxConfig, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		txCfg:  txCfg,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new bounded database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := beginTx(ctx, r.pool, r.txCfg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, err
	}
	return tx, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.SellerID,
		&o.ProductID,
		&o.VariantID,
		&o.DeliveryAddressID,
		&o.Quantity,
		&o.UnitPrice,
		&o.Subtotal,
		&o.TaxAmount,
		&o.ShippingCost,
		&o.TotalAmount,
		&o.CommissionAmount,
		&o.SellerPayoutAmount,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.PaymentID,
		&o.PaymentFailureReason,
		&o.Status,
		&o.TrackingNumber,
		&o.CancellationReason,
		&o.ReturnWindowEndDate,
		&o.CancelledAt,
		&o.DeliveredAt,
		&o.CompletedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a new order within the provided transaction.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`

	err := withSavepoint(ctx, tx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, query,
			order.ID,
			order.OrderNumber,
			order.CustomerID,
			order.SellerID,
			order.ProductID,
			order.VariantID,
			order.DeliveryAddressID,
			order.Quantity,
			order.UnitPrice,
			order.Subtotal,
			order.TaxAmount,
			order.ShippingCost,
			order.TotalAmount,
			order.CommissionAmount,
			order.SellerPayoutAmount,
			order.PaymentMethod,
			order.PaymentStatus,
			order.PaymentID,
			order.PaymentFailureReason,
			order.Status,
			order.TrackingNumber,
			order.CancellationReason,
			order.ReturnWindowEndDate,
			order.CancelledAt,
			order.DeliveredAt,
			order.CompletedAt,
			order.CreatedAt,
			order.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if constraintViolation(err, pgUniqueViolation, "orders_order_number_key") {
			r.logger.Warn().Str("order_number", order.OrderNumber).Msg("order number collision")
			return ErrDuplicateNumber
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return classify("create order", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

func (r *orderRepository) getOne(ctx context.Context, q pgx.Tx, where string, arg any) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	var row pgx.Row
	if q != nil {
		row = q.QueryRow(ctx, query+` FOR UPDATE`, arg)
	} else {
		row = r.pool.QueryRow(ctx, query, arg)
	}

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Interface("key", arg).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query order")
		return nil, classify("query order", err)
	}
	return order, nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, nil, `id = $1`, id)
}

// GetForUpdate retrieves and row-locks an order inside tx.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, tx, `id = $1`, id)
}

// GetByNumberForUpdate retrieves and row-locks an order by its order number inside tx.
func (r *orderRepository) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, orderNumber string) (*model.Order, error) {
	return r.getOne(ctx, tx, `order_number = $1`, orderNumber)
}

// List returns one page of orders matching filter and the total number of matches.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != uuid.Nil {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.SellerID != uuid.Nil {
		args = append(args, filter.SellerID)
		conds = append(conds, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, classify("count orders", err)
	}

	pageArgs := append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, pageArgs...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, 0, classify("query orders", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0, filter.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, classify("scan order", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, 0, classify("iterate orders", err)
	}

	return orders, total, nil
}

// Update persists the mutable fields of an order.
func (r *orderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2,
		    payment_status = $3,
		    payment_id = $4,
		    payment_failure_reason = $5,
		    tracking_number = $6,
		    cancellation_reason = $7,
		    cancelled_at = $8,
		    delivered_at = $9,
		    completed_at = $10,
		    updated_at = $11
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.Status,
		order.PaymentStatus,
		order.PaymentID,
		order.PaymentFailureReason,
		order.TrackingNumber,
		order.CancellationReason,
		order.CancelledAt,
		order.DeliveredAt,
		order.CompletedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return classify("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Msg("order updated")

	return nil
}

// AppendHistory appends an audit row for an order transition.
func (r *orderRepository) AppendHistory(ctx context.Context, tx pgx.Tx, entry *model.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (id, order_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query, entry.ID, entry.OrderID, entry.Status, entry.Notes, entry.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", entry.OrderID.String()).
			Str("status", string(entry.Status)).
			Msg("failed to append order history")
		return classify("append order history", err)
	}

	return nil
}

// ListHistory returns the audit trail of an order, oldest first.
func (r *orderRepository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	query := `
		SELECT id, order_id, status, notes, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query order history")
		return nil, classify("query order history", err)
	}
	defer rows.Close()

	history := make([]model.OrderStatusHistory, 0)
	for rows.Next() {
		var h model.OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Notes, &h.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order history row")
			return nil, classify("scan order history", err)
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate order history", err)
	}

	return history, nil
}

// ListCompletable returns delivered orders whose return window ended before now.
func (r *orderRepository) ListCompletable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM orders
		WHERE status = $1 AND return_window_end_date < $2
		ORDER BY return_window_end_date
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, model.OrderStatusDelivered, now, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query completable orders")
		return nil, classify("query completable orders", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, classify("collect completable orders", err)
	}
	return ids, nil
}
