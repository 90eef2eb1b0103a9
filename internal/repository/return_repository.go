package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const returnColumns = `
	id, return_number, order_id, customer_id, type, reason, description, status,
	refund_amount, refund_status, refund_id, refunded_amount, exchange_variant_id,
	cancelled_at, created_at, updated_at
`

// returnRepository implements the ReturnRepository interface using PostgreSQL.
type returnRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReturnRepository creates a new PostgreSQL-backed return repository.
func NewReturnRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReturnRepository {
	return &returnRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "return").Logger(),
	}
}

func scanReturn(row pgx.Row) (*model.Return, error) {
	var ret model.Return
	err := row.Scan(
		&ret.ID,
		&ret.ReturnNumber,
		&ret.OrderID,
		&ret.CustomerID,
		&ret.Type,
		&ret.Reason,
		&ret.Description,
		&ret.Status,
		&ret.RefundAmount,
		&ret.RefundStatus,
		&ret.RefundID,
		&ret.RefundedAmount,
		&ret.ExchangeVariantID,
		&ret.CancelledAt,
		&ret.CreatedAt,
		&ret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// Create inserts a return within the provided transaction.
func (r *returnRepository) Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	query := `INSERT INTO returns (` + returnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	err := withSavepoint(ctx, tx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, query,
			ret.ID,
			ret.ReturnNumber,
			ret.OrderID,
			ret.CustomerID,
			ret.Type,
			ret.Reason,
			ret.Description,
			ret.Status,
			ret.RefundAmount,
			ret.RefundStatus,
			ret.RefundID,
			ret.RefundedAmount,
			ret.ExchangeVariantID,
			ret.CancelledAt,
			ret.CreatedAt,
			ret.UpdatedAt,
		)
		return err
	})
	if err != nil {
		switch {
		case constraintViolation(err, pgUniqueViolation, "returns_return_number_key"):
			r.logger.Warn().Str("return_number", ret.ReturnNumber).Msg("return number collision")
			return ErrDuplicateNumber
		case constraintViolation(err, pgUniqueViolation, "returns_one_active_per_order"):
			r.logger.Warn().Str("order_id", ret.OrderID.String()).Msg("active return already exists")
			return model.ErrActiveReturnExists
		}
		r.logger.Error().Err(err).Str("return_id", ret.ID.String()).Msg("failed to create return")
		return classify("create return", err)
	}

	r.logger.Debug().
		Str("return_id", ret.ID.String()).
		Str("order_id", ret.OrderID.String()).
		Msg("return created successfully")

	return nil
}

// HasActive reports whether the order has a return that is neither cancelled nor rejected.
func (r *returnRepository) HasActive(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM returns
			WHERE order_id = $1 AND status NOT IN ($2, $3)
		)
	`

	var exists bool
	err := tx.QueryRow(ctx, query, orderID, model.ReturnStatusCancelled, model.ReturnStatusRejected).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to check active returns")
		return false, classify("check active returns", err)
	}
	return exists, nil
}

func (r *returnRepository) get(ctx context.Context, row pgx.Row, id uuid.UUID) (*model.Return, error) {
	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("return_id", id.String()).Msg("return not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to query return")
		return nil, classify("query return", err)
	}
	return ret, nil
}

// GetByID retrieves a return by its ID.
func (r *returnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1`
	return r.get(ctx, r.pool.QueryRow(ctx, query, id), id)
}

// GetForUpdate retrieves and row-locks a return inside tx.
func (r *returnRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1 FOR UPDATE`
	return r.get(ctx, tx.QueryRow(ctx, query, id), id)
}

// List returns one page of returns matching filter and the total number of matches.
func (r *returnRepository) List(ctx context.Context, filter model.ReturnFilter) ([]model.Return, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != uuid.Nil {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM returns`+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count returns")
		return nil, 0, classify("count returns", err)
	}

	pageArgs := append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM returns%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		returnColumns, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, pageArgs...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query returns")
		return nil, 0, classify("query returns", err)
	}
	defer rows.Close()

	returns := make([]model.Return, 0, filter.Limit)
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan return row")
			return nil, 0, classify("scan return", err)
		}
		returns = append(returns, *ret)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, classify("iterate returns", err)
	}

	return returns, total, nil
}

// Update persists the status and refund fields of a return.
func (r *returnRepository) Update(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	query := `
		UPDATE returns
		SET status = $2,
		    refund_status = $3,
		    refund_id = $4,
		    refunded_amount = $5,
		    cancelled_at = $6,
		    updated_at = $7
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		ret.ID,
		ret.Status,
		ret.RefundStatus,
		ret.RefundID,
		ret.RefundedAmount,
		ret.CancelledAt,
		ret.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("return_id", ret.ID.String()).Msg("failed to update return")
		return classify("update return", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReturnNotFound
	}

	r.logger.Debug().
		Str("return_id", ret.ID.String()).
		Str("status", string(ret.Status)).
		Msg("return updated")

	return nil
}
