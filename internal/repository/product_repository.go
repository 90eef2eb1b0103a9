package repository

import (
	"context"
	"errors"

	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const variantColumns = `
	v.id, v.product_id, p.seller_id, p.name, v.size, v.sku,
	v.stock_available, v.stock_reserved, v.is_available,
	p.unit_price, p.tax_rate, p.shipping_cost, p.commission_rate, v.updated_at
`

// variantRepository implements the VariantRepository interface using PostgreSQL.
type variantRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(pool *pgxpool.Pool, logger zerolog.Logger) VariantRepository {
	return &variantRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "variant").Logger(),
	}
}

func scanVariant(row pgx.Row) (*model.ProductVariant, error) {
	var v model.ProductVariant
	err := row.Scan(
		&v.ID,
		&v.ProductID,
		&v.SellerID,
		&v.ProductName,
		&v.Size,
		&v.SKU,
		&v.StockAvailable,
		&v.StockReserved,
		&v.IsAvailable,
		&v.UnitPrice,
		&v.TaxRate,
		&v.ShippingCost,
		&v.CommissionRate,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetForOrder reads a variant joined with its product inside tx.
func (r *variantRepository) GetForOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.ProductVariant, error) {
	query := `SELECT ` + variantColumns + `
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1
	`

	v, err := scanVariant(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("variant_id", id.String()).Msg("variant not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("variant_id", id.String()).Msg("failed to query variant")
		return nil, classify("query variant", err)
	}

	return v, nil
}

// GetByID reads a variant outside a transaction.
func (r *variantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	query := `SELECT ` + variantColumns + `
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1
	`

	v, err := scanVariant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("variant_id", id.String()).Msg("failed to query variant")
		return nil, classify("query variant", err)
	}

	return v, nil
}

// ListByProduct lists all variants of a product.
func (r *variantRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error) {
	query := `SELECT ` + variantColumns + `
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.product_id = $1
		ORDER BY v.size, v.sku
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID.String()).Msg("failed to query variants")
		return nil, classify("query variants", err)
	}
	defer rows.Close()

	variants := make([]model.ProductVariant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return nil, classify("scan variant", err)
		}
		variants = append(variants, *v)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating variant rows")
		return nil, classify("iterate variants", err)
	}

	return variants, nil
}

// Reserve moves quantity units from available to reserved, conditioned on availability at write time.
func (r *variantRepository) Reserve(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) (bool, error) {
	query := `
		UPDATE product_variants
		SET stock_available = stock_available - $2,
		    stock_reserved = stock_reserved + $2,
		    updated_at = NOW()
		WHERE id = $1 AND stock_available >= $2
	`

	tag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		if constraintViolation(err, pgCheckViolation, "product_variants_stock_available_check") {
			return false, nil
		}
		r.logger.Error().Err(err).Str("variant_id", id.String()).Int("quantity", quantity).Msg("failed to reserve stock")
		return false, classify("reserve stock", err)
	}

	reserved := tag.RowsAffected() == 1
	r.logger.Debug().
		Str("variant_id", id.String()).
		Int("quantity", quantity).
		Bool("reserved", reserved).
		Msg("stock reservation attempted")

	return reserved, nil
}

// StockAvailable re-reads the available counter inside tx.
func (r *variantRepository) StockAvailable(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	var available int
	err := tx.QueryRow(ctx, `SELECT stock_available FROM product_variants WHERE id = $1`, id).Scan(&available)
	if err != nil {
		r.logger.Error().Err(err).Str("variant_id", id.String()).Msg("failed to read available stock")
		return 0, classify("read available stock", err)
	}
	return available, nil
}

// Release moves quantity units from reserved back to available.
func (r *variantRepository) Release(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error {
	query := `
		UPDATE product_variants
		SET stock_available = stock_available + $2,
		    stock_reserved = GREATEST(stock_reserved - $2, 0),
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id, quantity); err != nil {
		r.logger.Error().Err(err).Str("variant_id", id.String()).Int("quantity", quantity).Msg("failed to release stock")
		return classify("release stock", err)
	}

	r.logger.Debug().Str("variant_id", id.String()).Int("quantity", quantity).Msg("stock released")
	return nil
}

// Fulfil removes delivered units from the reserved counter.
func (r *variantRepository) Fulfil(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error {
	query := `
		UPDATE product_variants
		SET stock_reserved = GREATEST(stock_reserved - $2, 0),
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id, quantity); err != nil {
		r.logger.Error().Err(err).Str("variant_id", id.String()).Int("quantity", quantity).Msg("failed to fulfil stock")
		return classify("fulfil stock", err)
	}

	r.logger.Debug().Str("variant_id", id.String()).Int("quantity", quantity).Msg("reserved stock fulfilled")
	return nil
}

// addressRepository implements the AddressRepository interface using PostgreSQL.
type addressRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool *pgxpool.Pool, logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

// GetForCustomer returns the address only if it belongs to customerID.
func (r *addressRepository) GetForCustomer(ctx context.Context, id, customerID uuid.UUID) (*model.Address, error) {
	query := `
		SELECT id, customer_id, line1, city, state, pincode
		FROM addresses
		WHERE id = $1 AND customer_id = $2
	`

	var a model.Address
	err := r.pool.QueryRow(ctx, query, id, customerID).Scan(
		&a.ID,
		&a.CustomerID,
		&a.Line1,
		&a.City,
		&a.State,
		&a.Pincode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("address_id", id.String()).Msg("address not found for customer")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("address_id", id.String()).Msg("failed to query address")
		return nil, classify("query address", err)
	}

	return &a, nil
}
