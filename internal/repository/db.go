package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"clothing-marketplace/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes the repositories react to.
const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgQueryCanceled    = "57014"
	pgLockNotAvailable = "55P03"
)

// ErrDuplicateNumber is returned when a generated order or return number collides with an existing one.
var ErrDuplicateNumber = errors.New("generated number already exists")

// TxConfig bounds how long a transaction may wait for a connection and how long its statements
// may run or wait on row locks.
type TxConfig struct {
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// DefaultTxConfig returns sensible default transaction bounds.
func DefaultTxConfig() TxConfig {
	return TxConfig{
		AcquireTimeout:   5 * time.Second,
		StatementTimeout: 30 * time.Second,
		LockTimeout:      10 * time.Second,
	}
}

// beginTx acquires a connection within the acquire timeout and starts a transaction whose
// statement and lock timeouts are scoped to the transaction.
func beginTx(ctx context.Context, pool *pgxpool.Pool, cfg TxConfig) (pgx.Tx, error) {
	acquireCtx := ctx
	if cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, cfg.AcquireTimeout)
		defer cancel()
	}

	tx, err := pool.Begin(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, model.ErrServiceUnavailable.Wrap(fmt.Errorf("connection acquire timed out: %w", err))
		}
		return nil, classify("begin transaction", err)
	}

	if cfg.StatementTimeout > 0 || cfg.LockTimeout > 0 {
		_, err = tx.Exec(ctx,
			`SELECT set_config('statement_timeout', $1, true), set_config('lock_timeout', $2, true)`,
			millis(cfg.StatementTimeout), millis(cfg.LockTimeout),
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, classify("configure transaction timeouts", err)
		}
	}

	return tx, nil
}

func millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// classify wraps a database error, turning timeouts into a retryable domain error.
func classify(op string, err error) error {
	if isTimeout(err) {
		return model.ErrServiceUnavailable.Wrap(fmt.Errorf("failed to %s: %w", op, err))
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgQueryCanceled || pgErr.Code == pgLockNotAvailable
	}
	return false
}

// constraintViolation reports whether err is a violation of the given code on the named constraint.
// An empty constraint matches any constraint.
func constraintViolation(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code && (constraint == "" || pgErr.ConstraintName == constraint)
}

// withSavepoint runs fn inside a savepoint so that a failed statement does not abort the
// enclosing transaction.
func withSavepoint(ctx context.Context, tx pgx.Tx, fn func(sp pgx.Tx) error) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return classify("create savepoint", err)
	}

	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := sp.Commit(ctx); err != nil {
		return classify("release savepoint", err)
	}
	return nil
}
