package service

import (
	"context"
	"fmt"
	"time"

	"clothing-marketplace/internal/events"
	"clothing-marketplace/internal/lifecycle"
	"clothing-marketplace/internal/metrics"
	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	sourceCompletionSweep = "completion_sweep"

	// defaultCompletionBatch caps how many orders one sweep pass moves when no batch size is configured.
	defaultCompletionBatch = 200
)

// CompletionSweeper moves delivered orders whose return window has ended to completed.
type CompletionSweeper struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	clock     Clock
	batch     int
	logger    zerolog.Logger
}

// NewCompletionSweeper creates a new completion sweeper.
func NewCompletionSweeper(
	orderRepo repository.OrderRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	clock Clock,
	batch int,
	logger zerolog.Logger,
) *CompletionSweeper {
	if batch <= 0 {
		batch = defaultCompletionBatch
	}
	return &CompletionSweeper{
		orderRepo: orderRepo,
		publisher: publisher,
		metrics:   m,
		clock:     clock,
		batch:     batch,
		logger:    logger.With().Str("component", "completion_sweeper").Logger(),
	}
}

// Run sweeps every interval until ctx is cancelled.
func (c *CompletionSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", interval).Msg("completion sweeper started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("completion sweeper stopped")
			return
		case <-ticker.C:
			if _, err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("completion sweep failed")
			}
		}
	}
}

// RunOnce completes one batch of eligible orders and returns how many moved.
// An order that fails to complete is logged and left for the next pass.
func (c *CompletionSweeper) RunOnce(ctx context.Context) (int, error) {
	ids, err := c.orderRepo.ListCompletable(ctx, c.clock.now(), c.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list completable orders: %w", err)
	}

	var completed, failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		ok, err := c.complete(ctx, id)
		switch {
		case err != nil:
			failed++
			c.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to complete order")
		case ok:
			completed++
		}
	}

	c.metrics.Sweep("completed", completed)
	c.metrics.Sweep("failed", failed)

	if completed > 0 || failed > 0 {
		c.logger.Info().
			Int("candidates", len(ids)).
			Int("completed", completed).
			Int("failed", failed).
			Msg("completion sweep finished")
	}

	return completed, nil
}

// complete re-checks the order under lock, since a return may have been opened after listing.
func (c *CompletionSweeper) complete(ctx context.Context, id uuid.UUID) (bool, error) {
	var order *model.Order
	err := inTx(ctx, c.orderRepo, c.logger, func(tx pgx.Tx) error {
		o, err := c.orderRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if o == nil {
			return nil
		}

		now := c.clock.now()
		if !now.After(o.ReturnWindowEndDate) {
			return nil
		}

		next, outcome := lifecycle.NextOrderStatus(o.Status, lifecycle.EventReturnWindowClosed)
		if outcome != lifecycle.Apply {
			return nil
		}

		o.Status = next
		o.CompletedAt = timePtr(now)
		o.UpdatedAt = now
		if err := c.orderRepo.Update(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if err := c.orderRepo.AppendHistory(ctx, tx, historyEntry(o.ID, o.Status, "Return window closed", now)); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}
		order = o
		return nil
	})
	if err != nil || order == nil {
		return false, err
	}

	c.metrics.OrderTransition(string(order.Status), sourceCompletionSweep)
	c.publisher.Publish(ctx, events.New(events.TypeOrderStatusChanged, order.ID, order.OrderNumber, string(order.Status), sourceCompletionSweep, order.UpdatedAt))
	return true, nil
}
