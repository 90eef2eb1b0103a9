package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"clothing-marketplace/internal/events"
	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCompletionSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	publisher := &recordingPublisher{}
	sweeper := NewCompletionSweeper(orders, publisher, nil, fixedClock(testNow), 0, zerolog.Nop())

	expired := &model.Order{
		ID:                  uuid.New(),
		OrderNumber:         "ORDSWEEP001",
		Status:              model.OrderStatusDelivered,
		ReturnWindowEndDate: testNow.Add(-time.Minute),
	}
	// A return was opened between listing and locking.
	raced := &model.Order{
		ID:                  uuid.New(),
		Status:              model.OrderStatusReturnRequested,
		ReturnWindowEndDate: testNow.Add(-time.Minute),
	}
	broken := uuid.New()

	txOK, txRaced, txBroken := new(MockTx), new(MockTx), new(MockTx)

	orders.On("ListCompletable", ctx, testNow, defaultCompletionBatch).Return([]uuid.UUID{expired.ID, raced.ID, broken}, nil)
	orders.On("BeginTx", ctx).Return(txOK, nil).Once()
	orders.On("BeginTx", ctx).Return(txRaced, nil).Once()
	orders.On("BeginTx", ctx).Return(txBroken, nil).Once()

	orders.On("GetForUpdate", ctx, txOK, expired.ID).Return(expired, nil)
	orders.On("Update", ctx, txOK, expired).Return(nil)
	orders.On("AppendHistory", ctx, txOK, mock.MatchedBy(func(h *model.OrderStatusHistory) bool {
		return h.Status == model.OrderStatusCompleted && h.Notes == "Return window closed"
	})).Return(nil)
	txOK.On("Commit", ctx).Return(nil)

	orders.On("GetForUpdate", ctx, txRaced, raced.ID).Return(raced, nil)
	txRaced.On("Commit", ctx).Return(nil)

	orders.On("GetForUpdate", ctx, txBroken, broken).Return(nil, errors.New("lock timeout"))
	txBroken.On("Rollback", ctx).Return(nil)

	completed, err := sweeper.RunOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.Equal(t, model.OrderStatusCompleted, expired.Status)
	require.NotNil(t, expired.CompletedAt)
	assert.Equal(t, testNow, *expired.CompletedAt)
	assert.Equal(t, model.OrderStatusReturnRequested, raced.Status)
	assert.True(t, txBroken.rolledBack)
	assert.Equal(t, []string{events.TypeOrderStatusChanged}, publisher.types())
}

func TestCompletionSweeper_ListFailure(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	sweeper := NewCompletionSweeper(orders, events.Noop{}, nil, fixedClock(testNow), 0, zerolog.Nop())

	orders.On("ListCompletable", ctx, testNow, defaultCompletionBatch).Return(nil, errors.New("connection refused"))

	completed, err := sweeper.RunOnce(ctx)

	require.Error(t, err)
	assert.Zero(t, completed)
	orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestCompletionSweeper_RunStopsOnCancel(t *testing.T) {
	orders := new(MockOrderRepository)
	orders.On("ListCompletable", mock.Anything, mock.Anything, 5).Return([]uuid.UUID{}, nil)
	sweeper := NewCompletionSweeper(orders, events.Noop{}, nil, nil, 5, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
	assert.NotEmpty(t, orders.Calls)
}

func TestCatalogService_ListVariants(t *testing.T) {
	ctx := context.Background()
	variants := new(MockVariantRepository)
	svc := NewCatalogService(variants, zerolog.Nop())

	productID := uuid.New()
	listed := []model.ProductVariant{
		{ID: uuid.New(), ProductID: productID, Size: "M", StockAvailable: 4, IsAvailable: true},
		{ID: uuid.New(), ProductID: productID, Size: "L", StockAvailable: 0, IsAvailable: true},
	}
	variants.On("ListByProduct", ctx, productID).Return(listed, nil)

	got, err := svc.ListVariants(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, listed, got)

	empty := uuid.New()
	variants.On("ListByProduct", ctx, empty).Return([]model.ProductVariant{}, nil)

	_, err = svc.ListVariants(ctx, empty)
	assert.True(t, errors.Is(err, model.ErrVariantNotFound))
}
