package webhook

import (
	"testing"

	"clothing-marketplace/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePaymentEvent(t *testing.T) {
	const orderID = "5b0f7c59-0e59-4c07-9b40-3d2c1b9d8a51"
	const returnID = "c4a1e1f6-8a7b-4d3c-9f0e-1a2b3c4d5e6f"

	t.Run("Captured", func(t *testing.T) {
		ev, err := DecodePaymentEvent([]byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","amount":162500,"notes":{"order_id":"` + orderID + `"}}}}}`))

		require.NoError(t, err)
		captured, ok := ev.(PaymentCaptured)
		require.True(t, ok)
		assert.Equal(t, "pay_1", captured.PaymentID)
		assert.True(t, decimal.NewFromInt(1625).Equal(captured.Amount))
		assert.Equal(t, orderID, captured.Order.ID.String())
		assert.Equal(t, EventPaymentCaptured, ev.EventName())
	})

	t.Run("Authorized", func(t *testing.T) {
		ev, err := DecodePaymentEvent([]byte(`{"event":"payment.authorized","payload":{"payment":{"entity":{"id":"pay_2","amount":100,"notes":{"order_id":"ORDABC"}}}}}`))

		require.NoError(t, err)
		auth, ok := ev.(PaymentAuthorized)
		require.True(t, ok)
		assert.Equal(t, "ORDABC", auth.Order.Number)
		assert.True(t, decimal.NewFromInt(1).Equal(auth.Amount))
	})

	t.Run("Failed carries reason", func(t *testing.T) {
		ev, err := DecodePaymentEvent([]byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_3","amount":500,"error_description":"Card declined","notes":{"order_id":"` + orderID + `"}}}}}`))

		require.NoError(t, err)
		failed, ok := ev.(PaymentFailed)
		require.True(t, ok)
		assert.Equal(t, "Card declined", failed.Reason)
	})

	t.Run("Refund created", func(t *testing.T) {
		ev, err := DecodePaymentEvent([]byte(`{"event":"refund.created","payload":{"refund":{"entity":{"id":"rfnd_1","amount":162550,"notes":{"return_id":"` + returnID + `"}}}}}`))

		require.NoError(t, err)
		refund, ok := ev.(RefundCreated)
		require.True(t, ok)
		assert.Equal(t, "rfnd_1", refund.RefundID)
		assert.Equal(t, returnID, refund.ReturnID.String())
		assert.True(t, decimal.RequireFromString("1625.50").Equal(refund.Amount))
	})

	t.Run("Unknown event is acknowledged", func(t *testing.T) {
		ev, err := DecodePaymentEvent([]byte(`{"event":"order.paid","payload":{}}`))

		require.NoError(t, err)
		unknown, ok := ev.(UnknownEvent)
		require.True(t, ok)
		assert.Equal(t, "order.paid", unknown.Name)
	})

	t.Run("Known event without entity decodes as unknown", func(t *testing.T) {
		ev, err := DecodePaymentEvent([]byte(`{"event":"payment.captured","payload":{}}`))

		require.NoError(t, err)
		assert.IsType(t, UnknownEvent{}, ev)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		ev, err := DecodePaymentEvent([]byte(`{"event":`))

		assert.Nil(t, ev)
		assert.ErrorIs(t, err, model.ErrInvalidJSON)
	})
}
