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
	"clothing-marketplace/internal/webhook"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	sourcePaymentWebhook  = "payment_webhook"
	sourceShippingWebhook = "shipping_webhook"
)

// webhookService implements WebhookService.
type webhookService struct {
	orderRepo   repository.OrderRepository
	returnRepo  repository.ReturnRepository
	variantRepo repository.VariantRepository
	publisher   events.Publisher
	metrics     *metrics.Metrics
	clock       Clock
	logger      zerolog.Logger
}

// NewWebhookService creates a new webhook reconciliation service.
func NewWebhookService(
	orderRepo repository.OrderRepository,
	returnRepo repository.ReturnRepository,
	variantRepo repository.VariantRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	clock Clock,
	logger zerolog.Logger,
) WebhookService {
	return &webhookService{
		orderRepo:   orderRepo,
		returnRepo:  returnRepo,
		variantRepo: variantRepo,
		publisher:   publisher,
		metrics:     m,
		clock:       clock,
		logger:      logger.With().Str("service", "webhook").Logger(),
	}
}

// orderMutation describes how one provider event changes an order.
type orderMutation struct {
	event  lifecycle.OrderEvent
	source string
	notes  string
	// apply runs after the status moved and before the order is persisted.
	apply func(ctx context.Context, tx pgx.Tx, o *model.Order, now time.Time) error
	// refresh runs when the event is already in effect and reports whether o changed.
	refresh func(o *model.Order) bool
}

// HandlePayment applies a payment gateway event. Only infrastructure failures return an error.
func (s *webhookService) HandlePayment(ctx context.Context, event webhook.PaymentEvent) (*WebhookResult, error) {
	var (
		result *WebhookResult
		err    error
	)

	switch e := event.(type) {
	case webhook.PaymentAuthorized:
		result, err = s.applyToOrder(ctx, e.Order, orderMutation{
			event:  lifecycle.EventPaymentAuthorized,
			source: sourcePaymentWebhook,
			notes:  "Payment authorized: " + e.PaymentID,
			apply: func(_ context.Context, _ pgx.Tx, o *model.Order, _ time.Time) error {
				o.PaymentStatus = model.PaymentStatusAuthorized
				o.PaymentID = strPtr(e.PaymentID)
				return nil
			},
		})

	case webhook.PaymentCaptured:
		result, err = s.applyToOrder(ctx, e.Order, orderMutation{
			event:  lifecycle.EventPaymentCaptured,
			source: sourcePaymentWebhook,
			notes:  "Payment captured: " + e.PaymentID,
			apply: func(_ context.Context, _ pgx.Tx, o *model.Order, _ time.Time) error {
				o.PaymentStatus = model.PaymentStatusCompleted
				o.PaymentID = strPtr(e.PaymentID)
				return nil
			},
		})

	case webhook.PaymentFailed:
		result, err = s.applyToOrder(ctx, e.Order, orderMutation{
			event:  lifecycle.EventPaymentFailed,
			source: sourcePaymentWebhook,
			notes:  "Payment failed",
			apply: func(ctx context.Context, tx pgx.Tx, o *model.Order, now time.Time) error {
				o.PaymentStatus = model.PaymentStatusFailed
				o.PaymentID = strPtr(e.PaymentID)
				o.PaymentFailureReason = strPtr(e.Reason)
				o.CancellationReason = strPtr("payment failed")
				o.CancelledAt = timePtr(now)
				if err := s.variantRepo.Release(ctx, tx, o.VariantID, o.Quantity); err != nil {
					return fmt.Errorf("failed to release stock: %w", err)
				}
				return nil
			},
		})

	case webhook.RefundCreated:
		result, err = s.applyRefund(ctx, e)

	default:
		s.logger.Info().Str("event", event.EventName()).Msg("ignoring unhandled payment event")
		result = &WebhookResult{Outcome: OutcomeIgnored}
	}

	if err != nil {
		s.metrics.Webhook("payment", event.EventName(), "error")
		return nil, err
	}
	s.metrics.Webhook("payment", event.EventName(), result.Outcome)
	return result, nil
}

// HandleShipping applies a courier status event. Only infrastructure failures return an error.
func (s *webhookService) HandleShipping(ctx context.Context, event webhook.ShippingEvent) (*WebhookResult, error) {
	if !event.Known() {
		s.logger.Info().
			Str("order", event.Order.String()).
			Str("status", event.CurrentStatus).
			Msg("ignoring unmapped shipping status")
		s.metrics.Webhook("shipping", event.CurrentStatus, OutcomeIgnored)
		return &WebhookResult{Outcome: OutcomeIgnored}, nil
	}

	result, err := s.applyToOrder(ctx, event.Order, orderMutation{
		event:  event.Event,
		source: sourceShippingWebhook,
		notes:  "Courier status: " + event.CurrentStatus,
		apply: func(ctx context.Context, tx pgx.Tx, o *model.Order, now time.Time) error {
			if event.AWB != "" {
				o.TrackingNumber = strPtr(event.AWB)
			}
			switch o.Status {
			case model.OrderStatusDelivered:
				deliveredAt := now
				if event.DeliveredAt != nil {
					deliveredAt = event.DeliveredAt.UTC()
				}
				o.DeliveredAt = &deliveredAt
				if err := s.variantRepo.Fulfil(ctx, tx, o.VariantID, o.Quantity); err != nil {
					return fmt.Errorf("failed to fulfil stock: %w", err)
				}
			case model.OrderStatusReturned:
				// RTO only applies before delivery, so the units are still reserved.
				if err := s.variantRepo.Release(ctx, tx, o.VariantID, o.Quantity); err != nil {
					return fmt.Errorf("failed to release stock: %w", err)
				}
			}
			return nil
		},
		refresh: func(o *model.Order) bool {
			if event.AWB == "" || (o.TrackingNumber != nil && *o.TrackingNumber == event.AWB) {
				return false
			}
			o.TrackingNumber = strPtr(event.AWB)
			return true
		},
	})
	if err != nil {
		s.metrics.Webhook("shipping", string(event.Event), "error")
		return nil, err
	}
	s.metrics.Webhook("shipping", string(event.Event), result.Outcome)
	return result, nil
}

// lockOrder finds the order a provider event refers to and locks it inside tx.
func (s *webhookService) lockOrder(ctx context.Context, tx pgx.Tx, ref webhook.OrderRef) (*model.Order, error) {
	if ref.ID != uuid.Nil {
		return s.orderRepo.GetForUpdate(ctx, tx, ref.ID)
	}
	return s.orderRepo.GetByNumberForUpdate(ctx, tx, ref.Number)
}

// applyToOrder resolves m.event against the referenced order's current status and persists the result.
func (s *webhookService) applyToOrder(ctx context.Context, ref webhook.OrderRef, m orderMutation) (*WebhookResult, error) {
	if ref.IsZero() {
		s.logger.Warn().Str("event", string(m.event)).Msg("webhook event carries no order reference")
		return &WebhookResult{Outcome: OutcomeIgnored}, nil
	}

	var (
		result = &WebhookResult{Outcome: OutcomeIgnored}
		order  *model.Order
	)
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		o, err := s.lockOrder(ctx, tx, ref)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if o == nil {
			s.logger.Warn().
				Str("order", ref.String()).
				Str("event", string(m.event)).
				Msg("webhook references unknown order")
			return nil
		}

		result.OrderID = &o.ID
		result.Status = string(o.Status)

		next, outcome := lifecycle.NextOrderStatus(o.Status, m.event)
		switch outcome {
		case lifecycle.Reject:
			s.logger.Warn().
				Str("order_id", o.ID.String()).
				Str("status", string(o.Status)).
				Str("event", string(m.event)).
				Msg("webhook transition rejected")
			result.Outcome = OutcomeRejected
			return nil

		case lifecycle.Noop:
			result.Outcome = OutcomeNoop
			if m.refresh == nil || !m.refresh(o) {
				return nil
			}
			o.UpdatedAt = s.clock.now()
			if err := s.orderRepo.Update(ctx, tx, o); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
			return nil
		}

		now := s.clock.now()
		o.Status = next
		o.UpdatedAt = now
		if m.apply != nil {
			if err := m.apply(ctx, tx, o, now); err != nil {
				return err
			}
		}
		if err := s.orderRepo.Update(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if err := s.orderRepo.AppendHistory(ctx, tx, historyEntry(o.ID, o.Status, m.notes, now)); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}

		result.Outcome = OutcomeApplied
		result.Status = string(o.Status)
		order = o
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order", ref.String()).Str("event", string(m.event)).Msg("failed to apply webhook event")
		return nil, err
	}

	if order != nil {
		s.logger.Info().
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Str("event", string(m.event)).
			Msg("webhook event applied")

		eventType := events.TypeOrderStatusChanged
		if order.Status == model.OrderStatusCancelled {
			eventType = events.TypeOrderCancelled
		}
		s.metrics.OrderTransition(string(order.Status), m.source)
		s.publisher.Publish(ctx, events.New(eventType, order.ID, order.OrderNumber, string(order.Status), m.source, order.UpdatedAt))
	}

	return result, nil
}

// applyRefund completes a return once the gateway reports its refund and, for refunds,
// moves the parent order to returned.
func (s *webhookService) applyRefund(ctx context.Context, e webhook.RefundCreated) (*WebhookResult, error) {
	if e.ReturnID == uuid.Nil {
		s.logger.Warn().Str("refund_id", e.RefundID).Msg("refund event carries no return reference")
		return &WebhookResult{Outcome: OutcomeIgnored}, nil
	}

	var (
		result = &WebhookResult{Outcome: OutcomeIgnored}
		ret    *model.Return
		order  *model.Order
	)
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		r, err := s.returnRepo.GetForUpdate(ctx, tx, e.ReturnID)
		if err != nil {
			return fmt.Errorf("failed to lock return: %w", err)
		}
		if r == nil {
			s.logger.Warn().
				Str("return_id", e.ReturnID.String()).
				Str("refund_id", e.RefundID).
				Msg("refund references unknown return")
			return nil
		}

		result.ReturnID = &r.ID
		result.OrderID = &r.OrderID
		result.Status = string(r.Status)

		next, outcome := lifecycle.NextReturnStatus(r.Status, lifecycle.ReturnEventRefundProcessed)
		switch outcome {
		case lifecycle.Reject:
			s.logger.Warn().
				Str("return_id", r.ID.String()).
				Str("status", string(r.Status)).
				Msg("refund for a return that cannot complete")
			result.Outcome = OutcomeRejected
			return nil
		case lifecycle.Noop:
			result.Outcome = OutcomeNoop
			return nil
		}

		now := s.clock.now()
		r.Status = next
		r.RefundStatus = model.RefundStatusProcessed
		r.RefundID = strPtr(e.RefundID)
		r.RefundedAmount = decimal.NewNullDecimal(e.Amount)
		r.UpdatedAt = now
		if err := s.returnRepo.Update(ctx, tx, r); err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}
		result.Outcome = OutcomeApplied
		result.Status = string(r.Status)
		ret = r

		if r.Type != model.ReturnTypeReturn {
			s.logger.Info().Str("return_id", r.ID.String()).Msg("refund recorded on an exchange, order left unchanged")
			return nil
		}

		o, err := s.orderRepo.GetForUpdate(ctx, tx, r.OrderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if o == nil {
			s.logger.Error().Str("return_id", r.ID.String()).Msg("return references a missing order")
			return nil
		}

		nextOrder, orderOutcome := lifecycle.NextOrderStatus(o.Status, lifecycle.EventReturnRefunded)
		if orderOutcome != lifecycle.Apply {
			s.logger.Warn().
				Str("order_id", o.ID.String()).
				Str("status", string(o.Status)).
				Msg("order not moved to returned after refund")
			return nil
		}

		o.Status = nextOrder
		o.PaymentStatus = model.PaymentStatusRefunded
		o.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		notes := fmt.Sprintf("Refund %s processed for return %s", e.RefundID, r.ReturnNumber)
		if err := s.orderRepo.AppendHistory(ctx, tx, historyEntry(o.ID, o.Status, notes, now)); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("return_id", e.ReturnID.String()).Msg("failed to apply refund event")
		return nil, err
	}

	if ret != nil {
		s.logger.Info().
			Str("return_id", ret.ID.String()).
			Str("refund_id", e.RefundID).
			Str("amount", e.Amount.StringFixed(2)).
			Msg("refund processed")

		var number string
		if order != nil {
			number = order.OrderNumber
			s.metrics.OrderTransition(string(order.Status), sourcePaymentWebhook)
		}
		s.publisher.Publish(ctx,
			events.New(events.TypeReturnRefunded, ret.OrderID, number, string(ret.Status), sourcePaymentWebhook, ret.UpdatedAt).WithReturn(ret.ID),
		)
	}

	return result, nil
}
