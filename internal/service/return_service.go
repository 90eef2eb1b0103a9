package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clothing-marketplace/internal/events"
	"clothing-marketplace/internal/lifecycle"
	"clothing-marketplace/internal/metrics"
	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// returnService implements ReturnService.
type returnService struct {
	returnRepo  repository.ReturnRepository
	orderRepo   repository.OrderRepository
	variantRepo repository.VariantRepository
	publisher   events.Publisher
	metrics     *metrics.Metrics
	clock       Clock
	numbers     NumberGenerator
	logger      zerolog.Logger
}

// NewReturnService creates a new return service.
func NewReturnService(
	returnRepo repository.ReturnRepository,
	orderRepo repository.OrderRepository,
	variantRepo repository.VariantRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	clock Clock,
	logger zerolog.Logger,
) ReturnService {
	return &returnService{
		returnRepo:  returnRepo,
		orderRepo:   orderRepo,
		variantRepo: variantRepo,
		publisher:   publisher,
		metrics:     m,
		clock:       clock,
		numbers:     NewNumber,
		logger:      logger.With().Str("service", "return").Logger(),
	}
}

// CreateReturn opens a return or exchange against a delivered order inside its return window.
func (s *returnService) CreateReturn(ctx context.Context, principal model.Principal, req *model.CreateReturnRequest) (*model.Return, error) {
	if principal.Role != model.RoleCustomer {
		return nil, model.ErrForbidden.WithMessage("Only customers can request returns")
	}
	if req == nil {
		return nil, model.ErrValidation
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var (
		ret   *model.Return
		order *model.Order
	)
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		o, err := s.orderRepo.GetForUpdate(ctx, tx, req.OrderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if o == nil || o.CustomerID != principal.ID {
			return model.ErrOrderNotFound
		}

		next, outcome := lifecycle.NextOrderStatus(o.Status, lifecycle.EventReturnRequested)
		switch outcome {
		case lifecycle.Noop:
			return model.ErrActiveReturnExists
		case lifecycle.Reject:
			return model.ErrInvalidOrderState.WithMessage(fmt.Sprintf("Order in status %s is not eligible for a return", o.Status))
		}

		now := s.clock.now()
		if now.After(o.ReturnWindowEndDate) {
			s.logger.Info().
				Str("order_id", o.ID.String()).
				Time("window_end", o.ReturnWindowEndDate).
				Msg("return requested after window closed")
			return model.ErrReturnWindowExpired
		}

		active, err := s.returnRepo.HasActive(ctx, tx, o.ID)
		if err != nil {
			return fmt.Errorf("failed to check active returns: %w", err)
		}
		if active {
			return model.ErrActiveReturnExists
		}

		if req.Type == model.ReturnTypeExchange {
			if err := s.checkExchangeVariant(ctx, tx, o, *req.ExchangeVariantID); err != nil {
				return err
			}
		}

		r := &model.Return{
			ID:           uuid.New(),
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			Type:         req.Type,
			Reason:       req.Reason,
			Description:  trimmed(req.Description),
			Status:       model.ReturnStatusRequested,
			RefundAmount: decimal.Zero,
			RefundStatus: model.RefundStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if req.Type == model.ReturnTypeReturn {
			r.RefundAmount = o.TotalAmount
		} else {
			r.ExchangeVariantID = req.ExchangeVariantID
		}

		if err := s.insertWithNumber(ctx, tx, r); err != nil {
			return err
		}

		o.Status = next
		o.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		notes := "Return requested: " + string(r.Reason)
		if r.Type == model.ReturnTypeExchange {
			notes = "Exchange requested: " + string(r.Reason)
		}
		if err := s.orderRepo.AppendHistory(ctx, tx, historyEntry(o.ID, o.Status, notes, now)); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}

		ret, order = r, o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("return_id", ret.ID.String()).
		Str("return_number", ret.ReturnNumber).
		Str("order_id", order.ID.String()).
		Str("type", string(ret.Type)).
		Msg("return created successfully")

	s.metrics.OrderTransition(string(order.Status), "customer")
	s.publisher.Publish(ctx,
		events.New(events.TypeReturnRequested, order.ID, order.OrderNumber, string(ret.Status), "customer", ret.CreatedAt).WithReturn(ret.ID),
	)

	return ret, nil
}

// checkExchangeVariant requires the replacement to be another available size of the ordered product.
func (s *returnService) checkExchangeVariant(ctx context.Context, tx pgx.Tx, o *model.Order, variantID uuid.UUID) error {
	v, err := s.variantRepo.GetForOrder(ctx, tx, variantID)
	if err != nil {
		return fmt.Errorf("failed to load exchange variant: %w", err)
	}
	if v == nil || !v.IsAvailable {
		return model.ErrVariantNotFound
	}
	if v.ProductID != o.ProductID {
		return model.ErrExchangeVariantMismatch
	}
	return nil
}

func (s *returnService) insertWithNumber(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		ret.ReturnNumber = s.numbers(returnNumberPrefix, ret.CreatedAt)

		err := s.returnRepo.Create(ctx, tx, ret)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateNumber) {
			return err
		}
		s.logger.Warn().
			Int("attempt", attempt).
			Str("return_number", ret.ReturnNumber).
			Msg("return number collision, regenerating")
	}
	return fmt.Errorf("failed to allocate a unique return number after %d attempts", maxNumberAttempts)
}

// GetReturn retrieves a return visible to the principal.
func (s *returnService) GetReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error) {
	ret, err := s.returnRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to get return")
		return nil, fmt.Errorf("failed to get return: %w", err)
	}
	if ret == nil || !canSeeReturn(principal, ret) {
		return nil, model.ErrReturnNotFound
	}
	return ret, nil
}

// ListReturns returns one page of the returns visible to the principal, newest first.
func (s *returnService) ListReturns(ctx context.Context, principal model.Principal, params model.ListParams) (*model.Page[model.Return], error) {
	params = params.Normalize()

	filter := model.ReturnFilter{Limit: params.Limit, Offset: params.Offset()}
	if params.Status != "" {
		status := model.ReturnStatus(strings.ToLower(params.Status))
		if !status.IsValid() {
			return nil, model.ErrInvalidStatusFilter
		}
		filter.Status = status
	}

	switch principal.Role {
	case model.RoleCustomer:
		filter.CustomerID = principal.ID
	case model.RoleAdmin:
	default:
		return nil, model.ErrForbidden
	}

	returns, total, err := s.returnRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list returns")
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}

	return &model.Page[model.Return]{
		Items: returns,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

// CancelReturn withdraws a return that has not been decided and restores the order to delivered.
func (s *returnService) CancelReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error) {
	ret, order, applied, err := s.transition(ctx, id, lifecycle.ReturnEventCustomerCancel, lifecycle.EventReturnCancelled,
		func(r *model.Return) bool { return canSeeReturn(principal, r) })
	if err != nil {
		return nil, err
	}

	if applied {
		s.publishReturn(ctx, events.TypeReturnCancelled, ret, order, "customer")
	}
	return ret, nil
}

// ApproveReturn records an admin approval.
func (s *returnService) ApproveReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error) {
	if principal.Role != model.RoleAdmin {
		return nil, model.ErrForbidden
	}
	ret, order, applied, err := s.transition(ctx, id, lifecycle.ReturnEventApprove, "", nil)
	if err != nil {
		return nil, err
	}

	if applied {
		s.publishReturn(ctx, events.TypeReturnDecided, ret, order, "admin")
	}
	return ret, nil
}

// RejectReturn records an admin rejection and restores the order to delivered.
func (s *returnService) RejectReturn(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Return, error) {
	if principal.Role != model.RoleAdmin {
		return nil, model.ErrForbidden
	}
	ret, order, applied, err := s.transition(ctx, id, lifecycle.ReturnEventReject, lifecycle.EventReturnRejected, nil)
	if err != nil {
		return nil, err
	}

	if applied {
		s.publishReturn(ctx, events.TypeReturnDecided, ret, order, "admin")
	}
	return ret, nil
}

// transition applies event to a return and, when orderEvent is set, moves the parent order with it.
// allowed filters which returns the caller may act on; a nil func allows all. applied is false
// when the event was already in effect.
func (s *returnService) transition(
	ctx context.Context,
	id uuid.UUID,
	event lifecycle.ReturnEvent,
	orderEvent lifecycle.OrderEvent,
	allowed func(*model.Return) bool,
) (ret *model.Return, order *model.Order, applied bool, err error) {
	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		r, err := s.returnRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock return: %w", err)
		}
		if r == nil || (allowed != nil && !allowed(r)) {
			return model.ErrReturnNotFound
		}

		next, outcome := lifecycle.NextReturnStatus(r.Status, event)
		switch outcome {
		case lifecycle.Reject:
			return model.ErrInvalidReturnState.WithMessage(fmt.Sprintf("Return in status %s does not allow %s", r.Status, event))
		case lifecycle.Noop:
			ret = r
			return nil
		}

		now := s.clock.now()
		r.Status = next
		r.UpdatedAt = now
		if next == model.ReturnStatusCancelled {
			r.CancelledAt = timePtr(now)
		}
		if err := s.returnRepo.Update(ctx, tx, r); err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}
		ret, applied = r, true

		if orderEvent == "" {
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

		nextOrder, orderOutcome := lifecycle.NextOrderStatus(o.Status, orderEvent)
		if orderOutcome != lifecycle.Apply {
			s.logger.Warn().
				Str("order_id", o.ID.String()).
				Str("status", string(o.Status)).
				Str("event", string(orderEvent)).
				Msg("order not restored with its return")
			order = o
			return nil
		}

		o.Status = nextOrder
		o.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		notes := fmt.Sprintf("Return %s %s", r.ReturnNumber, r.Status)
		if err := s.orderRepo.AppendHistory(ctx, tx, historyEntry(o.ID, o.Status, notes, now)); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}

	s.logger.Info().
		Str("return_id", ret.ID.String()).
		Str("status", string(ret.Status)).
		Str("event", string(event)).
		Bool("applied", applied).
		Msg("return transitioned")

	return ret, order, applied, nil
}

func (s *returnService) publishReturn(ctx context.Context, eventType string, ret *model.Return, order *model.Order, source string) {
	var number string
	if order != nil {
		number = order.OrderNumber
		s.metrics.OrderTransition(string(order.Status), source)
	}
	s.publisher.Publish(ctx, events.New(eventType, ret.OrderID, number, string(ret.Status), source, ret.UpdatedAt).WithReturn(ret.ID))
}

// canSeeReturn lets customers read their own returns and admins read all.
func canSeeReturn(p model.Principal, r *model.Return) bool {
	return p.Role == model.RoleAdmin || (p.Role == model.RoleCustomer && r.CustomerID == p.ID)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return strPtr(strings.TrimSpace(*s))
}
