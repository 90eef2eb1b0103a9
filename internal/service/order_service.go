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
	"clothing-marketplace/internal/pincode"
	"clothing-marketplace/internal/pricing"
	"clothing-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	variantRepo repository.VariantRepository
	addressRepo repository.AddressRepository
	pincodes    pincode.Checker
	publisher   events.Publisher
	metrics     *metrics.Metrics
	clock       Clock
	numbers     NumberGenerator
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	variantRepo repository.VariantRepository,
	addressRepo repository.AddressRepository,
	pincodes pincode.Checker,
	publisher events.Publisher,
	m *metrics.Metrics,
	clock Clock,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		variantRepo: variantRepo,
		addressRepo: addressRepo,
		pincodes:    pincodes,
		publisher:   publisher,
		metrics:     m,
		clock:       clock,
		numbers:     NewNumber,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder reserves stock and persists an order with frozen pricing in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, principal model.Principal, req *model.CreateOrderRequest) (*model.Order, error) {
	if principal.Role != model.RoleCustomer {
		return nil, model.ErrForbidden.WithMessage("Only customers can place orders")
	}
	if req == nil {
		return nil, model.ErrValidation
	}
	if err := validateRequest(req); err != nil {
		s.logger.Warn().Err(err).Str("customer_id", principal.ID.String()).Msg("invalid order request")
		return nil, err
	}

	address, err := s.addressRepo.GetForCustomer(ctx, req.DeliveryAddressID, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve delivery address: %w", err)
	}
	if address == nil {
		return nil, model.ErrAddressNotFound
	}

	if err := s.pincodes.Serviceable(ctx, address.Pincode); err != nil {
		s.logger.Warn().
			Err(err).
			Str("pincode", address.Pincode).
			Msg("delivery pincode rejected")
		return nil, err
	}

	var order *model.Order
	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		var txErr error
		order, txErr = s.placeOrder(ctx, tx, principal.ID, req)
		return txErr
	})
	if err != nil {
		s.recordPlacementFailure(err)
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("variant_id", order.VariantID.String()).
		Int("quantity", order.Quantity).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created successfully")

	s.metrics.OrderTransition(string(order.Status), "customer")
	s.publisher.Publish(ctx, events.New(events.TypeOrderCreated, order.ID, order.OrderNumber, string(order.Status), "customer", order.CreatedAt))

	return order, nil
}

// placeOrder runs the reservation sequence inside tx. Any error aborts the whole transaction.
func (s *orderService) placeOrder(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, req *model.CreateOrderRequest) (*model.Order, error) {
	variant, err := s.variantRepo.GetForOrder(ctx, tx, req.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load variant: %w", err)
	}
	if variant == nil || !variant.IsAvailable {
		return nil, model.ErrVariantNotFound
	}

	if variant.StockAvailable < req.Quantity {
		s.logger.Warn().
			Str("variant_id", variant.ID.String()).
			Int("available", variant.StockAvailable).
			Int("requested", req.Quantity).
			Msg("insufficient stock")
		return nil, model.ErrInsufficientStock
	}

	input := pricing.FromVariant(variant, req.Quantity)
	if err := pricing.Validate(input); err != nil {
		s.logger.Error().Err(err).Str("variant_id", variant.ID.String()).Msg("variant carries invalid pricing")
		return nil, err
	}
	price := pricing.Compute(input)

	now := s.clock.now()
	order := &model.Order{
		ID:                  uuid.New(),
		CustomerID:          customerID,
		SellerID:            variant.SellerID,
		ProductID:           variant.ProductID,
		VariantID:           variant.ID,
		DeliveryAddressID:   req.DeliveryAddressID,
		Quantity:            req.Quantity,
		UnitPrice:           input.UnitPrice,
		Subtotal:            price.Subtotal,
		TaxAmount:           price.TaxAmount,
		ShippingCost:        price.ShippingCost,
		TotalAmount:         price.TotalAmount,
		CommissionAmount:    price.CommissionAmount,
		SellerPayoutAmount:  price.SellerPayoutAmount,
		PaymentMethod:       req.PaymentMethod,
		PaymentStatus:       model.PaymentStatusPending,
		Status:              model.OrderStatusPending,
		ReturnWindowEndDate: now.Add(model.ReturnWindow),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.insertWithNumber(ctx, tx, order); err != nil {
		return nil, err
	}

	reserved, err := s.variantRepo.Reserve(ctx, tx, variant.ID, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	if !reserved {
		s.logger.Warn().
			Str("variant_id", variant.ID.String()).
			Int("requested", req.Quantity).
			Msg("stock changed between pre-check and reservation")
		return nil, model.ErrConcurrentStockConflict
	}

	available, err := s.variantRepo.StockAvailable(ctx, tx, variant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read stock: %w", err)
	}
	if available < 0 {
		s.logger.Error().
			Str("variant_id", variant.ID.String()).
			Int("available", available).
			Msg("negative stock after reservation")
		return nil, model.ErrConcurrentStockConflict
	}

	if err := s.orderRepo.AppendHistory(ctx, tx, historyEntry(order.ID, order.Status, "Order created", now)); err != nil {
		return nil, fmt.Errorf("failed to record order history: %w", err)
	}

	return order, nil
}

// insertWithNumber assigns an order number and inserts the order, regenerating the number on a collision.
func (s *orderService) insertWithNumber(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		order.OrderNumber = s.numbers(orderNumberPrefix, order.CreatedAt)

		err := s.orderRepo.Create(ctx, tx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateNumber) {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		s.logger.Warn().
			Int("attempt", attempt).
			Str("order_number", order.OrderNumber).
			Msg("order number collision, regenerating")
	}
	return fmt.Errorf("failed to allocate a unique order number after %d attempts", maxNumberAttempts)
}

func (s *orderService) recordPlacementFailure(err error) {
	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		s.metrics.StockFailure("insufficient_stock")
	case errors.Is(err, model.ErrConcurrentStockConflict):
		s.metrics.StockFailure("concurrent_conflict")
	}
}

// GetOrder retrieves an order visible to the principal.
func (s *orderService) GetOrder(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || !canSeeOrder(principal, order) {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns one page of the orders visible to the principal, newest first.
func (s *orderService) ListOrders(ctx context.Context, principal model.Principal, params model.ListParams) (*model.Page[model.Order], error) {
	params = params.Normalize()

	filter := model.OrderFilter{Limit: params.Limit, Offset: params.Offset()}
	if params.Status != "" {
		status := model.OrderStatus(strings.ToLower(params.Status))
		if !status.IsValid() {
			return nil, model.ErrInvalidStatusFilter
		}
		filter.Status = status
	}

	switch principal.Role {
	case model.RoleCustomer:
		filter.CustomerID = principal.ID
	case model.RoleSeller:
		filter.SellerID = principal.ID
	case model.RoleAdmin:
	default:
		return nil, model.ErrForbidden
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &model.Page[model.Order]{
		Items: orders,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

// CancelOrder cancels an order that has not shipped and releases its reservation.
func (s *orderService) CancelOrder(ctx context.Context, principal model.Principal, id uuid.UUID, req *model.CancelOrderRequest) (*model.Order, error) {
	if req == nil {
		req = &model.CancelOrderRequest{}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var order *model.Order
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		o, err := s.orderRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if o == nil || !canCancel(principal, o) {
			return model.ErrOrderNotFound
		}

		next, outcome := lifecycle.NextOrderStatus(o.Status, lifecycle.EventCustomerCancel)
		if outcome != lifecycle.Apply {
			s.logger.Warn().
				Str("order_id", o.ID.String()).
				Str("status", string(o.Status)).
				Msg("order cannot be cancelled in its current status")
			return model.ErrInvalidOrderState.WithMessage(fmt.Sprintf("Order in status %s cannot be cancelled", o.Status))
		}

		now := s.clock.now()
		reason := strings.TrimSpace(req.Reason)
		o.Status = next
		o.CancellationReason = strPtr(reason)
		o.CancelledAt = timePtr(now)
		o.UpdatedAt = now

		if err := s.orderRepo.Update(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if err := s.variantRepo.Release(ctx, tx, o.VariantID, o.Quantity); err != nil {
			return fmt.Errorf("failed to release stock: %w", err)
		}

		notes := "Order cancelled by customer"
		if reason != "" {
			notes += ": " + reason
		}
		if err := s.orderRepo.AppendHistory(ctx, tx, historyEntry(o.ID, o.Status, notes, now)); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("released", order.Quantity).
		Msg("order cancelled")

	s.metrics.OrderTransition(string(order.Status), "customer")
	s.publisher.Publish(ctx, events.New(events.TypeOrderCancelled, order.ID, order.OrderNumber, string(order.Status), "customer", order.UpdatedAt))

	return order, nil
}

// canCancel allows the owning customer and admins.
func canCancel(p model.Principal, o *model.Order) bool {
	return p.Role == model.RoleAdmin || (p.Role == model.RoleCustomer && o.CustomerID == p.ID)
}

// History returns the status audit trail of an order visible to the principal.
func (s *orderService) History(ctx context.Context, principal model.Principal, id uuid.UUID) ([]model.OrderStatusHistory, error) {
	if _, err := s.GetOrder(ctx, principal, id); err != nil {
		return nil, err
	}

	history, err := s.orderRepo.ListHistory(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order history")
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	return history, nil
}
