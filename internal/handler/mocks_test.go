package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"clothing-marketplace/internal/idempotency"
	"clothing-marketplace/internal/middleware"
	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/service"
	"clothing-marketplace/internal/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, p model.Principal, req *model.CreateOrderRequest) (*model.Order, error) {
	args := m.Called(ctx, p, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, p model.Principal, params model.ListParams) (*model.Page[model.Order], error) {
	args := m.Called(ctx, p, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page[model.Order]), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, p model.Principal, id uuid.UUID, req *model.CancelOrderRequest) (*model.Order, error) {
	args := m.Called(ctx, p, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) History(ctx context.Context, p model.Principal, id uuid.UUID) ([]model.OrderStatusHistory, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderStatusHistory), args.Error(1)
}

// MockReturnService is a mock implementation of ReturnService.
type MockReturnService struct {
	mock.Mock
}

func (m *MockReturnService) CreateReturn(ctx context.Context, p model.Principal, req *model.CreateReturnRequest) (*model.Return, error) {
	args := m.Called(ctx, p, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Return), args.Error(1)
}

func (m *MockReturnService) GetReturn(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Return, error) {
	return m.single("GetReturn", ctx, p, id)
}

func (m *MockReturnService) ListReturns(ctx context.Context, p model.Principal, params model.ListParams) (*model.Page[model.Return], error) {
	args := m.Called(ctx, p, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page[model.Return]), args.Error(1)
}

func (m *MockReturnService) CancelReturn(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Return, error) {
	return m.single("CancelReturn", ctx, p, id)
}

func (m *MockReturnService) ApproveReturn(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Return, error) {
	return m.single("ApproveReturn", ctx, p, id)
}

func (m *MockReturnService) RejectReturn(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Return, error) {
	return m.single("RejectReturn", ctx, p, id)
}

func (m *MockReturnService) single(method string, ctx context.Context, p model.Principal, id uuid.UUID) (*model.Return, error) {
	args := m.MethodCalled(method, ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Return), args.Error(1)
}

// MockCatalogService is a mock implementation of CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListVariants(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProductVariant), args.Error(1)
}

// MockWebhookService is a mock implementation of WebhookService.
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandlePayment(ctx context.Context, event webhook.PaymentEvent) (*service.WebhookResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WebhookResult), args.Error(1)
}

func (m *MockWebhookService) HandleShipping(ctx context.Context, event webhook.ShippingEvent) (*service.WebhookResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WebhookResult), args.Error(1)
}

// MockPinger is a mock implementation of Pinger.
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// memStore is an in-memory idempotency.Store.
type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", idempotency.ErrMiss
}

func (s *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key], _ = value.(string)
	return true, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key], _ = value.(string)
	return nil
}

func (s *memStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// withRoute attaches a principal and chi URL parameters (name, value pairs) to req.
func withRoute(req *http.Request, p *model.Principal, params ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if p != nil {
		ctx = middleware.WithPrincipal(ctx, *p)
	}
	return req.WithContext(ctx)
}
