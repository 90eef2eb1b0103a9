package integration

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clothing-marketplace/internal/auth"
	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/database"
	"clothing-marketplace/internal/events"
	"clothing-marketplace/internal/handler"
	"clothing-marketplace/internal/metrics"
	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/pincode"
	"clothing-marketplace/internal/repository"
	"clothing-marketplace/internal/router"
	"clothing-marketplace/internal/service"
	"clothing-marketplace/internal/webhook"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, applies the migrations and returns a pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		MaxConnections:  20,
		MinConnections:  2,
		MaxConnLifetime: 5 * time.Minute,
	}

	logger := zerolog.Nop()
	pool, err := database.NewPoolFromURL(ctx, connStr, dbConfig, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Catalog holds the IDs seeded by SeedCatalog.
type Catalog struct {
	SellerID        uuid.UUID
	CustomerID      uuid.UUID
	ProductID       uuid.UUID
	VariantM        uuid.UUID
	VariantL        uuid.UUID
	AddressID       uuid.UUID
	RemoteAddressID uuid.UUID
}

// ServiceablePincode is in the pincode file written by NewTestServer; RemotePincode is not.
const (
	ServiceablePincode = "560001"
	RemotePincode      = "799001"
)

// SeedCatalog inserts one product with sizes M and L, and two customer addresses.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool, stock int) Catalog {
	t.Helper()

	ctx := context.Background()
	c := Catalog{
		SellerID:        uuid.New(),
		CustomerID:      uuid.New(),
		ProductID:       uuid.New(),
		VariantM:        uuid.New(),
		VariantL:        uuid.New(),
		AddressID:       uuid.New(),
		RemoteAddressID: uuid.New(),
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO products (id, seller_id, name, unit_price, tax_rate, shipping_cost, commission_rate)
		VALUES ($1, $2, 'Cotton Kurta', 999, 0.05, 49, 0.10)`,
		c.ProductID, c.SellerID)
	require.NoError(t, err)

	for size, id := range map[string]uuid.UUID{"M": c.VariantM, "L": c.VariantL} {
		_, err = pool.Exec(ctx, `
			INSERT INTO product_variants (id, product_id, size, sku, stock_available)
			VALUES ($1, $2, $3, $4, $5)`,
			id, c.ProductID, size, fmt.Sprintf("KURTA-%s-%s", size, id.String()[:8]), stock)
		require.NoError(t, err)
	}

	for id, pin := range map[uuid.UUID]string{c.AddressID: ServiceablePincode, c.RemoteAddressID: RemotePincode} {
		_, err = pool.Exec(ctx, `
			INSERT INTO addresses (id, customer_id, line1, city, state, pincode)
			VALUES ($1, $2, '1 Test Street', 'Test City', 'Test State', $3)`,
			id, c.CustomerID, pin)
		require.NoError(t, err)
	}

	return c
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"returns", "order_status_history", "orders", "addresses", "product_variants", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// StockOf returns the (available, reserved) counters of a variant.
func StockOf(t *testing.T, pool *pgxpool.Pool, variantID uuid.UUID) (int, int) {
	t.Helper()

	var available, reserved int
	err := pool.QueryRow(context.Background(),
		`SELECT stock_available, stock_reserved FROM product_variants WHERE id = $1`, variantID).
		Scan(&available, &reserved)
	require.NoError(t, err)
	return available, reserved
}

// TestServer is the fully wired HTTP stack backed by a real database.
type TestServer struct {
	Handler  http.Handler
	Auth     config.AuthConfig
	Webhooks config.WebhookConfig
	Sweeper  *service.CompletionSweeper
	Clock    *MutableClock
}

// MutableClock lets tests move time forward across the return window.
type MutableClock struct {
	now time.Time
}

// Now returns the current fake time.
func (c *MutableClock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *MutableClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// NewTestServer wires repositories, services, handlers and the router over testDB.
func NewTestServer(t *testing.T, testDB *TestDB) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	ctx := context.Background()

	pincodeFile := writePincodeFile(t, []string{ServiceablePincode, "110001"})
	checker, err := pincode.NewChecker(ctx, []string{pincodeFile}, pincode.NewFileLoader(logger), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = checker.Close() })

	clock := &MutableClock{now: time.Now().UTC()}
	m := metrics.New()
	publisher := events.Noop{}

	orderRepo := repository.NewOrderRepository(testDB.Pool, repository.DefaultTxConfig(), logger)
	variantRepo := repository.NewVariantRepository(testDB.Pool, logger)
	addressRepo := repository.NewAddressRepository(testDB.Pool, logger)
	returnRepo := repository.NewReturnRepository(testDB.Pool, logger)

	orderService := service.NewOrderService(orderRepo, variantRepo, addressRepo, checker, publisher, m, clock.Now, logger)
	returnService := service.NewReturnService(returnRepo, orderRepo, variantRepo, publisher, m, clock.Now, logger)
	webhookService := service.NewWebhookService(orderRepo, returnRepo, variantRepo, publisher, m, clock.Now, logger)
	catalogService := service.NewCatalogService(variantRepo, logger)

	authCfg := config.AuthConfig{JWTSecret: "integration-secret", JWTIssuer: "marketplace-test"}
	webhooks := config.WebhookConfig{PaymentSecret: "pay-secret", ShippingSecret: "ship-secret"}

	h := router.New(router.Handlers{
		Health:  handler.NewHealthHandler(map[string]handler.Pinger{"postgres": testDB.Pool}, logger),
		Product: handler.NewProductHandler(catalogService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		Return:  handler.NewReturnHandler(returnService, logger),
		Webhook: handler.NewWebhookHandler(webhookService, nil, webhooks, logger),
	}, router.Options{
		Auth:           authCfg,
		AllowedOrigins: []string{"*"},
		Metrics:        m,
	}, logger)

	return &TestServer{
		Handler:  h,
		Auth:     authCfg,
		Webhooks: webhooks,
		Sweeper:  service.NewCompletionSweeper(orderRepo, publisher, m, clock.Now, 50, logger),
		Clock:    clock,
	}
}

func writePincodeFile(t *testing.T, pincodes []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pincodes.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(pincodes, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

// Token mints a bearer token for a principal.
func (s *TestServer) Token(t *testing.T, id uuid.UUID, role model.Role) string {
	t.Helper()
	token, err := auth.Mint(s.Auth, model.Principal{ID: id, Role: role}, time.Now(), time.Hour)
	require.NoError(t, err)
	return token
}

// Do sends an authenticated JSON request and returns the recorder.
func (s *TestServer) Do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

// PaymentWebhook posts a signed payment gateway event.
func (s *TestServer) PaymentWebhook(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
	req.Header.Set(webhook.PaymentSignatureHeader, webhook.Sign([]byte(body), s.Webhooks.PaymentSecret))
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

// ShippingWebhook posts a signed courier status event.
func (s *TestServer) ShippingWebhook(t *testing.T, orderNumber, status string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"order_id":%q,"awb":"AWB-%s","current_status":%q}`, orderNumber, orderNumber, status)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shipping", strings.NewReader(body))
	req.Header.Set(webhook.ShippingSignatureHeader, webhook.Sign([]byte(body), s.Webhooks.ShippingSecret))
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

// DecodeData unmarshals the data field of a success envelope into dst.
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// ErrorCode returns the code of a failure envelope.
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Error.Code
}
