package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clothing-marketplace/internal/auth"
	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/handler"
	"clothing-marketplace/internal/metrics"
	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter mounts handlers without services; only requests stopped by middleware may be sent.
func newTestRouter(authCfg config.AuthConfig) http.Handler {
	logger := zerolog.Nop()
	return New(Handlers{
		Health:  handler.NewHealthHandler(nil, logger),
		Product: handler.NewProductHandler(nil, logger),
		Order:   handler.NewOrderHandler(nil, logger),
		Return:  handler.NewReturnHandler(nil, logger),
		Webhook: handler.NewWebhookHandler(nil, nil, config.WebhookConfig{PaymentSecret: "p", ShippingSecret: "s"}, logger),
	}, Options{
		Auth:           authCfg,
		AllowedOrigins: []string{"*"},
		Metrics:        metrics.New(),
	}, logger)
}

func TestRouter(t *testing.T) {
	authCfg := config.AuthConfig{JWTSecret: "router-test-secret"}
	router := newTestRouter(authCfg)

	customerToken, err := auth.Mint(authCfg, model.Principal{ID: uuid.New(), Role: model.RoleCustomer}, time.Now(), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
	}{
		{name: "Health is public", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "Metrics is public", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{name: "Orders require a token", method: http.MethodGet, path: "/api/orders", expectedStatus: http.StatusUnauthorized},
		{name: "Returns require a token", method: http.MethodPost, path: "/api/returns", expectedStatus: http.StatusUnauthorized},
		{name: "Variants require a token", method: http.MethodGet, path: "/api/products/" + uuid.NewString() + "/variants", expectedStatus: http.StatusUnauthorized},
		{name: "Admin routes reject customers", method: http.MethodPost, path: "/api/admin/returns/" + uuid.NewString() + "/approve", token: customerToken, expectedStatus: http.StatusForbidden},
		{name: "Unsigned webhook", method: http.MethodPost, path: "/webhooks/payments", expectedStatus: http.StatusUnauthorized},
		{name: "Unknown route", method: http.MethodGet, path: "/api/sellers", token: customerToken, expectedStatus: http.StatusNotFound},
		{name: "Wrong method", method: http.MethodDelete, path: "/api/orders", token: customerToken, expectedStatus: http.StatusMethodNotAllowed},
		{name: "Preflight", method: http.MethodOptions, path: "/api/orders", expectedStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
