package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/idempotency"
	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/response"
	"clothing-marketplace/internal/service"
	"clothing-marketplace/internal/webhook"

	"github.com/rs/zerolog"
)

const (
	providerPayment  = "payment"
	providerShipping = "shipping"
)

// WebhookHandler authenticates provider callbacks and hands the decoded events to the service.
// Authenticated deliveries are acknowledged with 200 unless applying them failed on infrastructure.
type WebhookHandler struct {
	service service.WebhookService
	guard   *idempotency.Guard
	secrets config.WebhookConfig
	logger  zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler. guard may be nil when Redis is not configured.
func NewWebhookHandler(service service.WebhookService, guard *idempotency.Guard, secrets config.WebhookConfig, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		guard:   guard,
		secrets: secrets,
		logger:  logger.With().Str("handler", "webhook").Logger(),
	}
}

// Payments handles POST /webhooks/payments requests.
func (h *WebhookHandler) Payments(w http.ResponseWriter, r *http.Request) {
	body, ok := h.authenticate(w, r, h.secrets.PaymentSecret, webhook.PaymentSignatureHeader)
	if !ok {
		return
	}

	event, err := webhook.DecodePaymentEvent(body)
	if err != nil {
		h.ignoreUndecodable(w, providerPayment, err)
		return
	}

	deliveryID := strings.TrimSpace(r.Header.Get(webhook.PaymentEventIDHeader))
	if deliveryID == "" {
		deliveryID = idempotency.HashBody(body)
	}

	h.dispatch(w, r, providerPayment, deliveryID, func(ctx context.Context) (*service.WebhookResult, error) {
		return h.service.HandlePayment(ctx, event)
	})
}

// Shipping handles POST /webhooks/shipping requests.
func (h *WebhookHandler) Shipping(w http.ResponseWriter, r *http.Request) {
	body, ok := h.authenticate(w, r, h.secrets.ShippingSecret, webhook.ShippingSignatureHeader)
	if !ok {
		return
	}

	event, err := webhook.DecodeShippingEvent(body)
	if err != nil {
		h.ignoreUndecodable(w, providerShipping, err)
		return
	}

	h.dispatch(w, r, providerShipping, idempotency.HashBody(body), func(ctx context.Context) (*service.WebhookResult, error) {
		return h.service.HandleShipping(ctx, event)
	})
}

// authenticate reads the raw body and verifies its signature before anything is decoded.
func (h *WebhookHandler) authenticate(w http.ResponseWriter, r *http.Request, secret, header string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, r, model.ErrInvalidJSON.Wrap(err), h.logger)
		return nil, false
	}

	if err := webhook.Verify(body, secret, r.Header.Get(header)); err != nil {
		response.Error(w, r, err, h.logger)
		return nil, false
	}
	return body, true
}

// ignoreUndecodable acknowledges an authentic body that cannot be parsed. A 4xx would only make
// the provider redeliver the same bytes.
func (h *WebhookHandler) ignoreUndecodable(w http.ResponseWriter, provider string, err error) {
	h.logger.Warn().Err(err).Str("provider", provider).Msg("ignoring undecodable webhook body")
	response.JSON(w, http.StatusOK, &service.WebhookResult{Outcome: service.OutcomeIgnored})
}

func (h *WebhookHandler) dispatch(
	w http.ResponseWriter,
	r *http.Request,
	provider, deliveryID string,
	apply func(ctx context.Context) (*service.WebhookResult, error),
) {
	ctx := r.Context()
	logger := h.logger.With().Str("provider", provider).Str("delivery_id", deliveryID).Logger()

	claimed := false
	if h.guard != nil {
		fresh, err := h.guard.Claim(ctx, provider, deliveryID)
		switch {
		case err != nil:
			// State transitions are idempotent on their own; carry on without the guard.
			logger.Warn().Err(err).Msg("webhook guard unavailable")
		case !fresh:
			logger.Info().Msg("duplicate webhook delivery acknowledged")
			response.JSON(w, http.StatusOK, &service.WebhookResult{Outcome: service.OutcomeNoop})
			return
		default:
			claimed = true
		}
	}

	result, err := apply(ctx)
	if err != nil {
		if claimed {
			if relErr := h.guard.Release(context.WithoutCancel(ctx), provider, deliveryID); relErr != nil {
				logger.Error().Err(relErr).Msg("failed to release webhook claim")
			}
		}
		response.Error(w, r, err, logger)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
