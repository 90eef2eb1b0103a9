package handler

import (
	"net/http"

	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/response"
	"clothing-marketplace/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	var req model.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), p, &req)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	params, err := listParams(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	page, err := h.service.ListOrders(r.Context(), p, params)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, page)
}

// GetByID handles GET /api/orders/{orderID} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), p, orderID)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, order)
}

// History handles GET /api/orders/{orderID}/history requests.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	history, err := h.service.History(r.Context(), p, orderID)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, history)
}

// Cancel handles POST /api/orders/{orderID}/cancel requests. The body is optional.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	var req model.CancelOrderRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	order, err := h.service.CancelOrder(r.Context(), p, orderID, &req)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, order)
}
