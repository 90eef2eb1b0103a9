package handler

import (
	"net/http"

	"clothing-marketplace/internal/response"
	"clothing-marketplace/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.CatalogService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// Variants handles GET /api/products/{productID}/variants requests.
func (h *ProductHandler) Variants(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productID")
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	variants, err := h.service.ListVariants(r.Context(), productID)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, variants)
}
