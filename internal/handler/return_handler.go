package handler

import (
	"context"
	"net/http"

	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/response"
	"clothing-marketplace/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReturnHandler handles return and exchange HTTP requests.
type ReturnHandler struct {
	service service.ReturnService
	logger  zerolog.Logger
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(service service.ReturnService, logger zerolog.Logger) *ReturnHandler {
	return &ReturnHandler{
		service: service,
		logger:  logger.With().Str("handler", "return").Logger(),
	}
}

// Create handles POST /api/returns requests.
func (h *ReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	var req model.CreateReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	ret, err := h.service.CreateReturn(r.Context(), p, &req)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusCreated, ret)
}

// List handles GET /api/returns requests.
func (h *ReturnHandler) List(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.service.ListReturns(r.Context(), p, params)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, page)
}

// GetByID handles GET /api/returns/{returnID} requests.
func (h *ReturnHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.GetReturn)
}

// Cancel handles POST /api/returns/{returnID}/cancel requests.
func (h *ReturnHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.CancelReturn)
}

// Approve handles POST /api/admin/returns/{returnID}/approve requests.
func (h *ReturnHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.ApproveReturn)
}

// Reject handles POST /api/admin/returns/{returnID}/reject requests.
func (h *ReturnHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.RejectReturn)
}

type returnAction func(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Return, error)

// act runs a single-return operation addressed by the returnID URL parameter.
func (h *ReturnHandler) act(w http.ResponseWriter, r *http.Request, fn returnAction) {
	p, err := principal(r)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	returnID, err := uuidParam(r, "returnID")
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	ret, err := fn(r.Context(), p, returnID)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, ret)
}
