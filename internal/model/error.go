package model

import (
	"errors"
	"net/http"
)

// ErrorKind groups domain errors by the caller-visible failure class.
type ErrorKind string

const (
	KindNotFound                ErrorKind = "not_found"
	KindInvalidInput            ErrorKind = "invalid_input"
	KindInsufficientStock       ErrorKind = "insufficient_stock"
	KindConcurrentStockConflict ErrorKind = "concurrent_stock_conflict"
	KindInvalidState            ErrorKind = "invalid_state"
	KindInvalidSignature        ErrorKind = "invalid_signature"
	KindUnauthorized            ErrorKind = "unauthorized"
	KindForbidden               ErrorKind = "forbidden"
	KindConflict                ErrorKind = "conflict"
	KindInProgress              ErrorKind = "in_progress"
	KindUnavailable             ErrorKind = "unavailable"
	KindInternal                ErrorKind = "internal"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeInvalidQuantity         = "INVALID_QUANTITY"
	ErrCodeInvalidPricing          = "INVALID_PRICING_INPUT"
	ErrCodeInvalidStatusFilter     = "INVALID_STATUS_FILTER"
	ErrCodePincodeNotServiceable   = "PINCODE_NOT_SERVICEABLE"
	ErrCodeExchangeVariantMismatch = "EXCHANGE_VARIANT_MISMATCH"
	ErrCodeVariantNotFound         = "VARIANT_NOT_FOUND"
	ErrCodeAddressNotFound         = "ADDRESS_NOT_FOUND"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeReturnNotFound          = "RETURN_NOT_FOUND"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeConcurrentStockConflict = "CONCURRENT_STOCK_CONFLICT"
	ErrCodeInvalidOrderState       = "INVALID_ORDER_STATE"
	ErrCodeInvalidReturnState      = "INVALID_RETURN_STATE"
	ErrCodeReturnWindowExpired     = "RETURN_WINDOW_EXPIRED"
	ErrCodeActiveReturnExists      = "ACTIVE_RETURN_EXISTS"
	ErrCodeInvalidSignature        = "INVALID_SIGNATURE"
	ErrCodeIdempotencyKeyReused    = "IDEMPOTENCY_KEY_REUSED"
	ErrCodeRequestInProgress       = "REQUEST_IN_PROGRESS"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeServiceUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

var statusByKind = map[ErrorKind]int{
	KindNotFound:                http.StatusNotFound,
	KindInvalidInput:            http.StatusBadRequest,
	KindInsufficientStock:       http.StatusConflict,
	KindConcurrentStockConflict: http.StatusConflict,
	KindInvalidState:            http.StatusUnprocessableEntity,
	KindInvalidSignature:        http.StatusUnauthorized,
	KindUnauthorized:            http.StatusUnauthorized,
	KindForbidden:               http.StatusForbidden,
	KindConflict:                http.StatusConflict,
	KindInProgress:              http.StatusConflict,
	KindUnavailable:             http.StatusServiceUnavailable,
	KindInternal:                http.StatusInternalServerError,
}

// DomainError is a typed business failure carrying a stable machine-readable code.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so that wrapped copies compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus returns the HTTP status equivalent of the error kind.
func (e *DomainError) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a caller may retry the same request.
func (e *DomainError) Retryable() bool {
	switch e.Kind {
	case KindConcurrentStockConflict, KindUnavailable, KindInProgress:
		return true
	}
	return false
}

// WithMessage returns a copy of the error with a more specific message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: message, cause: e.cause}
}

// Wrap returns a copy of the error that records cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: e.Message, cause: cause}
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// AsDomainError extracts the first DomainError in the chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrInvalidJSON             = NewDomainError(KindInvalidInput, ErrCodeInvalidJSON, "Request body is not valid JSON")
	ErrValidation              = NewDomainError(KindInvalidInput, ErrCodeValidation, "Request validation failed")
	ErrInvalidQuantity         = NewDomainError(KindInvalidInput, ErrCodeInvalidQuantity, "Quantity must be between 1 and 10")
	ErrInvalidPricing          = NewDomainError(KindInvalidInput, ErrCodeInvalidPricing, "Pricing inputs are invalid")
	ErrInvalidStatusFilter     = NewDomainError(KindInvalidInput, ErrCodeInvalidStatusFilter, "Unknown status filter")
	ErrPincodeNotServiceable   = NewDomainError(KindInvalidInput, ErrCodePincodeNotServiceable, "Delivery pincode is not serviceable")
	ErrExchangeVariantMismatch = NewDomainError(KindInvalidInput, ErrCodeExchangeVariantMismatch, "Exchange variant must belong to the ordered product")
	ErrVariantNotFound         = NewDomainError(KindNotFound, ErrCodeVariantNotFound, "Product variant not found or unavailable")
	ErrAddressNotFound         = NewDomainError(KindNotFound, ErrCodeAddressNotFound, "Delivery address not found")
	ErrOrderNotFound           = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrReturnNotFound          = NewDomainError(KindNotFound, ErrCodeReturnNotFound, "Return not found")
	ErrInsufficientStock       = NewDomainError(KindInsufficientStock, ErrCodeInsufficientStock, "Requested quantity exceeds available stock")
	ErrConcurrentStockConflict = NewDomainError(KindConcurrentStockConflict, ErrCodeConcurrentStockConflict, "Stock changed while placing the order, please retry")
	ErrInvalidOrderState       = NewDomainError(KindInvalidState, ErrCodeInvalidOrderState, "Order status does not allow this action")
	ErrInvalidReturnState      = NewDomainError(KindInvalidState, ErrCodeInvalidReturnState, "Return status does not allow this action")
	ErrReturnWindowExpired     = NewDomainError(KindInvalidState, ErrCodeReturnWindowExpired, "Return window has expired")
	ErrActiveReturnExists      = NewDomainError(KindInvalidState, ErrCodeActiveReturnExists, "An active return already exists for this order")
	ErrInvalidSignature        = NewDomainError(KindInvalidSignature, ErrCodeInvalidSignature, "Webhook signature verification failed")
	ErrIdempotencyKeyReused    = NewDomainError(KindConflict, ErrCodeIdempotencyKeyReused, "Idempotency key reused with a different request body")
	ErrRequestInProgress       = NewDomainError(KindInProgress, ErrCodeRequestInProgress, "A request with this idempotency key is still being processed, please retry")
	ErrUnauthorised            = NewDomainError(KindUnauthorized, ErrCodeUnauthorised, "Authentication required")
	ErrForbidden               = NewDomainError(KindForbidden, ErrCodeForbidden, "Access denied")
	ErrServiceUnavailable      = NewDomainError(KindUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable, please retry")
	ErrInternal                = NewDomainError(KindInternal, ErrCodeInternalError, "Internal server error")
)
