// Package apperror provides structured error handling for the ledger core.
// All business errors must use AppError so callers receive a stable reason
// code and enough detail to identify the offending record, never a raw
// persistence-layer error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"carat/internal/core/id"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation       = "VALIDATION_ERROR"
	CodeEmptyTransaction = "EMPTY_TRANSACTION"

	// Business rule violations (422)
	CodeInsufficientStock = "INSUFFICIENT_STOCK"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict        = "CONFLICT"
	CodeBarcodeConflict = "BARCODE_CONFLICT"
	CodeBranchMismatch  = "BRANCH_VARIANT_MISMATCH"
	CodeStockReferenced = "STOCK_REFERENCED"
)

// AppError is the standard error type for the service.
// It implements the error interface and provides structured details for
// API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewEmptyTransaction is returned when a sale or purchase carries no items.
// Rejected before any transaction opens.
func NewEmptyTransaction() *AppError {
	return &AppError{
		Code:       CodeEmptyTransaction,
		Message:    "transaction requires at least one item",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock is returned when a sale would drive a stock quantity
// negative. Carries the offending stock id so the caller can identify the item.
func NewInsufficientStock(stockID id.ID, requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"stock_id":  stockID.String(),
			"requested": requested,
			"available": available,
		},
	}
}

// NewBarcodeConflict is returned when a barcode is reused across a different
// branch/variant pairing. Signals data corruption, the whole transaction fails.
func NewBarcodeConflict(barcode string) *AppError {
	return &AppError{
		Code:       CodeBarcodeConflict,
		Message:    "barcode already bound to a different branch or variant",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"barcode": barcode},
	}
}

// NewBranchMismatch is returned when a stock row's branch/variant does not
// match the expected pairing.
func NewBranchMismatch(stockID id.ID) *AppError {
	return &AppError{
		Code:       CodeBranchMismatch,
		Message:    "stock branch or variant mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"stock_id": stockID.String()},
	}
}

// NewStockReferenced is returned when deleting a stock row that is still
// referenced by ledger lines or lifecycle events. Delete is refused, never
// cascaded.
func NewStockReferenced(stockID id.ID) *AppError {
	return &AppError{
		Code:       CodeStockReferenced,
		Message:    "stock is referenced by ledger records and cannot be deleted",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"stock_id": stockID.String()},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewDatabase wraps a persistence failure without leaking it to the client.
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsForbidden checks if error is CodeForbidden
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

// IsInsufficientStock checks if error is CodeInsufficientStock
func IsInsufficientStock(err error) bool {
	return hasCode(err, CodeInsufficientStock)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
