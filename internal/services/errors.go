// Package services implements the business workflows: checkout, order
// lifecycle, ops actions, and stock-request review. This file defines the
// typed domain error every workflow raises for predictable rule violations,
// so handlers can map them to HTTP results consistently.
//
// Fatal (non-domain) errors such as database connectivity or
// payment-provider outages are propagated unchanged and map to a generic
// 5xx upstream.
package services

import "net/http"

// Machine-readable domain error codes. These are part of the API contract:
// clients branch on them programmatically.
const (
	CodeNotFound                = "NOT_FOUND"
	CodeBadRequest              = "BAD_REQUEST"
	CodeInvalidSlot             = "INVALID_SLOT"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeIdempotencyConflict     = "IDEMPOTENCY_CONFLICT"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeInvalidStatus           = "INVALID_STATUS"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeInvalidRejection        = "INVALID_REJECTION"
)

// DomainError is a domain-rule violation carrying a machine-readable code,
// a human message, the HTTP status it maps to, and optional structured
// details (e.g. the missing-item list). Raising one aborts the enclosing
// transaction, leaving no partial writes.
type DomainError struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// Error implements the error interface.
func (e *DomainError) Error() string { return e.Code + ": " + e.Message }

// WithDetails attaches structured details and returns the error for chaining.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	e.Details = details
	return e
}

// NotFound builds a NOT_FOUND (404) domain error.
func NotFound(msg string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: msg, Status: http.StatusNotFound}
}

// BadRequest builds a BAD_REQUEST (400) domain error.
func BadRequest(msg string) *DomainError {
	return &DomainError{Code: CodeBadRequest, Message: msg, Status: http.StatusBadRequest}
}

// InvalidSlot builds an INVALID_SLOT (400) domain error.
func InvalidSlot(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidSlot, Message: msg, Status: http.StatusBadRequest}
}

// InsufficientStock builds an INSUFFICIENT_STOCK (409) domain error.
func InsufficientStock(msg string) *DomainError {
	return &DomainError{Code: CodeInsufficientStock, Message: msg, Status: http.StatusConflict}
}

// IdempotencyConflict builds an IDEMPOTENCY_CONFLICT (409) domain error.
func IdempotencyConflict(msg string) *DomainError {
	return &DomainError{Code: CodeIdempotencyConflict, Message: msg, Status: http.StatusConflict}
}

// InvalidStatusTransition builds an INVALID_STATUS_TRANSITION (409) domain error.
func InvalidStatusTransition(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidStatusTransition, Message: msg, Status: http.StatusConflict}
}

// InvalidStatus builds an INVALID_STATUS (409) domain error (stock request
// already reviewed).
func InvalidStatus(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidStatus, Message: msg, Status: http.StatusConflict}
}

// InvalidQuantity builds an INVALID_QUANTITY (400) domain error.
func InvalidQuantity(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidQuantity, Message: msg, Status: http.StatusBadRequest}
}

// InvalidRejection builds an INVALID_REJECTION (400) domain error.
func InvalidRejection(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidRejection, Message: msg, Status: http.StatusBadRequest}
}
