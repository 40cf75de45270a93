// Package handlers defines HTTP-layer error codes used across all API
// endpoints. Domain workflows raise services.DomainError with their own
// codes (NOT_FOUND, INSUFFICIENT_STOCK, ...); the constants here cover the
// transport-level failures the handlers raise themselves.
package handlers

const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited      = "TOO_MANY_REQUESTS"
	ErrCodeInternal         = "INTERNAL"
)
