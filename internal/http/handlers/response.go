// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response envelope used across all
// endpoints. Success bodies are wrapped as {"data": ...}, list endpoints
// additionally carry {"pagination": {total, limit, offset}}, and failures
// are {"error": {code, message, details}}. The envelope is part of the API
// contract: clients branch on error.code programmatically.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-grocery-backend/internal/http/middleware"
	"github.com/tbourn/go-grocery-backend/internal/services"
)

// Pagination is the metadata attached to list responses.
type Pagination struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// ErrorBody is the inner error object of the failure envelope.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ok writes a success envelope with the given HTTP status.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

// okPage writes a success envelope with pagination metadata.
func okPage(c *gin.Context, data any, total int64, limit, offset int) {
	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"pagination": Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// fail writes a failure envelope and aborts the request. Server errors
// (>= 500) are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string, details map[string]any) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": ErrorBody{
		Code:    code,
		Message: msg,
		Details: details,
	}})
}

// Fail is the exported variant of fail for router-level handlers
// (NoRoute, NoMethod).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg, nil) }

// failErr translates a service error into the failure envelope. Domain
// errors carry their own status/code/details; everything else is a generic
// 500 that leaks no internals.
func failErr(c *gin.Context, err error) {
	var de *services.DomainError
	if errors.As(err, &de) {
		fail(c, de.Status, de.Code, de.Message, de.Details)
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", nil)
}
