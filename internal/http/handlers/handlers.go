// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they bind input, resolve the acting user
// from the request context (authentication itself is an upstream concern),
// delegate to application services, and translate errors into the response
// envelope.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/http/middleware"
	"github.com/tbourn/go-grocery-backend/internal/services"
	"github.com/tbourn/go-grocery-backend/internal/utils"
)

// Handlers bundles the application services behind the HTTP endpoints.
type Handlers struct {
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Ops      *services.OpsOrderService
	Stock    *services.StockRequestService
}

// New constructs the handler set.
func New(checkout *services.CheckoutService, orders *services.OrderService, ops *services.OpsOrderService, stock *services.StockRequestService) *Handlers {
	return &Handlers{Checkout: checkout, Orders: orders, Ops: ops, Stock: stock}
}

// actor returns the requesting user's identity and role as stashed by the
// Actor middleware.
func actor(c *gin.Context) (string, domain.Role) {
	return middleware.UserID(c), middleware.UserRole(c)
}

// pagination reads limit/offset query parameters, clamped to sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit = utils.AtoiDefault(c.Query("limit"), 50)
	offset = utils.AtoiDefault(c.Query("offset"), 0)
	return utils.ClampLimitOffset(limit, offset)
}
