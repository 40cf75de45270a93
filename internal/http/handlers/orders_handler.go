// Customer order HTTP handlers.
//
// Endpoints under /orders scoped to the requesting customer:
//   - GET    /orders           (list own orders, newest first)
//   - GET    /orders/{id}      (fetch one own order)
//   - POST   /orders/{id}/cancel
//
// Ownership is enforced in the service layer; an order belonging to another
// user is indistinguishable from a missing one.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListMyOrders returns one page of the caller's orders.
func (h *Handlers) ListMyOrders(c *gin.Context) {
	uid, _ := actor(c)
	limit, offset := pagination(c)

	orders, total, err := h.Orders.ListOrders(c.Request.Context(), uid, limit, offset)
	if err != nil {
		failErr(c, err)
		return
	}
	okPage(c, orders, total, limit, offset)
}

// GetMyOrder returns one of the caller's orders with items and fulfillment
// details.
func (h *Handlers) GetMyOrder(c *gin.Context) {
	uid, _ := actor(c)

	order, err := h.Orders.GetOrder(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

// CancelMyOrder cancels one of the caller's orders. Only orders still in
// CREATED can be cancelled.
func (h *Handlers) CancelMyOrder(c *gin.Context) {
	uid, _ := actor(c)

	order, err := h.Orders.CancelOrder(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}
