// Ops order HTTP handlers.
//
// Endpoints under /ops/orders for fulfillment staff:
//   - GET    /ops/orders                       (urgency-ranked queue)
//   - GET    /ops/orders/{id}
//   - PATCH  /ops/orders/{id}/status           (lifecycle transition)
//   - PATCH  /ops/orders/{id}/items/{itemID}/status
//   - POST   /ops/orders/{id}/sync
//   - POST   /ops/orders/{id}/items/{itemID}/damage-report
//
// Access is gated to staff roles by middleware.RequireRole in the router;
// per-transition role rules live in the service layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/repo"
	"github.com/tbourn/go-grocery-backend/internal/services"
)

// updateStatusRequest asks for one lifecycle transition.
type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// updateItemStatusRequest asks for one picked-status update.
type updateItemStatusRequest struct {
	PickedStatus domain.PickedStatus `json:"picked_status"`
}

// ListOpsOrders returns one page of the ops queue, filtered by status and
// creation-date range, sorted by urgency.
func (h *Handlers) ListOpsOrders(c *gin.Context) {
	limit, offset := pagination(c)

	f := repo.OrderFilter{Status: domain.OrderStatus(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown order status", nil)
		return
	}
	var parseErr bool
	f.DateFrom, parseErr = parseDateQuery(c, "date_from")
	if parseErr {
		return
	}
	f.DateTo, parseErr = parseDateQuery(c, "date_to")
	if parseErr {
		return
	}

	orders, total, err := h.Ops.ListOrders(c.Request.Context(), f, limit, offset)
	if err != nil {
		failErr(c, err)
		return
	}
	okPage(c, orders, total, limit, offset)
}

// GetOpsOrder returns one order with items and fulfillment details.
func (h *Handlers) GetOpsOrder(c *gin.Context) {
	order, err := h.Ops.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

// UpdateOrderStatus applies one lifecycle transition under the caller's role.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid status payload", nil)
		return
	}

	uid, role := actor(c)
	order, err := h.Ops.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status, uid, role)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

// UpdateItemPickedStatus marks one order item PENDING, PICKED, or MISSING.
func (h *Handlers) UpdateItemPickedStatus(c *gin.Context) {
	var req updateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid status payload", nil)
		return
	}

	uid, _ := actor(c)
	order, err := h.Ops.UpdateItemPickedStatus(c.Request.Context(), c.Param("id"), c.Param("itemID"), req.PickedStatus, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

// SyncOrder records an external-system sync marker for the order.
func (h *Handlers) SyncOrder(c *gin.Context) {
	uid, _ := actor(c)
	if err := h.Ops.SyncOrder(c.Request.Context(), c.Param("id"), uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"synced": true})
}

// ReportDamage files a damage report against one order item.
func (h *Handlers) ReportDamage(c *gin.Context) {
	var report services.DamageReport
	if err := c.ShouldBindJSON(&report); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid damage report payload", nil)
		return
	}

	uid, _ := actor(c)
	if err := h.Ops.ReportDamage(c.Request.Context(), c.Param("id"), c.Param("itemID"), report, uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"reported": true})
}

// parseDateQuery reads an RFC 3339 or date-only query parameter. On parse
// failure it writes the error response and reports true.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts, false
		}
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be RFC 3339 or YYYY-MM-DD", nil)
	return nil, true
}
