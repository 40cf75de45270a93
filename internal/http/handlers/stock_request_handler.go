// Stock request HTTP handlers.
//
// Endpoints for the stock-replenishment workflow:
//   - POST  /stock-requests               (employee files a request)
//   - GET   /stock-requests/mine          (employee lists own requests)
//   - GET   /admin/stock-requests         (manager/admin lists all)
//   - POST  /admin/stock-requests/review  (review one request)
//   - POST  /admin/stock-requests/bulk-review
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/services"
)

// bulkReviewRequest carries the best-effort review batch.
type bulkReviewRequest struct {
	Items []services.ReviewDecision `json:"items"`
}

// CreateStockRequest files a new PENDING stock request for the caller.
func (h *Handlers) CreateStockRequest(c *gin.Context) {
	var req services.StockRequestCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid stock request payload", nil)
		return
	}

	uid, _ := actor(c)
	created, err := h.Stock.Create(c.Request.Context(), uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListMyStockRequests returns one page of the caller's own requests.
func (h *Handlers) ListMyStockRequests(c *gin.Context) {
	uid, _ := actor(c)
	limit, offset := pagination(c)

	requests, total, err := h.Stock.ListMine(c.Request.Context(), uid, limit, offset)
	if err != nil {
		failErr(c, err)
		return
	}
	okPage(c, requests, total, limit, offset)
}

// ListStockRequests returns one page of all requests, optionally filtered
// by status.
func (h *Handlers) ListStockRequests(c *gin.Context) {
	limit, offset := pagination(c)
	status := domain.StockRequestStatus(c.Query("status"))

	requests, total, err := h.Stock.ListAdmin(c.Request.Context(), status, limit, offset)
	if err != nil {
		failErr(c, err)
		return
	}
	okPage(c, requests, total, limit, offset)
}

// ReviewStockRequest applies one review decision. The whole review is one
// transaction: any failure leaves the request untouched.
func (h *Handlers) ReviewStockRequest(c *gin.Context) {
	var decision services.ReviewDecision
	if err := c.ShouldBindJSON(&decision); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid review payload", nil)
		return
	}

	uid, _ := actor(c)
	reviewed, err := h.Stock.Review(c.Request.Context(), decision, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, reviewed)
}

// BulkReviewStockRequests reviews a batch best-effort and reports per-item
// outcomes. The response is always 200; inspect each entry's result.
func (h *Handlers) BulkReviewStockRequests(c *gin.Context) {
	var req bulkReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid bulk review payload", nil)
		return
	}
	if len(req.Items) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "items must not be empty", nil)
		return
	}

	uid, _ := actor(c)
	results := h.Stock.BulkReview(c.Request.Context(), req.Items, uid)
	ok(c, http.StatusOK, gin.H{"results": results})
}
