// Checkout HTTP handlers.
//
// This file exposes the REST endpoints for the checkout workflow:
//   - POST /checkout/preview  (price a cart, no side effects)
//   - POST /checkout/confirm  (commit the order, idempotent)
//
// Confirm requires an idempotency key, read from the Idempotency-Key header
// with a body-field fallback for clients that cannot set custom headers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-grocery-backend/internal/services"
)

// headerIdempotencyKey is the canonical way for clients to pass the
// checkout idempotency key.
const headerIdempotencyKey = "Idempotency-Key"

// confirmRequest is the confirm payload: the checkout request plus an
// optional inline idempotency key.
type confirmRequest struct {
	services.CheckoutRequest
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PreviewCheckout prices the cart against the resolved branch and reports
// any lines the branch cannot satisfy. Read-only.
func (h *Handlers) PreviewCheckout(c *gin.Context) {
	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid checkout payload", nil)
		return
	}

	uid, _ := actor(c)
	preview, err := h.Checkout.Preview(c.Request.Context(), uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, preview)
}

// ConfirmCheckout commits the cart into an order. Replays served from the
// idempotency store return 200; a fresh commit returns 201.
func (h *Handlers) ConfirmCheckout(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid checkout payload", nil)
		return
	}

	key := c.GetHeader(headerIdempotencyKey)
	if key == "" {
		key = req.IdempotencyKey
	}

	uid, _ := actor(c)
	conf, err := h.Checkout.Confirm(c.Request.Context(), uid, key, req.CheckoutRequest)
	if err != nil {
		failErr(c, err)
		return
	}

	status := http.StatusCreated
	if conf.Replayed {
		status = http.StatusOK
	}
	ok(c, status, conf)
}
