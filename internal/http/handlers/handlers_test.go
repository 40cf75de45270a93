package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/http/middleware"
	"github.com/tbourn/go-grocery-backend/internal/repo"
	"github.com/tbourn/go-grocery-backend/internal/services"
)

// testEnv wires the full handler set over a per-test in-memory database so
// handler tests exercise the real services, not stubs.
type testEnv struct {
	DB     *gorm.DB
	Engine *gin.Engine
	H      *Handlers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:hnd_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	sink := services.GormAuditSink{}
	settings := services.CheckoutSettings{
		DeliveryMinTotal:    decimal.RequireFromString("150"),
		DeliveryFeeUnderMin: decimal.RequireFromString("30"),
	}
	h := New(
		services.NewCheckoutService(db, sink, services.StubPaymentProvider{}, settings),
		services.NewOrderService(db, sink),
		services.NewOpsOrderService(db, sink),
		services.NewStockRequestService(db, sink),
	)

	r := gin.New()
	r.Use(middleware.Actor())

	r.POST("/checkout/preview", h.PreviewCheckout)
	r.POST("/checkout/confirm", h.ConfirmCheckout)
	r.GET("/orders", h.ListMyOrders)
	r.GET("/orders/:id", h.GetMyOrder)
	r.POST("/orders/:id/cancel", h.CancelMyOrder)
	r.GET("/ops/orders", h.ListOpsOrders)
	r.GET("/ops/orders/:id", h.GetOpsOrder)
	r.PATCH("/ops/orders/:id/status", h.UpdateOrderStatus)
	r.PATCH("/ops/orders/:id/items/:itemID/status", h.UpdateItemPickedStatus)
	r.POST("/ops/orders/:id/sync", h.SyncOrder)
	r.POST("/ops/orders/:id/items/:itemID/damage-report", h.ReportDamage)
	r.POST("/stock-requests", h.CreateStockRequest)
	r.GET("/stock-requests/mine", h.ListMyStockRequests)
	r.GET("/admin/stock-requests", h.ListStockRequests)
	r.POST("/admin/stock-requests/review", h.ReviewStockRequest)
	r.POST("/admin/stock-requests/bulk-review", h.BulkReviewStockRequests)

	return &testEnv{DB: db, Engine: r, H: h}
}

// do performs a request as the given user/role and returns the recorder.
func (e *testEnv) do(method, path, userID string, role domain.Role, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
		req.Header.Set(middleware.HeaderUserRole, string(role))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.Engine.ServeHTTP(w, req)
	return w
}

// envelope is the decoded response body shared by all endpoints.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Error      *ErrorBody      `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	return env
}

// ---- seed fixtures ----

func (e *testEnv) seedBranch(t *testing.T) *domain.Branch {
	t.Helper()
	b := &domain.Branch{ID: uuid.NewString(), Name: "Central", IsActive: true}
	if err := e.DB.Create(b).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	return b
}

func (e *testEnv) seedCatalog(t *testing.T, branchID string, qty int, price string) *domain.Product {
	t.Helper()
	p := &domain.Product{ID: uuid.NewString(), Name: "Milk", SKU: "SKU-" + uuid.NewString()[:8], Price: decimal.RequireFromString(price)}
	if err := e.DB.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	inv := &domain.Inventory{ID: uuid.NewString(), ProductID: p.ID, BranchID: branchID, AvailableQuantity: qty}
	if err := e.DB.Create(inv).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return p
}

func (e *testEnv) seedCart(t *testing.T, userID, productID string, qty int, unitPrice string) *domain.Cart {
	t.Helper()
	cart := &domain.Cart{ID: uuid.NewString(), UserID: userID}
	if err := e.DB.Create(cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	item := &domain.CartItem{
		ID: uuid.NewString(), CartID: cart.ID, ProductID: productID,
		Quantity: qty, UnitPrice: decimal.RequireFromString(unitPrice),
	}
	if err := e.DB.Create(item).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
	return cart
}

// confirmOrder runs a full pickup checkout and returns the created order ID.
func (e *testEnv) confirmOrder(t *testing.T, userID, branchID, cartID string) string {
	t.Helper()
	w := e.do("POST", "/checkout/confirm", userID, domain.RoleCustomer, services.CheckoutRequest{
		CartID:          cartID,
		FulfillmentType: domain.FulfillmentPickup,
		BranchID:        branchID,
	}, map[string]string{headerIdempotencyKey: uuid.NewString()})
	if w.Code != 201 {
		t.Fatalf("confirm checkout: status %d body %s", w.Code, w.Body.String())
	}
	var env struct {
		Data services.CheckoutConfirmation `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode confirm: %v", err)
	}
	if env.Data.OrderID == "" {
		t.Fatalf("confirm returned no order id: %s", w.Body.String())
	}
	return env.Data.OrderID
}
