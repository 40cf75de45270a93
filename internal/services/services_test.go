package services

import (
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

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
	return db
}

// --- fixtures ---

func seedBranch(t *testing.T, db *gorm.DB, active bool) *domain.Branch {
	t.Helper()
	b := &domain.Branch{ID: uuid.NewString(), Name: "Central", IsActive: active}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	return b
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:    uuid.NewString(),
		Name:  name,
		SKU:   "SKU-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString(price),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func seedInventory(t *testing.T, db *gorm.DB, branchID, productID string, qty int) *domain.Inventory {
	t.Helper()
	inv := &domain.Inventory{
		ID:                uuid.NewString(),
		ProductID:         productID,
		BranchID:          branchID,
		AvailableQuantity: qty,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return inv
}

func seedCart(t *testing.T, db *gorm.DB, userID string, lines ...domain.CartItem) *domain.Cart {
	t.Helper()
	cart := &domain.Cart{ID: uuid.NewString(), UserID: userID}
	if err := db.Create(cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for i := range lines {
		lines[i].ID = uuid.NewString()
		lines[i].CartID = cart.ID
		if err := db.Create(&lines[i]).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}
	return cart
}

func seedSlot(t *testing.T, db *gorm.DB, branchID string, startMinute, endMinute int, active bool) *domain.DeliverySlot {
	t.Helper()
	s := &domain.DeliverySlot{
		ID:          uuid.NewString(),
		BranchID:    branchID,
		StartMinute: startMinute,
		EndMinute:   endMinute,
		IsActive:    active,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return s
}

func seedOrder(t *testing.T, db *gorm.DB, userID, branchID string, status domain.OrderStatus, items ...domain.OrderItem) *domain.Order {
	t.Helper()
	o := &domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     newOrderNumber(),
		UserID:          userID,
		BranchID:        branchID,
		TotalAmount:     decimal.RequireFromString("10"),
		FulfillmentType: domain.FulfillmentPickup,
		Status:          status,
	}
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].OrderID = o.ID
		if items[i].PickedStatus == "" {
			items[i].PickedStatus = domain.PickedPending
		}
		o.Items = append(o.Items, items[i])
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

// countAudit counts audit entries matching the given action.
func countAudit(t *testing.T, db *gorm.DB, action string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.AuditEntry{}).Where("action = ?", action).Count(&n).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

// defaultSettings mirrors the shipped configuration defaults.
func defaultSettings(branchID string) CheckoutSettings {
	return CheckoutSettings{
		DeliveryMinTotal:       decimal.RequireFromString("150"),
		DeliveryFeeUnderMin:    decimal.RequireFromString("30"),
		DeliverySourceBranchID: branchID,
	}
}

// domainCode extracts the DomainError code, or "" for other errors.
func domainCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
