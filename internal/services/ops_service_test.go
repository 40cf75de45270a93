package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/repo"
)

func newOps(db *gorm.DB) *OpsOrderService {
	return NewOpsOrderService(db, GormAuditSink{})
}

func attachDeliverySlot(t *testing.T, db *gorm.DB, order *domain.Order, slot *domain.DeliverySlot) {
	t.Helper()
	d := &domain.OrderDeliveryDetails{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		DeliverySlotID: slot.ID,
		Address:        "1 Main St",
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("attach delivery: %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	picked := []domain.OrderItem{{PickedStatus: domain.PickedPicked}, {PickedStatus: domain.PickedPicked}}
	partial := []domain.OrderItem{{PickedStatus: domain.PickedPicked}, {PickedStatus: domain.PickedPending}}
	withMissing := []domain.OrderItem{{PickedStatus: domain.PickedPicked}, {PickedStatus: domain.PickedMissing}}

	cases := []struct {
		name     string
		from, to domain.OrderStatus
		role     domain.Role
		items    []domain.OrderItem
		want     bool
	}{
		{"manager may do anything", domain.OrderReady, domain.OrderCreated, domain.RoleManager, nil, true},
		{"admin may do anything", domain.OrderCancelled, domain.OrderCompleted, domain.RoleAdmin, nil, true},
		{"customer may do nothing", domain.OrderCreated, domain.OrderInProgress, domain.RoleCustomer, nil, false},
		{"employee starts picking", domain.OrderCreated, domain.OrderInProgress, domain.RoleEmployee, partial, true},
		{"employee ready when all picked", domain.OrderInProgress, domain.OrderReady, domain.RoleEmployee, picked, true},
		{"employee ready blocked on pending", domain.OrderInProgress, domain.OrderReady, domain.RoleEmployee, partial, false},
		{"employee missing needs a missing item", domain.OrderInProgress, domain.OrderMissing, domain.RoleEmployee, withMissing, true},
		{"employee missing blocked without one", domain.OrderInProgress, domain.OrderMissing, domain.RoleEmployee, picked, false},
		{"employee cannot skip states", domain.OrderCreated, domain.OrderReady, domain.RoleEmployee, picked, false},
		{"employee cannot complete", domain.OrderReady, domain.OrderCompleted, domain.RoleEmployee, picked, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to, tc.role, tc.items); got != tc.want {
				t.Fatalf("CanTransition(%s→%s, %s) = %v; want %v", tc.from, tc.to, tc.role, got, tc.want)
			}
		})
	}
}

func TestOps_UpdateOrderStatus_EmployeeFlow(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	order := seedOrder(t, db, "cust", branch.ID, domain.OrderCreated,
		domain.OrderItem{ProductID: "p1", Name: "Milk", SKU: "S1", Quantity: 1},
	)
	svc := newOps(db)
	ctx := context.Background()

	// CREATED -> IN_PROGRESS allowed for employees
	updated, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderInProgress, "emp1", domain.RoleEmployee)
	if err != nil {
		t.Fatalf("start picking: %v", err)
	}
	if updated.Status != domain.OrderInProgress {
		t.Fatalf("status = %s", updated.Status)
	}

	// IN_PROGRESS -> READY blocked while the item is pending
	_, err = svc.UpdateOrderStatus(ctx, order.ID, domain.OrderReady, "emp1", domain.RoleEmployee)
	if domainCode(err) != CodeInvalidStatusTransition {
		t.Fatalf("expected INVALID_STATUS_TRANSITION, got %v", err)
	}

	// Pick the item, then READY goes through
	if _, err := svc.UpdateItemPickedStatus(ctx, order.ID, order.Items[0].ID, domain.PickedPicked, "emp1"); err != nil {
		t.Fatalf("pick item: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderReady, "emp1", domain.RoleEmployee); err != nil {
		t.Fatalf("ready: %v", err)
	}

	// Audit entries for both status changes and the item update
	if n := countAudit(t, db, AuditOrderUpdateStatus); n != 2 {
		t.Fatalf("status audits = %d; want 2", n)
	}
	if n := countAudit(t, db, AuditItemUpdatePickStatus); n != 1 {
		t.Fatalf("item audits = %d; want 1", n)
	}
}

func TestOps_UpdateOrderStatus_ManagerOverridesAndValidation(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	order := seedOrder(t, db, "cust", branch.ID, domain.OrderReady)
	svc := newOps(db)
	ctx := context.Background()

	// Manager may move backwards
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderCreated, "mgr1", domain.RoleManager); err != nil {
		t.Fatalf("manager override: %v", err)
	}

	// Unknown status rejected before touching the DB
	_, err := svc.UpdateOrderStatus(ctx, order.ID, "LOST", "mgr1", domain.RoleManager)
	if domainCode(err) != CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}

	// Missing order
	_, err = svc.UpdateOrderStatus(ctx, "nope", domain.OrderReady, "mgr1", domain.RoleManager)
	if domainCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestOps_UpdateItemPickedStatus_Validation(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	order := seedOrder(t, db, "cust", branch.ID, domain.OrderInProgress,
		domain.OrderItem{ProductID: "p1", Name: "Milk", SKU: "S1", Quantity: 1},
	)
	svc := newOps(db)
	ctx := context.Background()

	_, err := svc.UpdateItemPickedStatus(ctx, order.ID, order.Items[0].ID, "SHATTERED", "emp1")
	if domainCode(err) != CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}

	_, err = svc.UpdateItemPickedStatus(ctx, order.ID, "nope", domain.PickedPicked, "emp1")
	if domainCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown item, got %v", err)
	}

	_, err = svc.UpdateItemPickedStatus(ctx, "nope", order.Items[0].ID, domain.PickedPicked, "emp1")
	if domainCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown order, got %v", err)
	}
}

func TestOps_ListOrders_UrgencyRankAndFilters(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	svc := newOps(db)
	ctx := context.Background()

	early := seedSlot(t, db, branch.ID, 8*60, 10*60, true)
	late := seedSlot(t, db, branch.ID, 18*60, 20*60, true)

	pickup := seedOrder(t, db, "cust", branch.ID, domain.OrderCreated,
		domain.OrderItem{ProductID: "p1", Name: "A", SKU: "S1", Quantity: 1, PickedStatus: domain.PickedPicked},
	)
	lateOrder := seedOrder(t, db, "cust", branch.ID, domain.OrderCreated)
	attachDeliverySlot(t, db, lateOrder, late)
	earlyOrder := seedOrder(t, db, "cust", branch.ID, domain.OrderCreated,
		domain.OrderItem{ProductID: "p2", Name: "B", SKU: "S2", Quantity: 1},
		domain.OrderItem{ProductID: "p3", Name: "C", SKU: "S3", Quantity: 1},
	)
	attachDeliverySlot(t, db, earlyOrder, early)

	page, total, err := svc.ListOrders(ctx, repo.OrderFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if total != 3 || len(page) != 3 {
		t.Fatalf("total = %d len = %d; want 3/3", total, len(page))
	}
	// Earliest slot first, pickup (sentinel) last
	if page[0].OrderID != earlyOrder.ID || page[1].OrderID != lateOrder.ID || page[2].OrderID != pickup.ID {
		t.Fatalf("unexpected queue order: %+v", page)
	}
	if page[0].UrgencyRank != 8*60 || page[2].UrgencyRank != 24*60 {
		t.Fatalf("unexpected ranks: %d, %d", page[0].UrgencyRank, page[2].UrgencyRank)
	}
	// Pending counts exclude picked items
	if page[0].ItemsPending != 2 || page[2].ItemsPending != 0 {
		t.Fatalf("unexpected pending counts: %+v", page)
	}

	// Status filter
	if _, err := svc.UpdateOrderStatus(ctx, pickup.ID, domain.OrderInProgress, "mgr", domain.RoleManager); err != nil {
		t.Fatalf("transition: %v", err)
	}
	page, total, err = svc.ListOrders(ctx, repo.OrderFilter{Status: domain.OrderInProgress}, 10, 0)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 1 || page[0].OrderID != pickup.ID {
		t.Fatalf("status filter unexpected: total=%d %+v", total, page)
	}

	// Date filter excluding everything
	future := time.Now().Add(time.Hour)
	_, total, err = svc.ListOrders(ctx, repo.OrderFilter{DateFrom: &future}, 10, 0)
	if err != nil {
		t.Fatalf("date filter: %v", err)
	}
	if total != 0 {
		t.Fatalf("future filter total = %d; want 0", total)
	}
}

func TestOps_ListOrders_PaginationBeforeRanking(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	svc := newOps(db)

	for i := 0; i < 5; i++ {
		seedOrder(t, db, "cust", branch.ID, domain.OrderCreated)
	}

	page, total, err := svc.ListOrders(context.Background(), repo.OrderFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("total = %d len = %d; want 5/2", total, len(page))
	}
}

func TestOps_SyncOrder(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	order := seedOrder(t, db, "cust", branch.ID, domain.OrderReady)
	svc := newOps(db)

	if err := svc.SyncOrder(context.Background(), order.ID, "emp1"); err != nil {
		t.Fatalf("SyncOrder: %v", err)
	}
	if n := countAudit(t, db, AuditOrderSync); n != 1 {
		t.Fatalf("sync audits = %d; want 1", n)
	}
	// Status untouched
	var got domain.Order
	db.First(&got, "id = ?", order.ID)
	if got.Status != domain.OrderReady {
		t.Fatalf("sync mutated status: %s", got.Status)
	}

	if err := svc.SyncOrder(context.Background(), "nope", "emp1"); domainCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestOps_ReportDamage(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	order := seedOrder(t, db, "cust", branch.ID, domain.OrderInProgress,
		domain.OrderItem{ProductID: "p1", Name: "Jar", SKU: "S1", Quantity: 1},
	)
	svc := newOps(db)
	ctx := context.Background()

	if err := svc.ReportDamage(ctx, order.ID, order.Items[0].ID, DamageReport{Reason: "crushed"}, "emp1"); err != nil {
		t.Fatalf("ReportDamage: %v", err)
	}
	if n := countAudit(t, db, AuditItemReportDamage); n != 1 {
		t.Fatalf("damage audits = %d; want 1", n)
	}

	if err := svc.ReportDamage(ctx, order.ID, order.Items[0].ID, DamageReport{}, "emp1"); domainCode(err) != CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST without reason, got %v", err)
	}
	if err := svc.ReportDamage(ctx, order.ID, "nope", DamageReport{Reason: "x"}, "emp1"); domainCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown item, got %v", err)
	}
}

func TestOps_GetOrder(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db, true)
	order := seedOrder(t, db, "cust", branch.ID, domain.OrderCreated,
		domain.OrderItem{ProductID: "p1", Name: "Milk", SKU: "S1", Quantity: 2},
	)
	svc := newOps(db)

	got, err := svc.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.ID != order.ID || len(got.Items) != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := svc.GetOrder(context.Background(), "nope"); domainCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
