// Package services – OpsOrderService
//
// This file implements the order lifecycle state machine operated by
// fulfillment staff: status transitions, per-item picked-status updates,
// and the urgency-ranked order queue. All transitions load the order under
// a row lock so concurrent updates serialize on the database.
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/repo"
)

// urgencySentinel ranks pickup and slotless orders after every slotted
// delivery (minutes in a day).
const urgencySentinel = 24 * 60

// OpsOrderSummary is one row of the ops order queue.
type OpsOrderSummary struct {
	OrderID      string             `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	Status       domain.OrderStatus `json:"status"`
	UrgencyRank  int                `json:"urgency_rank"`
	ItemsPending int                `json:"items_pending"`
	CreatedAt    time.Time          `json:"created_at"`
}

// OpsOrderService owns post-creation order state for ops/fulfillment staff.
type OpsOrderService struct {
	DB    *gorm.DB
	Audit AuditSink
}

// NewOpsOrderService wires the service with its audit sink.
func NewOpsOrderService(db *gorm.DB, sink AuditSink) *OpsOrderService {
	return &OpsOrderService{DB: db, Audit: sink}
}

// ListOrders returns one page of the ops queue. Pagination happens at the
// database level first; the fetched page is then re-sorted ascending by
// urgency rank. The two are independent on purpose: the rank only reorders
// the page already fetched.
func (s *OpsOrderService) ListOrders(ctx context.Context, f repo.OrderFilter, limit, offset int) ([]OpsOrderSummary, int64, error) {
	tr := otel.Tracer("services/OpsOrderService")
	ctx, span := tr.Start(ctx, "ListOrders",
		trace.WithAttributes(
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	defer span.End()

	total, err := repo.CountOrders(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	orders, err := repo.ListOrders(ctx, s.DB, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OpsOrderSummary, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		pending := 0
		for _, item := range o.Items {
			if item.PickedStatus != domain.PickedPicked {
				pending++
			}
		}
		out = append(out, OpsOrderSummary{
			OrderID:      o.ID,
			OrderNumber:  o.OrderNumber,
			Status:       o.Status,
			UrgencyRank:  urgencyRank(o),
			ItemsPending: pending,
			CreatedAt:    o.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UrgencyRank < out[j].UrgencyRank })
	return out, total, nil
}

// GetOrder returns an order with its items for the ops detail view.
func (s *OpsOrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := repo.GetOrderWithItems(ctx, s.DB, orderID, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NotFound("Order not found")
		}
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus transitions an order, enforcing the role-gated
// transition table under the order row lock.
func (s *OpsOrderService) UpdateOrderStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus, actorID string, role domain.Role) (*domain.Order, error) {
	tr := otel.Tracer("services/OpsOrderService")
	ctx, span := tr.Start(ctx, "UpdateOrderStatus",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.status", string(newStatus)),
		),
	)
	defer span.End()

	if !newStatus.Valid() {
		return nil, BadRequest("Invalid status")
	}

	var updated *domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := repo.GetOrderWithItems(ctx, tx, orderID, true)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NotFound("Order not found")
			}
			return err
		}
		if !CanTransition(order.Status, newStatus, role, order.Items) {
			return InvalidStatusTransition("Status transition not allowed")
		}
		old := order.Status
		if err := tx.Model(&domain.Order{}).Where("id = ?", order.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx, AuditEvent{
			EntityType:  AuditEntityOrder,
			Action:      AuditOrderUpdateStatus,
			ActorUserID: actorID,
			EntityID:    order.ID,
			OldValue:    map[string]any{"status": old},
			NewValue:    map[string]any{"status": newStatus},
		}); err != nil {
			return err
		}
		order.Status = newStatus
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateItemPickedStatus sets one item's picked status under the order row
// lock. Role restrictions beyond route-level authorization do not apply.
func (s *OpsOrderService) UpdateItemPickedStatus(ctx context.Context, orderID, itemID string, newStatus domain.PickedStatus, actorID string) (*domain.Order, error) {
	if !newStatus.Valid() {
		return nil, BadRequest("Invalid picked status")
	}

	var updated *domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := repo.GetOrderWithItems(ctx, tx, orderID, true)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NotFound("Order not found")
			}
			return err
		}
		var item *domain.OrderItem
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				item = &order.Items[i]
				break
			}
		}
		if item == nil {
			return NotFound("Order item not found")
		}
		old := item.PickedStatus
		if err := tx.Model(&domain.OrderItem{}).Where("id = ?", item.ID).
			Update("picked_status", newStatus).Error; err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx, AuditEvent{
			EntityType:  AuditEntityOrderItem,
			Action:      AuditItemUpdatePickStatus,
			ActorUserID: actorID,
			EntityID:    item.ID,
			OldValue:    map[string]any{"picked_status": old},
			NewValue:    map[string]any{"picked_status": newStatus},
		}); err != nil {
			return err
		}
		item.PickedStatus = newStatus
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SyncOrder records an audit marker that an order was synced to the picking
// terminal. It mutates nothing else.
func (s *OpsOrderService) SyncOrder(ctx context.Context, orderID, actorID string) error {
	order, err := repo.GetOrderWithItems(ctx, s.DB, orderID, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound("Order not found")
		}
		return err
	}
	return s.Audit.Record(ctx, s.DB, AuditEvent{
		EntityType:  AuditEntityOrder,
		Action:      AuditOrderSync,
		ActorUserID: actorID,
		EntityID:    order.ID,
		Context:     map[string]any{"status": order.Status},
	})
}

// DamageReport is the payload for ReportDamage.
type DamageReport struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// ReportDamage records a damage report against an order item. Audit-only.
func (s *OpsOrderService) ReportDamage(ctx context.Context, orderID, itemID string, report DamageReport, actorID string) error {
	if report.Reason == "" {
		return BadRequest("Damage reason is required")
	}
	order, err := repo.GetOrderWithItems(ctx, s.DB, orderID, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound("Order not found")
		}
		return err
	}
	found := false
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return NotFound("Order item not found")
	}
	return s.Audit.Record(ctx, s.DB, AuditEvent{
		EntityType:  AuditEntityOrderItem,
		Action:      AuditItemReportDamage,
		ActorUserID: actorID,
		EntityID:    itemID,
		NewValue:    map[string]any{"reason": report.Reason, "notes": report.Notes},
	})
}

// CanTransition is the explicit (current, target, role) transition table.
// MANAGER and ADMIN may transition unconditionally. EMPLOYEE may start
// picking, and may finish to READY only when every item is PICKED or to
// MISSING only when at least one item is MISSING.
func CanTransition(current, target domain.OrderStatus, role domain.Role, items []domain.OrderItem) bool {
	if role == domain.RoleManager || role == domain.RoleAdmin {
		return true
	}
	if role != domain.RoleEmployee {
		return false
	}
	switch {
	case current == domain.OrderCreated && target == domain.OrderInProgress:
		return true
	case current == domain.OrderInProgress && target == domain.OrderReady:
		for _, item := range items {
			if item.PickedStatus != domain.PickedPicked {
				return false
			}
		}
		return true
	case current == domain.OrderInProgress && target == domain.OrderMissing:
		for _, item := range items {
			if item.PickedStatus == domain.PickedMissing {
				return true
			}
		}
		return false
	}
	return false
}

// urgencyRank derives the queue sort key: the delivery slot's start time as
// minutes of day, or the sentinel for pickup and slotless orders.
func urgencyRank(o *domain.Order) int {
	if o.Delivery != nil && o.Delivery.DeliverySlot.ID != "" {
		return o.Delivery.DeliverySlot.StartMinute
	}
	return urgencySentinel
}
