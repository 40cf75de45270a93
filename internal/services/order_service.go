// Package services – OrderService
//
// This file implements the customer-facing order operations: listing and
// fetching owned orders, and cancelling an order that has not entered
// picking yet. Ownership mismatches are reported as NOT_FOUND rather than
// forbidden, so order IDs do not leak across users.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/repo"
)

// OrderService provides customer order reads and cancellation.
type OrderService struct {
	DB    *gorm.DB
	Audit AuditSink
}

// NewOrderService wires the service with its audit sink.
func NewOrderService(db *gorm.DB, sink AuditSink) *OrderService {
	return &OrderService{DB: db, Audit: sink}
}

// ListOrders returns a page of the user's orders plus the total count.
func (s *OrderService) ListOrders(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int64, error) {
	total, err := repo.CountUserOrders(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Order{}, 0, nil
	}
	items, err := repo.ListUserOrders(ctx, s.DB, userID, limit, offset)
	return items, total, err
}

// GetOrder fetches one order, enforcing ownership.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := repo.GetOrderWithItems(ctx, s.DB, orderID, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NotFound("Order not found")
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, NotFound("Order not found")
	}
	return order, nil
}

// CancelOrder cancels an owned order. Only orders still in CREATED can be
// cancelled; once picking has started the customer goes through support.
// The order row is locked for the duration of the transaction.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	var cancelled *domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := repo.GetOrderWithItems(ctx, tx, orderID, true)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NotFound("Order not found")
			}
			return err
		}
		if order.UserID != userID {
			return NotFound("Order not found")
		}
		if order.Status != domain.OrderCreated {
			return InvalidStatusTransition("Only newly created orders can be cancelled")
		}
		if err := tx.Model(&domain.Order{}).Where("id = ?", order.ID).
			Update("status", domain.OrderCancelled).Error; err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx, AuditEvent{
			EntityType:  AuditEntityOrder,
			Action:      AuditOrderCancel,
			ActorUserID: userID,
			EntityID:    order.ID,
			OldValue:    map[string]any{"status": order.Status},
			NewValue:    map[string]any{"status": domain.OrderCancelled},
		}); err != nil {
			return err
		}
		order.Status = domain.OrderCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
