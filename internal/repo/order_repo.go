// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order
// aggregate.
//
// Functions:
//
//   - CreateOrder(ctx, db, order) -> error
//     Inserts the order row together with its items and fulfillment detail.
//
//   - GetOrderWithItems(ctx, db, id, lock) -> *domain.Order, error
//     Fetches an order and its items, optionally under a row lock.
//
//   - ListOrders / CountOrders
//     Ops-side listing with status and created-at range filters; pagination
//     is applied at the database level.
//
//   - ListUserOrders / CountUserOrders
//     Customer-side listing scoped to the owning user.
//
// The aggregate is wrapped by the service layer, which enforces the state
// machine, locking discipline, and audit side effects.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
)

// CreateOrder inserts an order with its items and its single fulfillment
// detail record in the caller's transaction.
func CreateOrder(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

// GetOrderWithItems fetches an order and its items (plus delivery details
// and slot when present). When lock is true the order row is read under a
// row lock. Returns ErrNotFound if the order does not exist.
func GetOrderWithItems(ctx context.Context, db *gorm.DB, id string, lock bool) (*domain.Order, error) {
	q := db.WithContext(ctx)
	if lock {
		q = LockForUpdate(q)
	}
	var o domain.Order
	err := q.Preload("Items").
		Preload("Delivery").
		Preload("Delivery.DeliverySlot").
		Preload("Pickup").
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderFilter narrows ops-side order listings.
type OrderFilter struct {
	Status   domain.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

func (f OrderFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", *f.DateTo)
	}
	return q
}

// ListOrders returns a page of orders matching the filter, oldest first,
// with items and delivery slots preloaded for urgency ranking.
func ListOrders(ctx context.Context, db *gorm.DB, f OrderFilter, limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	err := f.apply(db.WithContext(ctx)).
		Preload("Items").
		Preload("Delivery").
		Preload("Delivery.DeliverySlot").
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountOrders returns the total number of orders matching the filter.
func CountOrders(ctx context.Context, db *gorm.DB, f OrderFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Order{})).Count(&total).Error
	return total, err
}

// ListUserOrders returns a page of the user's orders, most recent first.
func ListUserOrders(ctx context.Context, db *gorm.DB, userID string, limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountUserOrders returns the total number of orders owned by userID.
func CountUserOrders(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
