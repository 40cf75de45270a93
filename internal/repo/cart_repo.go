// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for carts and the
// catalog rows checkout resolves through them.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
)

// GetCartWithItems fetches a cart and its items (with resolved products).
// When lock is true the cart row is read under a row lock so it stays
// immutable for the duration of the enclosing transaction. Returns
// ErrNotFound if the cart does not exist.
func GetCartWithItems(ctx context.Context, db *gorm.DB, cartID string, lock bool) (*domain.Cart, error) {
	q := db.WithContext(ctx)
	if lock {
		q = LockForUpdate(q)
	}
	var cart domain.Cart
	err := q.Preload("Items").Preload("Items.Product").
		Where("id = ?", cartID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetBranch fetches a branch by ID, or ErrNotFound.
func GetBranch(ctx context.Context, db *gorm.DB, id string) (*domain.Branch, error) {
	var b domain.Branch
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetDeliverySlot fetches a delivery slot by ID, or ErrNotFound.
func GetDeliverySlot(ctx context.Context, db *gorm.DB, id string) (*domain.DeliverySlot, error) {
	var s domain.DeliverySlot
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
