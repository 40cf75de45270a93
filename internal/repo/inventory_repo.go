// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Inventory
// ledger, the only resource contended by both the checkout and stock-review
// workflows.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only CRUD persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// LockInventory reads every inventory row for (productIDs × branchID) in a
// single locked query and returns them keyed by product ID. Rows that do not
// exist are simply absent from the map; callers treat absence as zero
// availability. Both workflows must go through this function so they contend
// on the same lock.
func LockInventory(ctx context.Context, db *gorm.DB, branchID string, productIDs []string) (map[string]*domain.Inventory, error) {
	var rows []domain.Inventory
	err := LockForUpdate(db.WithContext(ctx)).
		Where("branch_id = ? AND product_id IN ?", branchID, productIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.Inventory, len(rows))
	for i := range rows {
		out[rows[i].ProductID] = &rows[i]
	}
	return out, nil
}

// GetInventoryLocked fetches a single inventory row under a row lock, or
// ErrNotFound if absent.
func GetInventoryLocked(ctx context.Context, db *gorm.DB, branchID, productID string) (*domain.Inventory, error) {
	var row domain.Inventory
	err := LockForUpdate(db.WithContext(ctx)).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetInventory fetches a single inventory row without locking (read paths
// such as checkout preview). Returns ErrNotFound if absent.
func GetInventory(ctx context.Context, db *gorm.DB, branchID, productID string) (*domain.Inventory, error) {
	var row domain.Inventory
	err := db.WithContext(ctx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveInventory persists a mutated inventory row. Callers must hold the row
// lock acquired by LockInventory or GetInventoryLocked.
func SaveInventory(ctx context.Context, db *gorm.DB, row *domain.Inventory) error {
	return db.WithContext(ctx).Save(row).Error
}
