// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// StockRequest model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
)

// CreateStockRequest inserts a new PENDING stock request.
func CreateStockRequest(ctx context.Context, db *gorm.DB, branchID, productID string, quantity int, reqType domain.StockRequestType, actorUserID string) (*domain.StockRequest, error) {
	r := &domain.StockRequest{
		ID:          uuid.NewString(),
		BranchID:    branchID,
		ProductID:   productID,
		Quantity:    quantity,
		RequestType: reqType,
		Status:      domain.StockRequestPending,
		ActorUserID: actorUserID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetStockRequestLocked fetches a stock request under a row lock, or
// ErrNotFound. Reviews must go through this read so concurrent reviews of
// the same request serialize.
func GetStockRequestLocked(ctx context.Context, db *gorm.DB, id string) (*domain.StockRequest, error) {
	var r domain.StockRequest
	err := LockForUpdate(db.WithContext(ctx)).
		Where("id = ?", id).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListStockRequestsByActor returns a page of requests created by userID,
// most recent first.
func ListStockRequestsByActor(ctx context.Context, db *gorm.DB, userID string, limit, offset int) ([]domain.StockRequest, error) {
	var out []domain.StockRequest
	err := db.WithContext(ctx).
		Where("actor_user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountStockRequestsByActor returns the total number of requests created by userID.
func CountStockRequestsByActor(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.StockRequest{}).
		Where("actor_user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListStockRequests returns a page of all requests, optionally filtered by
// status, most recent first.
func ListStockRequests(ctx context.Context, db *gorm.DB, status domain.StockRequestStatus, limit, offset int) ([]domain.StockRequest, error) {
	q := db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.StockRequest
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// CountStockRequests returns the total number of requests, optionally
// filtered by status.
func CountStockRequests(ctx context.Context, db *gorm.DB, status domain.StockRequestStatus) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.StockRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}
