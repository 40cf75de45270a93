// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// IdempotencyKey model used to implement at-most-once semantics for the
// checkout confirm endpoint.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (user_id, key) tuple. A true insert race resolves here through the
// unique index, never as a silent double order.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotencyKey returns the stored record for (userID, key) or ErrNotFound.
func GetIdempotencyKey(ctx context.Context, db *gorm.DB, userID, key string) (*domain.IdempotencyKey, error) {
	var rec domain.IdempotencyKey
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ?", userID, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotencyKey inserts a record and returns ErrDuplicate on unique
// violation.
func CreateIdempotencyKey(ctx context.Context, db *gorm.DB, userID, key, requestHash string, payload []byte, statusCode int) (*domain.IdempotencyKey, error) {
	rec := &domain.IdempotencyKey{
		ID:              uuid.NewString(),
		UserID:          userID,
		Key:             key,
		RequestHash:     requestHash,
		ResponsePayload: payload,
		StatusCode:      statusCode,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
