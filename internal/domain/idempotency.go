// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// IdempotencyKey records the outcome of a previously confirmed checkout,
// keyed by (user_id, key). It enables safe retries of the confirm endpoint
// by returning the originally produced response without re-executing side
// effects. RequestHash is a digest of the normalized request body excluding
// the key itself; a replay with a different hash is a conflict, never a
// cache hit. Records are written once and never mutated.
type IdempotencyKey struct {
	ID              string    `gorm:"type:char(36);primaryKey"`
	UserID          string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_idempotency_user_key,priority:1"`
	Key             string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idempotency_user_key,priority:2"`
	RequestHash     string    `gorm:"type:char(64);not null"`
	ResponsePayload []byte    `gorm:"type:blob;not null"`
	StatusCode      int       `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyKey) TableName() string { return "idempotency_keys" }
