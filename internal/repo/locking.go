// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the pessimistic-lock read helper shared
// by every repository function that participates in the row-locking
// discipline (inventory, orders, stock requests, carts).
package repo

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate returns a handle whose next query acquires SELECT ... FOR
// UPDATE semantics. A concurrent transaction touching the same rows blocks
// until the holder commits or rolls back; this is the only serialization
// primitive the workflows use (never an application-level mutex).
//
// SQLite has no FOR UPDATE in its grammar; its single-writer transaction
// model already serializes competing transactions, so the clause is skipped
// for that dialect.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
