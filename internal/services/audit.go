// Package services – audit sink
//
// The audit sink is a dependency injected into each workflow rather than
// global state, so workflows remain testable with a fake sink. Entries are
// written through the caller's *gorm.DB handle: inside a transaction they
// commit or roll back with the state change they describe.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/domain"
)

// Audit actions recorded by the workflows.
const (
	AuditOrderCreate           = "CREATE"
	AuditOrderUpdateStatus     = "UPDATE_STATUS"
	AuditOrderCancel           = "CANCEL"
	AuditOrderSync             = "SYNC"
	AuditItemUpdatePickStatus  = "UPDATE_PICK_STATUS"
	AuditItemReportDamage      = "REPORT_DAMAGE"
	AuditInventoryDecrement    = "DECREMENT"
	AuditInventoryStockApply   = "STOCK_REQUEST_APPLY"
	AuditStockRequestCreate    = "CREATE"
	AuditStockRequestReview    = "REVIEW"
	AuditPaymentNotCommitted   = "PAYMENT_CAPTURED_NOT_COMMITTED"
	AuditEntityOrder           = "order"
	AuditEntityOrderItem       = "order_item"
	AuditEntityInventory       = "inventory"
	AuditEntityStockRequest    = "stock_request"
	AuditEntityPayment         = "payment"
)

// AuditEvent is one state change to be recorded. Old/New/Context are
// marshaled to JSON documents; nil values are stored as NULL.
type AuditEvent struct {
	EntityType  string
	Action      string
	ActorUserID string
	EntityID    string
	OldValue    any
	NewValue    any
	Context     any
}

// AuditSink records audit events. Workflows treat it as fire-and-forget but
// call it with their transaction handle so the entry shares the
// transaction's fate.
type AuditSink interface {
	Record(ctx context.Context, db *gorm.DB, ev AuditEvent) error
}

// GormAuditSink writes audit entries to the audit_entries table.
type GormAuditSink struct{}

// Record implements AuditSink.
func (GormAuditSink) Record(ctx context.Context, db *gorm.DB, ev AuditEvent) error {
	entry := &domain.AuditEntry{
		ID:          uuid.NewString(),
		EntityType:  ev.EntityType,
		Action:      ev.Action,
		ActorUserID: ev.ActorUserID,
		EntityID:    ev.EntityID,
		OldValue:    marshalJSON(ev.OldValue),
		NewValue:    marshalJSON(ev.NewValue),
		Context:     marshalJSON(ev.Context),
		CreatedAt:   time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(entry).Error
}

func marshalJSON(v any) domain.JSONText {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return domain.JSONText(b)
}
