package domain

import (
	"time"

	"gorm.io/gorm"
)

// AuditEntry is an immutable append-only record of a state change. Entries
// are written in the same transaction as the mutation they describe and are
// never read back by the workflows themselves.
type AuditEntry struct {
	ID          string         `json:"id"            gorm:"type:char(36);primaryKey"`
	EntityType  string         `json:"entity_type"   gorm:"type:varchar(64);not null;index"`
	Action      string         `json:"action"        gorm:"type:varchar(64);not null;index"`
	ActorUserID string         `json:"actor_user_id" gorm:"type:varchar(64)"`
	EntityID    string         `json:"entity_id"     gorm:"type:char(36);index"`
	OldValue    JSONText       `json:"old_value,omitempty" gorm:"type:text"`
	NewValue    JSONText       `json:"new_value,omitempty" gorm:"type:text"`
	Context     JSONText       `json:"context,omitempty"   gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for AuditEntry.
func (AuditEntry) TableName() string { return "audit_entries" }

// JSONText stores an arbitrary JSON document as text. A thin local
// alias keeps the audit schema portable across the sqlite and postgres
// dialects without pulling in a JSON column extension.
type JSONText []byte

// Value implements driver.Valuer.
func (j JSONText) Value() (any, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONText) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case string:
		*j = []byte(v)
	case []byte:
		*j = append((*j)[:0], v...)
	}
	return nil
}

// MarshalJSON renders the stored document verbatim.
func (j JSONText) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores the raw document.
func (j *JSONText) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}
