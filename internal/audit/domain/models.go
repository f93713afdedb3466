package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one append-only record of a budget mutation. Entries are never
// updated or deleted.
type AuditLog struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID   `gorm:"index:ix_budget_audit_tenant_year;not null" json:"tenant_id"`
	Year        int            `gorm:"index:ix_budget_audit_tenant_year;not null" json:"year"`
	Actor       string         `gorm:"size:128" json:"actor"`
	Action      string         `gorm:"size:64;not null" json:"action"`
	EntityType  string         `gorm:"size:64;not null" json:"entity_type"`
	EntityID    *snowflake.ID  `json:"entity_id,omitempty"`
	Before      datatypes.JSON `json:"before,omitempty"`
	After       datatypes.JSON `json:"after,omitempty"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "budget_audit_logs" }

// Entry is the input for one audit record. Before and After hold JSON
// snapshots of the mutated entity.
type Entry struct {
	TenantID    snowflake.ID
	Year        int
	Actor       string
	Action      string
	EntityType  string
	EntityID    *snowflake.ID
	Before      any
	After       any
	Description string
}

var (
	ErrInvalidAction = errors.New("invalid audit action")
	ErrInvalidTenant = errors.New("invalid tenant reference")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	ListByYear(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]AuditLog, error)
}

// Service records and reads the budget audit trail. Log runs against the
// caller's transaction so audit entries commit atomically with the change
// they describe.
type Service interface {
	Log(ctx context.Context, tx *gorm.DB, entry Entry) error
	ListByYear(ctx context.Context, tenantID snowflake.ID, year int) ([]AuditLog, error)
}
