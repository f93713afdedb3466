package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the persistence port for payments and gateway events. All
// methods run against the supplied db handle so services can pass their own
// transactions.
type Repository interface {
	Find(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Payment, error)
	ListByInvoice(ctx context.Context, db *gorm.DB, tenantID, invoiceID snowflake.ID) ([]Payment, error)
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Payment, error)
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error

	FindBySession(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, sessionID string) (*Payment, error)
	FindByIntent(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, intentID string) (*Payment, error)

	// InsertEvent returns false when the event was already recorded.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
