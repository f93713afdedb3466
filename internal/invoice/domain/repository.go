package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the tenant-scoped persistence surface for invoices. Every
// lookup takes the tenant id and an explicit include-tombstoned flag; there is
// no implicit default scope.
type Repository interface {
	Find(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, includeTombstoned bool) (*Invoice, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, includeTombstoned bool) ([]Invoice, error)
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	ReplaceLineItems(ctx context.Context, db *gorm.DB, invoice *Invoice, items []LineItem) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error

	// MaxSequence returns the highest numeric suffix already issued for
	// invoice numbers starting with prefix, 0 when none exists. Tombstoned
	// invoices still hold their number, so they count.
	MaxSequence(ctx context.Context, db *gorm.DB, tenantID, unitID snowflake.ID, prefix string) (int, error)

	InsertSchedule(ctx context.Context, db *gorm.DB, schedule *Schedule) error
	UpdateSchedule(ctx context.Context, db *gorm.DB, schedule *Schedule) error
	DueSchedules(ctx context.Context, db *gorm.DB, now time.Time) ([]Schedule, error)
}
