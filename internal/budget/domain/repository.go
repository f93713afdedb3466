package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentAllocationRow is one (payment, line item) pair used to build the
// income side of the actuals. One row per line item of the paid invoice.
type PaymentAllocationRow struct {
	PaymentID  snowflake.ID
	Amount     decimal.Decimal
	ReceivedAt time.Time
	CategoryID *snowflake.ID
	LineTotal  decimal.Decimal
	Position   int
}

// ExpenseActualRow is one settled expense contributing to the expense side.
// PaidAmount carries only the settled portion, so partially paid expenses
// count what actually left the account.
type ExpenseActualRow struct {
	CategoryID *snowflake.ID
	PaidAmount decimal.Decimal
	PaidAt     time.Time
}

type Repository interface {
	FindCategory(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Category, error)
	ListCategories(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Category, error)
	InsertCategory(ctx context.Context, db *gorm.DB, category *Category) error
	UpdateCategory(ctx context.Context, db *gorm.DB, category *Category) error
	DeleteCategory(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error

	FindEntry(ctx context.Context, db *gorm.DB, tenantID, categoryID snowflake.ID, year, month int) (*Entry, error)
	ListEntries(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]Entry, error)
	UpsertEntry(ctx context.Context, db *gorm.DB, entry *Entry) error

	// PaymentAllocations returns approved payments received in the year
	// joined with their invoice's line items, ordered by payment then line
	// position.
	PaymentAllocations(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]PaymentAllocationRow, error)

	// ExpenseActuals returns expenses paid in the year.
	ExpenseActuals(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]ExpenseActualRow, error)
}
