package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CreateCategoryCommand adds one budget line.
type CreateCategoryCommand struct {
	TenantID snowflake.ID
	Name     string
	Kind     CategoryKind
	Position int
}

// EntryInput is one forecast cell in an upsert request.
type EntryInput struct {
	CategoryID snowflake.ID    `json:"category_id"`
	Month      int             `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

// UpsertEntriesCommand writes a batch of forecast cells for one year.
type UpsertEntriesCommand struct {
	TenantID snowflake.ID
	Year     int
	Entries  []EntryInput
}

// Service owns budget categories, forecast entries and the budget-versus-
// actuals report.
type Service interface {
	CreateCategory(ctx context.Context, cmd CreateCategoryCommand) (*Category, error)
	ListCategories(ctx context.Context, tenantID snowflake.ID) ([]Category, error)
	RenameCategory(ctx context.Context, tenantID, id snowflake.ID, name string) (*Category, error)
	DeleteCategory(ctx context.Context, tenantID, id snowflake.ID) error

	UpsertEntries(ctx context.Context, cmd UpsertEntriesCommand) error

	// CopyYear copies every forecast entry from one year to another,
	// overwriting cells that already exist in the target year. Actuals are
	// derived data and are never copied.
	CopyYear(ctx context.Context, tenantID snowflake.ID, fromYear, toYear int) (int, error)

	// YearReport assembles forecasts and derived actuals for one year.
	YearReport(ctx context.Context, tenantID snowflake.ID, year int) (*YearReport, error)
}
