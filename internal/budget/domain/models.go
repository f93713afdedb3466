package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CategoryKind splits the budget into its two sides.
type CategoryKind string

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
)

// Category is one budget line, ordered within its kind.
type Category struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"index;not null" json:"tenant_id"`
	Name      string       `gorm:"size:128;not null" json:"name"`
	Kind      CategoryKind `gorm:"size:16;not null" json:"kind"`
	Position  int          `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Category) TableName() string { return "budget_categories" }

// Entry is one forecast amount for a category and month. The unique index
// makes writes upserts: one forecast cell per category per month.
type Entry struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID    `gorm:"uniqueIndex:ux_budget_entries_cell;not null" json:"tenant_id"`
	CategoryID snowflake.ID    `gorm:"uniqueIndex:ux_budget_entries_cell;not null" json:"category_id"`
	Year       int             `gorm:"uniqueIndex:ux_budget_entries_cell;not null" json:"year"`
	Month      int             `gorm:"uniqueIndex:ux_budget_entries_cell;not null" json:"month"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Entry) TableName() string { return "budget_entries" }

// MonthCell is one month of a category report row.
type MonthCell struct {
	Forecast decimal.Decimal `json:"forecast"`
	Actual   decimal.Decimal `json:"actual"`
}

// CategoryReport is a category with its twelve forecast/actual cells.
// Months is indexed 0-11 internally; on the wire it becomes an object keyed
// by calendar month "1".."12".
type CategoryReport struct {
	CategoryID   snowflake.ID
	Name         string
	Kind         CategoryKind
	DisplayOrder int
	Months       [12]MonthCell
	Forecast     decimal.Decimal
	Actual       decimal.Decimal
}

// MarshalJSON renders the report row in its wire shape: id, name, type,
// display_order, a months object keyed "1".."12" and a year total.
func (r CategoryReport) MarshalJSON() ([]byte, error) {
	months := make(map[string]MonthCell, len(r.Months))
	for i, cell := range r.Months {
		months[strconv.Itoa(i+1)] = cell
	}
	return json.Marshal(struct {
		ID           snowflake.ID         `json:"id"`
		Name         string               `json:"name"`
		Type         CategoryKind         `json:"type"`
		DisplayOrder int                  `json:"display_order"`
		Months       map[string]MonthCell `json:"months"`
		Total        MonthCell            `json:"total"`
	}{
		ID:           r.CategoryID,
		Name:         r.Name,
		Type:         r.Kind,
		DisplayOrder: r.DisplayOrder,
		Months:       months,
		Total:        MonthCell{Forecast: r.Forecast, Actual: r.Actual},
	})
}

// YearReport is the full budget-versus-actuals view for one year.
// Uncategorized income holds payment shares whose invoice line items carry
// no budget category, so the income side still sums to the money received.
type YearReport struct {
	Year                int                `json:"year"`
	Income              []CategoryReport   `json:"income"`
	Expense             []CategoryReport   `json:"expense"`
	UncategorizedIncome [12]decimal.Decimal `json:"uncategorized_income"`
	IncomeForecast      decimal.Decimal    `json:"income_forecast_total"`
	IncomeActual        decimal.Decimal    `json:"income_actual_total"`
	ExpenseForecast     decimal.Decimal    `json:"expense_forecast_total"`
	ExpenseActual       decimal.Decimal    `json:"expense_actual_total"`
}
