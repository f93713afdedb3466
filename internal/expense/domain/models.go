package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseStatus tracks how much of an expense has actually been paid out.
// Only the paid portion counts toward budget actuals.
type ExpenseStatus string

const (
	StatusPending ExpenseStatus = "pending"
	StatusPartial ExpenseStatus = "partial"
	StatusPaid    ExpenseStatus = "paid"
)

// Expense is one outgoing cost, entered manually or imported from a bank
// feed. InvoiceAmount is the vendor's full invoice; PaidAmount is how much
// has actually left the account, which can trail the invoice on a partial
// settlement. ExternalRef is the bank-side transaction id and makes imports
// idempotent.
type Expense struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID    `gorm:"index;not null;uniqueIndex:ux_expenses_external_ref" json:"tenant_id"`
	CategoryID    *snowflake.ID   `gorm:"index" json:"category_id,omitempty"`
	VendorName    string          `gorm:"size:128" json:"vendor_name,omitempty"`
	InvoiceAmount decimal.Decimal `gorm:"column:invoice_amount;type:numeric(12,2);not null" json:"invoice_amount"`
	PaidAmount    decimal.Decimal `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0" json:"paid_amount"`
	Status        ExpenseStatus   `gorm:"size:16;not null;default:pending" json:"status"`
	Description   string          `json:"description,omitempty"`
	ExternalRef   *string         `gorm:"size:128;uniqueIndex:ux_expenses_external_ref" json:"external_ref,omitempty"`
	IncurredAt    time.Time       `json:"incurred_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Expense) TableName() string { return "expenses" }

var (
	ErrNotFound          = errors.New("expense not found")
	ErrInvalidAmount     = errors.New("expense amount must be positive")
	ErrInvalidTenant     = errors.New("invalid tenant reference")
	ErrAlreadyPaid       = errors.New("expense already paid")
	ErrInvalidStatus     = errors.New("settlement status must be partial or paid")
	ErrInvalidPaidAmount = errors.New("partial paid amount must be positive and below the invoice amount")
)

// ValidateSettlement checks a paid amount against the invoice amount for the
// target status. A partial settlement covers part of the invoice but never
// all of it; a full settlement always covers the whole invoice amount.
func ValidateSettlement(status ExpenseStatus, paidAmount, invoiceAmount decimal.Decimal) error {
	switch status {
	case StatusPartial:
		if !paidAmount.IsPositive() || paidAmount.GreaterThanOrEqual(invoiceAmount) {
			return ErrInvalidPaidAmount
		}
		return nil
	case StatusPaid:
		return nil
	default:
		return ErrInvalidStatus
	}
}

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Expense, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Expense, error)
	Insert(ctx context.Context, db *gorm.DB, expense *Expense) error
	Update(ctx context.Context, db *gorm.DB, expense *Expense) error
	FindByExternalRef(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ref string) (*Expense, error)
}

// CreateExpenseCommand adds one manually entered expense.
type CreateExpenseCommand struct {
	TenantID    snowflake.ID
	CategoryID  *snowflake.ID
	VendorName  string
	Amount      decimal.Decimal
	Description string
	IncurredAt  time.Time
}

// SettleExpenseCommand records money leaving the account for an expense.
// An empty status defaults to a full settlement.
type SettleExpenseCommand struct {
	TenantID   snowflake.ID
	ExpenseID  snowflake.ID
	Status     ExpenseStatus
	PaidAmount decimal.Decimal
	PaidAt     time.Time
}

// SyncItem is one bank-feed transaction in a sync batch.
type SyncItem struct {
	ExternalRef string          `json:"external_ref"`
	VendorName  string          `json:"vendor_name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PaidAt      time.Time       `json:"paid_at"`
}

type Service interface {
	Create(ctx context.Context, cmd CreateExpenseCommand) (*Expense, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]Expense, error)
	// Settle marks an expense partially or fully paid. A partial settlement
	// carries the paid amount, which must stay below the invoice amount; a
	// full settlement pays the invoice amount exactly.
	Settle(ctx context.Context, cmd SettleExpenseCommand) (*Expense, error)
	Categorize(ctx context.Context, tenantID, id snowflake.ID, categoryID *snowflake.ID) (*Expense, error)

	// Sync imports a batch of bank transactions. Items already imported
	// (matched on external ref) are skipped; the return value is how many
	// new expenses were created.
	Sync(ctx context.Context, tenantID snowflake.ID, items []SyncItem) (int, error)
}
