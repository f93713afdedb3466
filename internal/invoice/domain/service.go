package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineItemInput is one requested line on a create or update command.
type LineItemInput struct {
	Name       string          `json:"name"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Quantity   decimal.Decimal `json:"quantity"`
	CategoryID *snowflake.ID   `json:"category_id,omitempty"`
}

// CreateInvoiceCommand is the validated input for invoice creation.
type CreateInvoiceCommand struct {
	TenantID        snowflake.ID
	UnitID          snowflake.ID
	UnitTitle       string
	Frequency       Frequency
	StartDate       time.Time
	DuePolicy       DueDatePolicy
	TaxRate         decimal.Decimal
	LineItems       []LineItemInput
	Notes           string
	RemainingCycles *int
	ParentInvoiceID *snowflake.ID
}

// UpdateLineItemsCommand replaces the line-item set and tax rate of a draft.
type UpdateLineItemsCommand struct {
	TenantID  snowflake.ID
	InvoiceID snowflake.ID
	TaxRate   decimal.Decimal
	LineItems []LineItemInput
}

// Service owns invoice lifecycle and the derived status invariants.
type Service interface {
	Create(ctx context.Context, cmd CreateInvoiceCommand) (*Invoice, error)
	Get(ctx context.Context, tenantID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, tenantID snowflake.ID, includeTombstoned bool) ([]Invoice, error)
	UpdateLineItems(ctx context.Context, cmd UpdateLineItemsCommand) (*Invoice, error)
	MarkSent(ctx context.Context, tenantID, id snowflake.ID) (*Invoice, error)
	Cancel(ctx context.Context, tenantID, id snowflake.ID) (*Invoice, error)
	Delete(ctx context.Context, tenantID, id snowflake.ID, force bool) error
	Restore(ctx context.Context, tenantID, id snowflake.ID) (*Invoice, error)

	// RecomputeFromPayments refreshes total_paid and status from the full
	// approved-payment set inside the caller's transaction. The caller must
	// already hold the invoice row lock.
	RecomputeFromPayments(ctx context.Context, tx *gorm.DB, tenantID, invoiceID snowflake.ID) (*Invoice, error)

	// RunSchedules generates invoices for every due active schedule and
	// returns how many were produced. Triggered by an external scheduler.
	RunSchedules(ctx context.Context, now time.Time) (int, error)
}
