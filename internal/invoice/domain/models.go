// Package domain contains persistence models and pure calculations for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft           InvoiceStatus = "draft"
	InvoiceStatusSent            InvoiceStatus = "sent"
	InvoiceStatusPaid            InvoiceStatus = "paid"
	InvoiceStatusPartial         InvoiceStatus = "partial"
	InvoiceStatusOverdue         InvoiceStatus = "overdue"
	InvoiceStatusCancelled       InvoiceStatus = "cancelled"
	InvoiceStatusInReview        InvoiceStatus = "in_review"
	InvoiceStatusPaymentRejected InvoiceStatus = "payment_rejected"
)

// Frequency controls the billing cycle of a recurring invoice.
type Frequency string

const (
	FrequencyOneTime   Frequency = "one_time"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// DueDatePolicy selects how the due date is derived from the start date.
type DueDatePolicy string

const (
	DueOnReceipt    DueDatePolicy = "due_on_receipt"
	DueNet15        DueDatePolicy = "net_15"
	DueNet30        DueDatePolicy = "net_30"
	DueNet45        DueDatePolicy = "net_45"
	DueNet60        DueDatePolicy = "net_60"
	DuePaymentTerms DueDatePolicy = "use_payment_terms"
)

// Invoice is one bill addressed to a unit for one billing cycle.
type Invoice struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	TenantID        snowflake.ID    `json:"tenant_id" gorm:"not null;index;uniqueIndex:ux_invoices_tenant_number,priority:1"`
	UnitID          snowflake.ID    `json:"unit_id" gorm:"not null;index"`
	ParentInvoiceID *snowflake.ID   `json:"parent_invoice_id,omitempty" gorm:"index"`
	Number          string          `json:"number" gorm:"type:text;not null;uniqueIndex:ux_invoices_tenant_number,priority:2"`
	Frequency       Frequency       `json:"frequency" gorm:"type:text;not null;default:'one_time'"`
	StartDate       time.Time       `json:"start_date" gorm:"not null"`
	DuePolicy       DueDatePolicy   `json:"due_policy" gorm:"type:text;not null;default:'net_30'"`
	DueDate         time.Time       `json:"due_date" gorm:"not null"`
	TaxRate         decimal.Decimal `json:"tax_rate" gorm:"type:numeric(5,2);not null;default:0"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null;default:0"`
	TaxAmount       decimal.Decimal `json:"tax_amount" gorm:"type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null;default:0"`
	TotalPaid       decimal.Decimal `json:"total_paid" gorm:"type:numeric(12,2);not null;default:0"`
	Status          InvoiceStatus   `json:"status" gorm:"type:text;not null;default:'draft'"`
	EarlyDiscount   decimal.Decimal `json:"early_discount" gorm:"type:numeric(12,2);not null;default:0"`
	LateFee         decimal.Decimal `json:"late_fee" gorm:"type:numeric(12,2);not null;default:0"`
	Notes           string          `json:"notes" gorm:"type:text"`
	Tombstoned      bool            `json:"tombstoned" gorm:"not null;default:false;index"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null"`

	LineItems []LineItem `json:"line_items" gorm:"foreignKey:InvoiceID"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Locked reports whether the invoice face value is frozen. Once a bill has
// been presented or money collected against it, line items and tax rate are
// immutable; corrections happen through a clone, not an edit.
func (i Invoice) Locked() bool {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusPartial,
		InvoiceStatusInReview, InvoiceStatusPaymentRejected:
		return true
	default:
		return false
	}
}

// Balance is what remains owed against approved payments.
func (i Invoice) Balance() decimal.Decimal {
	return i.Total.Sub(i.TotalPaid)
}

// EffectiveStatus derives overdue at read time. Overdue is a view of a sent
// invoice past its due date with money outstanding, never a stored state.
func (i Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceStatusSent || i.Status == InvoiceStatusPartial {
		if now.After(i.DueDate) && i.Balance().IsPositive() {
			return InvoiceStatusOverdue
		}
	}
	return i.Status
}

// LineItem is one billable entry on an invoice.
type LineItem struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	TenantID   snowflake.ID    `json:"tenant_id" gorm:"not null;index"`
	InvoiceID  snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	CategoryID *snowflake.ID   `json:"category_id,omitempty" gorm:"index"`
	Position   int             `json:"position" gorm:"not null;default:0"`
	Name       string          `json:"name" gorm:"type:text;not null"`
	UnitCost   decimal.Decimal `json:"unit_cost" gorm:"type:numeric(12,2);not null"`
	Quantity   decimal.Decimal `json:"quantity" gorm:"type:numeric(12,2);not null"`
	Total      decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }

// Schedule drives recurring invoice generation. remaining cycles nil = endless.
type Schedule struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID        snowflake.ID `json:"tenant_id" gorm:"not null;index"`
	InvoiceID       snowflake.ID `json:"invoice_id" gorm:"not null;uniqueIndex"`
	NextDueDate     time.Time    `json:"next_due_date" gorm:"not null;index"`
	RemainingCycles *int         `json:"remaining_cycles,omitempty"`
	Active          bool         `json:"active" gorm:"not null;default:true;index"`
	LastGeneratedAt *time.Time   `json:"last_generated_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Schedule) TableName() string { return "invoice_schedules" }
