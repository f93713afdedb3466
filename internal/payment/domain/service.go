package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RecordPaymentCommand is the validated input for a manual payment.
// Operator-recorded payments default to approved; resident submissions come
// in as pending and go through review.
type RecordPaymentCommand struct {
	TenantID     snowflake.ID
	InvoiceID    snowflake.ID
	Amount       decimal.Decimal
	Method       Method
	ReviewStatus ReviewStatus
	Reference    string
	Notes        string
	ReceivedAt   time.Time
}

// UpdatePaymentCommand changes the mutable fields of an existing payment.
type UpdatePaymentCommand struct {
	TenantID  snowflake.ID
	PaymentID snowflake.ID
	Amount    decimal.Decimal
	Method    Method
	Reference string
	Notes     string
}

// RegisterCheckoutSessionCommand pre-registers a pending gateway payment for
// a checkout session created by the gateway client. A zero amount defaults to
// the invoice balance.
type RegisterCheckoutSessionCommand struct {
	TenantID          snowflake.ID
	InvoiceID         snowflake.ID
	CheckoutSessionID string
	Amount            decimal.Decimal
}

// Service owns the payment lifecycle, the review workflow and gateway event
// reconciliation. Every mutation that touches an approved payment recomputes
// the owning invoice inside the same transaction.
type Service interface {
	Record(ctx context.Context, cmd RecordPaymentCommand) (*Payment, error)
	Get(ctx context.Context, tenantID, id snowflake.ID) (*Payment, error)
	ListByInvoice(ctx context.Context, tenantID, invoiceID snowflake.ID) ([]Payment, error)
	ListByTenant(ctx context.Context, tenantID snowflake.ID) ([]Payment, error)
	Update(ctx context.Context, cmd UpdatePaymentCommand) (*Payment, error)
	Delete(ctx context.Context, tenantID, id snowflake.ID) error

	// RegisterCheckoutSession records the pending payment a checkout session
	// will settle. Registering the same session twice returns the existing
	// payment.
	RegisterCheckoutSession(ctx context.Context, cmd RegisterCheckoutSessionCommand) (*Payment, error)

	StartReview(ctx context.Context, tenantID, id snowflake.ID) (*Payment, error)
	Approve(ctx context.Context, tenantID, id snowflake.ID) (*Payment, error)
	Reject(ctx context.Context, tenantID, id snowflake.ID, reason string) (*Payment, error)
	Resubmit(ctx context.Context, tenantID, id snowflake.ID) (*Payment, error)

	// ProcessGatewayEvent applies one verified, parsed gateway event.
	// Redelivered events return ErrEventAlreadyProcessed.
	ProcessGatewayEvent(ctx context.Context, event *GatewayEvent) error
}
