package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Method identifies how a payment was made.
type Method string

const (
	MethodCash         Method = "cash"
	MethodCheck        Method = "check"
	MethodCreditCard   Method = "credit_card"
	MethodBankTransfer Method = "bank_transfer"
	MethodStripeCard   Method = "stripe_card"
	MethodStripeACH    Method = "stripe_ach"
	MethodOther        Method = "other"
)

// ValidMethod reports whether m is one of the accepted payment methods.
func ValidMethod(m Method) bool {
	switch m {
	case MethodCash, MethodCheck, MethodCreditCard, MethodBankTransfer,
		MethodStripeCard, MethodStripeACH, MethodOther:
		return true
	}
	return false
}

// ReviewStatus tracks the manual review workflow for a payment. Only
// approved payments count toward an invoice's paid total.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewInReview ReviewStatus = "in_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Payment is money applied against an invoice, either recorded manually by
// an operator or materialized from a gateway event.
type Payment struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID          snowflake.ID    `gorm:"index;not null" json:"tenant_id"`
	InvoiceID         snowflake.ID    `gorm:"index;not null" json:"invoice_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method            Method          `gorm:"size:32;not null" json:"method"`
	ReviewStatus      ReviewStatus    `gorm:"size:16;not null;default:pending" json:"review_status"`
	Reference         string          `gorm:"size:128" json:"reference,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	RejectedReason    string          `json:"rejected_reason,omitempty"`
	CheckoutSessionID *string         `gorm:"index" json:"checkout_session_id,omitempty"`
	PaymentIntentID   *string         `gorm:"index" json:"payment_intent_id,omitempty"`
	GatewayFailure    string          `json:"gateway_failure,omitempty"`
	ReceivedAt        time.Time       `json:"received_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// Gateway event types in canonical form.
const (
	EventTypeCheckoutCompleted = "checkout.session.completed"
	EventTypeIntentSucceeded   = "payment_intent.succeeded"
	EventTypeIntentFailed      = "payment_intent.payment_failed"
)

// GatewayEvent is the provider-neutral shape of a parsed webhook event.
type GatewayEvent struct {
	Provider          string
	ProviderEventID   string
	Type              string
	TenantID          snowflake.ID
	InvoiceID         *snowflake.ID
	CheckoutSessionID string
	PaymentIntentID   string
	Amount            decimal.Decimal
	Currency          string
	MethodType        string
	FailureMessage    string
	OccurredAt        time.Time
	RawPayload        []byte
}

// EventRecord is the stored copy of a received gateway event. The unique
// index on (provider, provider_event_id) is what makes redelivery a no-op.
type EventRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	TenantID        snowflake.ID   `gorm:"index;not null"`
	Provider        string         `gorm:"size:32;not null;uniqueIndex:ux_gateway_events_provider_event"`
	ProviderEventID string         `gorm:"size:128;not null;uniqueIndex:ux_gateway_events_provider_event"`
	EventType       string         `gorm:"size:64;not null"`
	Payload         datatypes.JSON `gorm:"not null"`
	ReceivedAt      time.Time      `gorm:"not null"`
	ProcessedAt     *time.Time
}

func (EventRecord) TableName() string { return "gateway_events" }

// MethodFromGateway maps a provider payment-method type onto a Method.
func MethodFromGateway(methodType string) Method {
	switch methodType {
	case "us_bank_account", "ach_debit":
		return MethodStripeACH
	default:
		return MethodStripeCard
	}
}
