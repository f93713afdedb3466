package service

import (
	"context"
	"testing"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/config"
	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	invoicerepo "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/repository"
	invoiceservice "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/service"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentFixture struct {
	conn       *gorm.DB
	node       *snowflake.Node
	invoiceSvc invoicedomain.Service
	svc        domain.Service
}

func setupPaymentService(t *testing.T) *paymentFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&invoicedomain.Schedule{},
		&domain.Payment{},
		&domain.EventRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   invoicerepo.Provide(),
		Policy: config.NewStaticBillingPolicyHolder(config.DefaultBillingPolicy()),
	})

	svc := NewService(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        repository.Provide(),
		InvoiceRepo: invoicerepo.Provide(),
		InvoiceSvc:  invoiceSvc,
	})
	return &paymentFixture{conn: conn, node: node, invoiceSvc: invoiceSvc, svc: svc}
}

// sentInvoice creates and sends an invoice with a face value of 120.00.
func (f *paymentFixture) sentInvoice(t *testing.T, tenantID snowflake.ID) *invoicedomain.Invoice {
	t.Helper()

	invoice, err := f.invoiceSvc.Create(context.Background(), invoicedomain.CreateInvoiceCommand{
		TenantID:  tenantID,
		UnitID:    f.node.Generate(),
		UnitTitle: "Unit B",
		Frequency: invoicedomain.FrequencyOneTime,
		StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DuePolicy: invoicedomain.DueNet30,
		TaxRate:   decimal.Zero,
		LineItems: []invoicedomain.LineItemInput{
			{Name: "HOA dues", UnitCost: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
			{Name: "Landscaping", UnitCost: decimal.NewFromInt(20), Quantity: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)

	sent, err := f.invoiceSvc.MarkSent(context.Background(), tenantID, invoice.ID)
	require.NoError(t, err)
	return sent
}

func (f *paymentFixture) reloadInvoice(t *testing.T, tenantID, id snowflake.ID) *invoicedomain.Invoice {
	t.Helper()
	invoice, err := f.invoiceSvc.Get(context.Background(), tenantID, id)
	require.NoError(t, err)
	return invoice
}

func TestRecord_ExactBalanceMarksPaid(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	payment, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(120),
		Method:    domain.MethodCheck,
		Reference: "chk-1042",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, payment.ReviewStatus)

	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
	assert.True(t, reloaded.TotalPaid.Equal(decimal.NewFromInt(120)))
}

func TestRecord_PartialLeavesBalance(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
		Amount:    decimal.RequireFromString("119.99"),
		Method:    domain.MethodCash,
	})
	require.NoError(t, err)

	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, reloaded.Status)
	assert.True(t, reloaded.Balance().Equal(decimal.RequireFromString("0.01")))
}

func TestRecord_RejectsOverpayment(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
		Amount:    decimal.RequireFromString("120.01"),
		Method:    domain.MethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, reloaded.Status)
	assert.True(t, reloaded.TotalPaid.IsZero())
}

func TestRecord_PendingSkipsBalanceGuard(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	// A resident can submit any claim; the guard applies at approval time.
	payment, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:     tenantID,
		InvoiceID:    invoice.ID,
		Amount:       decimal.NewFromInt(500),
		Method:       domain.MethodOther,
		ReviewStatus: domain.ReviewPending,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPending, payment.ReviewStatus)

	// The claim counts nothing yet, but it does park the invoice in review.
	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusInReview, reloaded.Status)
	assert.True(t, reloaded.TotalPaid.IsZero())

	_, err = f.svc.Approve(context.Background(), tenantID, payment.ID)
	assert.ErrorIs(t, err, domain.ErrOverpayment)
}

func TestRecord_Validation(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
		Amount:    decimal.Zero,
		Method:    domain.MethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(10),
		Method:    "wire_pigeon",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)
}

func TestRecord_RefusesCancelledInvoice(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	_, err := f.invoiceSvc.Cancel(context.Background(), tenantID, invoice.ID)
	require.NoError(t, err)

	_, err = f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(10),
		Method:    domain.MethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrNotPayable)
}

func TestDelete_RevertsInvoiceStatus(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	payment, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(120),
		Method:    domain.MethodBankTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, invoicedomain.InvoiceStatusPaid, f.reloadInvoice(t, tenantID, invoice.ID).Status)

	require.NoError(t, f.svc.Delete(context.Background(), tenantID, payment.ID))

	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, reloaded.Status)
	assert.True(t, reloaded.TotalPaid.IsZero())
}

func TestReviewWorkflow(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	payment, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:     tenantID,
		InvoiceID:    invoice.ID,
		Amount:       decimal.NewFromInt(120),
		Method:       domain.MethodCheck,
		ReviewStatus: domain.ReviewPending,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusInReview, f.reloadInvoice(t, tenantID, invoice.ID).Status)

	inReview, err := f.svc.StartReview(context.Background(), tenantID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewInReview, inReview.ReviewStatus)
	assert.Equal(t, invoicedomain.InvoiceStatusInReview, f.reloadInvoice(t, tenantID, invoice.ID).Status)

	// Only pending payments can enter review.
	_, err = f.svc.StartReview(context.Background(), tenantID, payment.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidReviewTransition)

	approved, err := f.svc.Approve(context.Background(), tenantID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, approved.ReviewStatus)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, f.reloadInvoice(t, tenantID, invoice.ID).Status)

	_, err = f.svc.Reject(context.Background(), tenantID, payment.ID, "late")
	assert.ErrorIs(t, err, domain.ErrInvalidReviewTransition)
}

func TestReviewWorkflow_RejectAndResubmit(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	payment, err := f.svc.Record(context.Background(), domain.RecordPaymentCommand{
		TenantID:     tenantID,
		InvoiceID:    invoice.ID,
		Amount:       decimal.NewFromInt(60),
		Method:       domain.MethodCheck,
		ReviewStatus: domain.ReviewPending,
	})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), tenantID, payment.ID, "check bounced")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewRejected, rejected.ReviewStatus)
	assert.Equal(t, "check bounced", rejected.RejectedReason)

	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaymentRejected, reloaded.Status)
	assert.True(t, reloaded.TotalPaid.IsZero())

	resubmitted, err := f.svc.Resubmit(context.Background(), tenantID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPending, resubmitted.ReviewStatus)
	assert.Empty(t, resubmitted.RejectedReason)

	// Resubmission opens a fresh review cycle on the invoice too.
	assert.Equal(t, invoicedomain.InvoiceStatusInReview, f.reloadInvoice(t, tenantID, invoice.ID).Status)

	_, err = f.svc.Resubmit(context.Background(), tenantID, payment.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidReviewTransition)
}

func TestProcessGatewayEvent_IntentSucceededWithoutLocalPayment(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	// A success event that matches no registered payment is acknowledged but
	// must not invent one or move the invoice.
	event := &domain.GatewayEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_001",
		Type:            domain.EventTypeIntentSucceeded,
		TenantID:        tenantID,
		InvoiceID:       &invoice.ID,
		PaymentIntentID: "pi_001",
		Amount:          decimal.NewFromInt(120),
		Currency:        "usd",
		MethodType:      "card",
		OccurredAt:      time.Now().UTC(),
		RawPayload:      []byte(`{"id":"evt_001"}`),
	}

	require.NoError(t, f.svc.ProcessGatewayEvent(context.Background(), event))

	payments, err := f.svc.ListByInvoice(context.Background(), tenantID, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, reloaded.Status)
	assert.True(t, reloaded.TotalPaid.IsZero())

	// The delivery still counts as processed for idempotency.
	err = f.svc.ProcessGatewayEvent(context.Background(), event)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
}

func TestProcessGatewayEvent_CheckoutCompletedAttachesIntent(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	now := time.Now().UTC()
	sessionID := "cs_001"
	pending, err := f.svc.RegisterCheckoutSession(context.Background(), domain.RegisterCheckoutSessionCommand{
		TenantID:          tenantID,
		InvoiceID:         invoice.ID,
		CheckoutSessionID: sessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPending, pending.ReviewStatus)
	assert.True(t, pending.Amount.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, invoicedomain.InvoiceStatusInReview, f.reloadInvoice(t, tenantID, invoice.ID).Status)

	err = f.svc.ProcessGatewayEvent(context.Background(), &domain.GatewayEvent{
		Provider:          "stripe",
		ProviderEventID:   "evt_cs_001",
		Type:              domain.EventTypeCheckoutCompleted,
		TenantID:          tenantID,
		CheckoutSessionID: sessionID,
		PaymentIntentID:   "pi_100",
		OccurredAt:        now,
		RawPayload:        []byte(`{"id":"evt_cs_001"}`),
	})
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), tenantID, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentIntentID)
	assert.Equal(t, "pi_100", *stored.PaymentIntentID)
	// Checkout completion alone settles nothing.
	assert.Equal(t, domain.ReviewPending, stored.ReviewStatus)
	assert.True(t, f.reloadInvoice(t, tenantID, invoice.ID).TotalPaid.IsZero())
}

func TestRegisterCheckoutSession_Idempotent(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	first, err := f.svc.RegisterCheckoutSession(context.Background(), domain.RegisterCheckoutSessionCommand{
		TenantID:          tenantID,
		InvoiceID:         invoice.ID,
		CheckoutSessionID: "cs_reuse",
		Amount:            decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(40)))

	second, err := f.svc.RegisterCheckoutSession(context.Background(), domain.RegisterCheckoutSessionCommand{
		TenantID:          tenantID,
		InvoiceID:         invoice.ID,
		CheckoutSessionID: "cs_reuse",
		Amount:            decimal.NewFromInt(99),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = f.svc.RegisterCheckoutSession(context.Background(), domain.RegisterCheckoutSessionCommand{
		TenantID:  tenantID,
		InvoiceID: invoice.ID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestRegisterCheckoutSession_RejectsAmountAboveBalance(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	_, err := f.svc.RegisterCheckoutSession(context.Background(), domain.RegisterCheckoutSessionCommand{
		TenantID:          tenantID,
		InvoiceID:         invoice.ID,
		CheckoutSessionID: "cs_over",
		Amount:            decimal.RequireFromString("120.01"),
	})
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	payments, err := f.svc.ListByInvoice(context.Background(), tenantID, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestProcessGatewayEvent_IntentSucceededSettlesPendingPayment(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	now := time.Now().UTC()
	sessionID := "cs_002"
	intentID := "pi_200"
	pending := domain.Payment{
		ID:                f.node.Generate(),
		TenantID:          tenantID,
		InvoiceID:         invoice.ID,
		Amount:            decimal.NewFromInt(120),
		Method:            domain.MethodStripeCard,
		ReviewStatus:      domain.ReviewPending,
		CheckoutSessionID: &sessionID,
		PaymentIntentID:   &intentID,
		ReceivedAt:        now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, f.conn.Create(&pending).Error)

	err := f.svc.ProcessGatewayEvent(context.Background(), &domain.GatewayEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_pi_200",
		Type:            domain.EventTypeIntentSucceeded,
		TenantID:        tenantID,
		PaymentIntentID: intentID,
		Amount:          decimal.NewFromInt(120),
		MethodType:      "us_bank_account",
		OccurredAt:      now,
		RawPayload:      []byte(`{"id":"evt_pi_200"}`),
	})
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), tenantID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, stored.ReviewStatus)
	assert.Equal(t, domain.MethodStripeACH, stored.Method)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, f.reloadInvoice(t, tenantID, invoice.ID).Status)
}

func TestProcessGatewayEvent_IntentSucceededAboveBalanceIsFlagged(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	now := time.Now().UTC()
	sessionID := "cs_over"
	intentID := "pi_over"
	pending := domain.Payment{
		ID:                f.node.Generate(),
		TenantID:          tenantID,
		InvoiceID:         invoice.ID,
		Amount:            decimal.NewFromInt(120),
		Method:            domain.MethodStripeCard,
		ReviewStatus:      domain.ReviewPending,
		CheckoutSessionID: &sessionID,
		PaymentIntentID:   &intentID,
		ReceivedAt:        now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, f.conn.Create(&pending).Error)

	// The gateway reports more money than is owed. The funds settled for
	// real, so the payment lands, annotated for an admin to sort out.
	err := f.svc.ProcessGatewayEvent(context.Background(), &domain.GatewayEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_pi_over",
		Type:            domain.EventTypeIntentSucceeded,
		TenantID:        tenantID,
		PaymentIntentID: intentID,
		Amount:          decimal.NewFromInt(150),
		MethodType:      "card",
		OccurredAt:      now,
		RawPayload:      []byte(`{"id":"evt_pi_over"}`),
	})
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), tenantID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, stored.ReviewStatus)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(150)))
	assert.Contains(t, stored.Notes, "above invoice balance")

	reloaded := f.reloadInvoice(t, tenantID, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
	assert.True(t, reloaded.TotalPaid.Equal(decimal.NewFromInt(150)))
}

func TestProcessGatewayEvent_IntentFailedAnnotatesOnly(t *testing.T) {
	f := setupPaymentService(t)
	tenantID := f.node.Generate()
	invoice := f.sentInvoice(t, tenantID)

	now := time.Now().UTC()
	intentID := "pi_300"
	pending := domain.Payment{
		ID:              f.node.Generate(),
		TenantID:        tenantID,
		InvoiceID:       invoice.ID,
		Amount:          decimal.NewFromInt(120),
		Method:          domain.MethodStripeCard,
		ReviewStatus:    domain.ReviewPending,
		PaymentIntentID: &intentID,
		ReceivedAt:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.conn.Create(&pending).Error)

	err := f.svc.ProcessGatewayEvent(context.Background(), &domain.GatewayEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_pi_300",
		Type:            domain.EventTypeIntentFailed,
		TenantID:        tenantID,
		PaymentIntentID: intentID,
		FailureMessage:  "card_declined",
		OccurredAt:      now,
		RawPayload:      []byte(`{"id":"evt_pi_300"}`),
	})
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), tenantID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "card_declined", stored.GatewayFailure)
	assert.Equal(t, domain.ReviewPending, stored.ReviewStatus)
	assert.True(t, f.reloadInvoice(t, tenantID, invoice.ID).TotalPaid.IsZero())
}

func TestProcessGatewayEvent_Validation(t *testing.T) {
	f := setupPaymentService(t)

	err := f.svc.ProcessGatewayEvent(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	err = f.svc.ProcessGatewayEvent(context.Background(), &domain.GatewayEvent{
		Provider: "stripe",
		Type:     domain.EventTypeIntentSucceeded,
		TenantID: f.node.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	err = f.svc.ProcessGatewayEvent(context.Background(), &domain.GatewayEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_x",
		Type:            domain.EventTypeIntentSucceeded,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}
