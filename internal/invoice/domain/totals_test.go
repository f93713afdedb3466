package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name      string
		items     []LineItem
		taxRate   decimal.Decimal
		subtotal  string
		taxAmount string
		total     string
		wantErr   error
	}{
		{
			name: "no tax",
			items: []LineItem{
				{Total: dec("100.00")},
				{Total: dec("20.00")},
			},
			taxRate:   decimal.Zero,
			subtotal:  "120",
			taxAmount: "0",
			total:     "120",
		},
		{
			name: "tax on summed subtotal",
			items: []LineItem{
				{Total: dec("33.33")},
				{Total: dec("33.33")},
				{Total: dec("33.33")},
			},
			taxRate:   dec("7.5"),
			subtotal:  "99.99",
			taxAmount: "7.50",
			total:     "107.49",
		},
		{
			name:      "empty invoice",
			items:     nil,
			taxRate:   dec("10"),
			subtotal:  "0",
			taxAmount: "0",
			total:     "0",
		},
		{
			name:    "negative line rejected",
			items:   []LineItem{{Total: dec("-5")}},
			taxRate: decimal.Zero,
			wantErr: ErrInvalidLineItem,
		},
		{
			name:    "tax rate above 100 rejected",
			items:   []LineItem{{Total: dec("10")}},
			taxRate: dec("101"),
			wantErr: ErrInvalidTaxRate,
		},
		{
			name:    "negative tax rate rejected",
			items:   []LineItem{{Total: dec("10")}},
			taxRate: dec("-1"),
			wantErr: ErrInvalidTaxRate,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			totals, err := ComputeTotals(tc.items, tc.taxRate)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, totals.Subtotal.Equal(dec(tc.subtotal)), "subtotal %s", totals.Subtotal)
			assert.True(t, totals.TaxAmount.Equal(dec(tc.taxAmount)), "tax %s", totals.TaxAmount)
			assert.True(t, totals.Total.Equal(dec(tc.total)), "total %s", totals.Total)
		})
	}
}

func TestLineTotal(t *testing.T) {
	total, err := LineTotal(dec("12.50"), dec("3"))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("37.50")))

	_, err = LineTotal(dec("-1"), dec("1"))
	require.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestStatusFromPayments(t *testing.T) {
	total := dec("100")
	settled := PaymentReview{}

	assert.Equal(t, InvoiceStatusPaid, StatusFromPayments(InvoiceStatusSent, total, dec("100"), settled))
	assert.Equal(t, InvoiceStatusPaid, StatusFromPayments(InvoiceStatusPartial, total, dec("150"), settled))
	assert.Equal(t, InvoiceStatusPartial, StatusFromPayments(InvoiceStatusSent, total, dec("0.01"), settled))
	assert.Equal(t, InvoiceStatusSent, StatusFromPayments(InvoiceStatusPartial, total, decimal.Zero, settled))

	// Draft and cancelled never move from payment recomputation.
	assert.Equal(t, InvoiceStatusDraft, StatusFromPayments(InvoiceStatusDraft, total, dec("100"), settled))
	assert.Equal(t, InvoiceStatusCancelled, StatusFromPayments(InvoiceStatusCancelled, total, dec("100"), settled))
}

func TestStatusFromPayments_ReviewStates(t *testing.T) {
	total := dec("100")
	awaiting := PaymentReview{AwaitingReview: true}
	rejected := PaymentReview{LatestRejected: true}

	// An open review parks the invoice regardless of any partial sum.
	assert.Equal(t, InvoiceStatusInReview, StatusFromPayments(InvoiceStatusSent, total, decimal.Zero, awaiting))
	assert.Equal(t, InvoiceStatusInReview, StatusFromPayments(InvoiceStatusSent, total, dec("40"), awaiting))

	assert.Equal(t, InvoiceStatusPaymentRejected, StatusFromPayments(InvoiceStatusSent, total, decimal.Zero, rejected))
	assert.Equal(t, InvoiceStatusPaymentRejected, StatusFromPayments(InvoiceStatusInReview, total, decimal.Zero, rejected))

	// Full settlement wins over any leftover review signal.
	assert.Equal(t, InvoiceStatusPaid, StatusFromPayments(InvoiceStatusInReview, total, dec("100"), awaiting))

	// Draft and cancelled stay put even with payments under review.
	assert.Equal(t, InvoiceStatusDraft, StatusFromPayments(InvoiceStatusDraft, total, decimal.Zero, awaiting))
	assert.Equal(t, InvoiceStatusCancelled, StatusFromPayments(InvoiceStatusCancelled, total, decimal.Zero, rejected))
}

func TestEffectiveStatusDerivesOverdue(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	inv := Invoice{
		Status:    InvoiceStatusSent,
		DueDate:   due,
		Total:     dec("100"),
		TotalPaid: dec("40"),
	}

	assert.Equal(t, InvoiceStatusSent, inv.EffectiveStatus(due.Add(-time.Hour)))
	assert.Equal(t, InvoiceStatusOverdue, inv.EffectiveStatus(due.Add(time.Hour)))

	inv.Status = InvoiceStatusPartial
	assert.Equal(t, InvoiceStatusOverdue, inv.EffectiveStatus(due.Add(time.Hour)))

	// A settled invoice is never overdue regardless of dates.
	inv.TotalPaid = dec("100")
	assert.Equal(t, InvoiceStatusPartial, inv.EffectiveStatus(due.Add(time.Hour)))

	inv.Status = InvoiceStatusDraft
	assert.Equal(t, InvoiceStatusDraft, inv.EffectiveStatus(due.Add(time.Hour)))
}

func TestLocked(t *testing.T) {
	locked := []InvoiceStatus{
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusPartial,
		InvoiceStatusInReview,
		InvoiceStatusPaymentRejected,
	}
	for _, status := range locked {
		assert.True(t, Invoice{Status: status}.Locked(), string(status))
	}

	assert.False(t, Invoice{Status: InvoiceStatusDraft}.Locked())
	assert.False(t, Invoice{Status: InvoiceStatusCancelled}.Locked())
}
