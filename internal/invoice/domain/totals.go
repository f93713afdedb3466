package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Totals is the computed face value of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals sums the line items and applies the tax rate on the summed
// subtotal rather than per line, so rounding drift cannot accumulate across
// items. Tax rate is a percentage within [0,100].
func ComputeTotals(items []LineItem, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return Totals{}, ErrInvalidTaxRate
	}

	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity.IsNegative() || item.UnitCost.IsNegative() || item.Total.IsNegative() {
			return Totals{}, ErrInvalidLineItem
		}
		subtotal = subtotal.Add(item.Total)
	}
	subtotal = subtotal.Round(2)

	taxAmount := subtotal.Mul(taxRate).Div(hundred).Round(2)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}, nil
}

// LineTotal computes a single line's amount from unit cost and quantity.
func LineTotal(unitCost, quantity decimal.Decimal) (decimal.Decimal, error) {
	if unitCost.IsNegative() || quantity.IsNegative() {
		return decimal.Zero, ErrInvalidLineItem
	}
	return unitCost.Mul(quantity).Round(2), nil
}

// PaymentReview summarizes the review states of an invoice's payments for
// status derivation.
type PaymentReview struct {
	// AwaitingReview is true while any payment sits in pending or in_review.
	AwaitingReview bool
	// LatestRejected is true when the most recent payment failed review and
	// nothing newer is open or approved past the total.
	LatestRejected bool
}

// StatusFromPayments derives the invoice status from the full payment set:
// the approved sum plus the review states of the unapproved payments. The
// status is always recomputed from scratch, never patched incrementally, so
// it cannot drift from the payment set. A draft is never silently promoted
// or demoted here.
func StatusFromPayments(current InvoiceStatus, total, totalPaid decimal.Decimal, review PaymentReview) InvoiceStatus {
	if current == InvoiceStatusDraft || current == InvoiceStatusCancelled {
		return current
	}
	switch {
	case totalPaid.GreaterThanOrEqual(total) && total.IsPositive():
		return InvoiceStatusPaid
	case review.AwaitingReview:
		return InvoiceStatusInReview
	case review.LatestRejected:
		return InvoiceStatusPaymentRejected
	case totalPaid.IsPositive():
		return InvoiceStatusPartial
	default:
		return InvoiceStatusSent
	}
}
