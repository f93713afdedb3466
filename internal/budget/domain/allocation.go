package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AllocationTarget is one invoice line item receiving a share of a payment.
type AllocationTarget struct {
	CategoryID *snowflake.ID
	Total      decimal.Decimal
}

// AllocatePayment splits a payment across line items in proportion to each
// item's share of the line total sum. Shares are rounded to cents and the
// last item absorbs the rounding remainder, so the shares always sum to the
// payment amount exactly. A zero line total sum splits the payment equally.
func AllocatePayment(amount decimal.Decimal, targets []AllocationTarget) []decimal.Decimal {
	if len(targets) == 0 {
		return nil
	}

	shares := make([]decimal.Decimal, len(targets))
	sum := decimal.Zero
	for _, target := range targets {
		sum = sum.Add(target.Total)
	}

	allocated := decimal.Zero
	if sum.IsPositive() {
		for i, target := range targets {
			if i == len(targets)-1 {
				break
			}
			share := amount.Mul(target.Total).Div(sum).Round(2)
			shares[i] = share
			allocated = allocated.Add(share)
		}
	} else {
		count := decimal.NewFromInt(int64(len(targets)))
		equal := amount.Div(count).Round(2)
		for i := 0; i < len(targets)-1; i++ {
			shares[i] = equal
			allocated = allocated.Add(equal)
		}
	}

	shares[len(targets)-1] = amount.Sub(allocated)
	return shares
}
