package domain

import "time"

// NextDueDate advances an anchor date by one billing cycle. Unrecognized
// frequencies fall back to one month.
func NextDueDate(frequency Frequency, anchor time.Time) time.Time {
	switch frequency {
	case FrequencyWeekly:
		return anchor.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return anchor.AddDate(0, 3, 0)
	case FrequencyYearly:
		return anchor.AddDate(1, 0, 0)
	default:
		return anchor.AddDate(0, 1, 0)
	}
}

// HasRemainingCycles reports whether the schedule may still generate. A nil
// count means the schedule is endless.
func HasRemainingCycles(count *int) bool {
	return count == nil || *count > 0
}

// DecrementCycles consumes one cycle after an invoice was actually generated.
// It returns the new count and whether the schedule stays active.
func DecrementCycles(count *int) (*int, bool) {
	if count == nil {
		return nil, true
	}
	next := *count - 1
	if next < 0 {
		next = 0
	}
	return &next, next > 0
}

// DueDateFor resolves a due-date policy against the invoice start date.
// netDays supplies the policy day counts (net_15 → 15, …); unknown policies
// and use_payment_terms fall back to the tenant's default term days.
func DueDateFor(policy DueDatePolicy, start time.Time, netDays map[string]int, defaultTermDays int) time.Time {
	switch policy {
	case DueOnReceipt:
		return start
	case DuePaymentTerms:
		return start.AddDate(0, 0, defaultTermDays)
	default:
		if days, ok := netDays[string(policy)]; ok {
			return start.AddDate(0, 0, days)
		}
		return start.AddDate(0, 0, defaultTermDays)
	}
}
