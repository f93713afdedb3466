package domain

import "errors"

var (
	ErrNotFound          = errors.New("invoice_not_found")
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidLineItem   = errors.New("invalid_line_item")
	ErrInvalidTaxRate    = errors.New("invalid_tax_rate")
	ErrInvalidFrequency  = errors.New("invalid_frequency")
	ErrInvoiceLocked     = errors.New("cannot update sent or paid invoices")
	ErrNotDraft          = errors.New("invoice_not_draft")
	ErrNotTombstoned     = errors.New("invoice_not_tombstoned")
	ErrDeleteSentOrPaid  = errors.New("cannot delete sent or paid invoices")
	ErrDuplicateNumber   = errors.New("duplicate_invoice_number")
	ErrScheduleNotFound  = errors.New("schedule_not_found")
	ErrScheduleInactive  = errors.New("schedule_inactive")
)
