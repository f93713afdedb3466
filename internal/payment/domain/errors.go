package domain

import "errors"

var (
	ErrNotFound                = errors.New("payment not found")
	ErrInvalidAmount           = errors.New("payment amount must be positive")
	ErrInvalidMethod           = errors.New("unknown payment method")
	ErrOverpayment             = errors.New("payment exceeds invoice balance")
	ErrNotPayable              = errors.New("invoice does not accept payments")
	ErrInvalidSession          = errors.New("checkout session id is required")
	ErrInvalidReviewTransition = errors.New("invalid review status transition")

	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrInvalidPayload        = errors.New("invalid webhook payload")
	ErrInvalidEvent          = errors.New("invalid gateway event")
	ErrEventIgnored          = errors.New("gateway event ignored")
	ErrEventAlreadyProcessed = errors.New("gateway event already processed")
	ErrInvalidTenant         = errors.New("invalid tenant reference")
)
