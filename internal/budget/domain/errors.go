package domain

import "errors"

var (
	ErrCategoryNotFound = errors.New("budget category not found")
	ErrInvalidCategory  = errors.New("invalid budget category")
	ErrInvalidKind      = errors.New("budget category kind must be income or expense")
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidYear      = errors.New("invalid budget year")
	ErrInvalidAmount    = errors.New("budget amount must not be negative")
	ErrInvalidTenant    = errors.New("invalid tenant reference")
	ErrSameYear         = errors.New("source and target year must differ")
)
