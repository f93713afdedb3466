package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint violation on
// any supported dialect. gorm's TranslateError covers most paths; the string
// checks catch drivers that surface the raw database error.
func IsDuplicateKeyErr(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	}

	msg := err.Error()
	// postgres 23505 and sqlite 2067 respectively.
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
