package server

import (
	"errors"
	"net/http"

	auditdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/domain"
	budgetdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/domain"
	expensedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/domain"
	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	paymentdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Code: err.Error(), Message: err.Error()},
			},
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isStateError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrInvalidTenant),
		errors.Is(err, invoicedomain.ErrInvalidLineItem),
		errors.Is(err, invoicedomain.ErrInvalidTaxRate),
		errors.Is(err, invoicedomain.ErrInvalidFrequency),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrInvalidSession),
		errors.Is(err, budgetdomain.ErrInvalidCategory),
		errors.Is(err, budgetdomain.ErrInvalidKind),
		errors.Is(err, budgetdomain.ErrInvalidMonth),
		errors.Is(err, budgetdomain.ErrInvalidYear),
		errors.Is(err, budgetdomain.ErrInvalidAmount),
		errors.Is(err, budgetdomain.ErrSameYear),
		errors.Is(err, expensedomain.ErrInvalidAmount),
		errors.Is(err, expensedomain.ErrInvalidStatus),
		errors.Is(err, expensedomain.ErrInvalidPaidAmount),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrScheduleNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, budgetdomain.ErrCategoryNotFound),
		errors.Is(err, expensedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, invoicedomain.ErrDuplicateNumber),
		errors.Is(err, paymentdomain.ErrEventAlreadyProcessed),
		errors.Is(err, expensedomain.ErrAlreadyPaid):
		return true
	default:
		return false
	}
}

// isStateError covers operations rejected by the entity's current state
// rather than by the request shape.
func isStateError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvoiceLocked),
		errors.Is(err, invoicedomain.ErrNotDraft),
		errors.Is(err, invoicedomain.ErrNotTombstoned),
		errors.Is(err, invoicedomain.ErrDeleteSentOrPaid),
		errors.Is(err, invoicedomain.ErrScheduleInactive),
		errors.Is(err, paymentdomain.ErrOverpayment),
		errors.Is(err, paymentdomain.ErrNotPayable),
		errors.Is(err, paymentdomain.ErrInvalidReviewTransition):
		return true
	default:
		return false
	}
}
