package server

import (
	"net/http"
	"testing"

	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	paymentdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "field validation errors",
			err:        newValidationError("amount", "required", "amount is required"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   "validation_error",
		},
		{
			name:       "overpayment",
			err:        paymentdomain.ErrOverpayment,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_state",
		},
		{
			name:       "locked invoice",
			err:        invoicedomain.ErrInvoiceLocked,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_state",
		},
		{
			name:       "domain validation sentinel",
			err:        paymentdomain.ErrInvalidAmount,
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "not found",
			err:        invoicedomain.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "duplicate event",
			err:        paymentdomain.ErrEventAlreadyProcessed,
			wantStatus: http.StatusConflict,
			wantType:   "conflict",
		},
		{
			name:       "unknown error",
			err:        http.ErrBodyNotAllowed,
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, tt.wantType, payload.Type)
		})
	}
}

func TestMapError_FieldValidationCarriesFields(t *testing.T) {
	status, payload := mapError(newValidationError("line_items", "min", "at least one line item"))
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Len(t, payload.Errors, 1)
	require.Equal(t, "line_items", payload.Errors[0].Field)
}
