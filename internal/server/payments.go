package server

import (
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type recordPaymentRequest struct {
	InvoiceID    string          `json:"invoice_id"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	ReviewStatus string          `json:"review_status"`
	Reference    string          `json:"reference"`
	Notes        string          `json:"notes"`
	ReceivedAt   *time.Time      `json:"received_at"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	if err != nil {
		AbortWithError(c, newValidationError("invoice_id", "invalid_invoice_id", "invalid invoice id"))
		return
	}

	cmd := paymentdomain.RecordPaymentCommand{
		TenantID:     tenantID,
		InvoiceID:    invoiceID,
		Amount:       req.Amount,
		Method:       paymentdomain.Method(req.Method),
		ReviewStatus: paymentdomain.ReviewStatus(req.ReviewStatus),
		Reference:    req.Reference,
		Notes:        req.Notes,
	}
	if req.ReceivedAt != nil {
		cmd.ReceivedAt = *req.ReceivedAt
	}

	item, err := s.paymentSvc.Record(c.Request.Context(), cmd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

// RecordInvoicePayment is the nested form of RecordPayment; the invoice comes
// from the path, any invoice_id in the body is ignored.
func (s *Server) RecordInvoicePayment(c *gin.Context) {
	tenantID, invoiceID, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cmd := paymentdomain.RecordPaymentCommand{
		TenantID:     tenantID,
		InvoiceID:    invoiceID,
		Amount:       req.Amount,
		Method:       paymentdomain.Method(req.Method),
		ReviewStatus: paymentdomain.ReviewStatus(req.ReviewStatus),
		Reference:    req.Reference,
		Notes:        req.Notes,
	}
	if req.ReceivedAt != nil {
		cmd.ReceivedAt = *req.ReceivedAt
	}

	item, err := s.paymentSvc.Record(c.Request.Context(), cmd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

type checkoutSessionRequest struct {
	CheckoutSessionID string          `json:"checkout_session_id"`
	Amount            decimal.Decimal `json:"amount"`
}

func (s *Server) CreateCheckoutSessionPayment(c *gin.Context) {
	tenantID, invoiceID, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req checkoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.paymentSvc.RegisterCheckoutSession(c.Request.Context(), paymentdomain.RegisterCheckoutSessionCommand{
		TenantID:          tenantID,
		InvoiceID:         invoiceID,
		CheckoutSessionID: req.CheckoutSessionID,
		Amount:            req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) ListPayments(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.paymentSvc.ListByTenant(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	tenantID, invoiceID, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.paymentSvc.ListByInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.paymentSvc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

type updatePaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
}

func (s *Server) UpdatePayment(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.paymentSvc.Update(c.Request.Context(), paymentdomain.UpdatePaymentCommand{
		TenantID:  tenantID,
		PaymentID: id,
		Amount:    req.Amount,
		Method:    paymentdomain.Method(req.Method),
		Reference: req.Reference,
		Notes:     req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeletePayment(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.paymentSvc.Delete(c.Request.Context(), tenantID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) StartPaymentReview(c *gin.Context) {
	s.reviewTransition(c, func(tenantID, id snowflake.ID) (*paymentdomain.Payment, error) {
		return s.paymentSvc.StartReview(c.Request.Context(), tenantID, id)
	})
}

func (s *Server) ApprovePayment(c *gin.Context) {
	s.reviewTransition(c, func(tenantID, id snowflake.ID) (*paymentdomain.Payment, error) {
		return s.paymentSvc.Approve(c.Request.Context(), tenantID, id)
	})
}

type rejectPaymentRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectPayment(c *gin.Context) {
	var req rejectPaymentRequest
	_ = c.ShouldBindJSON(&req)
	s.reviewTransition(c, func(tenantID, id snowflake.ID) (*paymentdomain.Payment, error) {
		return s.paymentSvc.Reject(c.Request.Context(), tenantID, id, req.Reason)
	})
}

func (s *Server) ResubmitPayment(c *gin.Context) {
	s.reviewTransition(c, func(tenantID, id snowflake.ID) (*paymentdomain.Payment, error) {
		return s.paymentSvc.Resubmit(c.Request.Context(), tenantID, id)
	})
}

func (s *Server) reviewTransition(c *gin.Context, fn func(tenantID, id snowflake.ID) (*paymentdomain.Payment, error)) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := fn(tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}
