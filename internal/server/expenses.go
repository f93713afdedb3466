package server

import (
	"net/http"
	"strings"
	"time"

	expensedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createExpenseRequest struct {
	CategoryID  *snowflake.ID   `json:"category_id"`
	VendorName  string          `json:"vendor_name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	IncurredAt  *time.Time      `json:"incurred_at"`
}

func (s *Server) CreateExpense(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cmd := expensedomain.CreateExpenseCommand{
		TenantID:    tenantID,
		CategoryID:  req.CategoryID,
		VendorName:  req.VendorName,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.IncurredAt != nil {
		cmd.IncurredAt = *req.IncurredAt
	}

	item, err := s.expenseSvc.Create(c.Request.Context(), cmd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) ListExpenses(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.expenseSvc.List(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

type settleExpenseRequest struct {
	Status     string          `json:"status"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	PaidAt     *time.Time      `json:"paid_at"`
}

func (s *Server) SettleExpense(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req settleExpenseRequest
	_ = c.ShouldBindJSON(&req)

	cmd := expensedomain.SettleExpenseCommand{
		TenantID:   tenantID,
		ExpenseID:  id,
		Status:     expensedomain.ExpenseStatus(req.Status),
		PaidAmount: req.PaidAmount,
	}
	if req.PaidAt != nil {
		cmd.PaidAt = *req.PaidAt
	}

	item, err := s.expenseSvc.Settle(c.Request.Context(), cmd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

type categorizeExpenseRequest struct {
	CategoryID *snowflake.ID `json:"category_id"`
}

func (s *Server) CategorizeExpense(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req categorizeExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.expenseSvc.Categorize(c.Request.Context(), tenantID, id, req.CategoryID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

type syncExpensesRequest struct {
	TenantID string                   `json:"tenant_id"`
	Items    []expensedomain.SyncItem `json:"items"`
}

// SyncExpenses ingests a bank-feed batch on behalf of a tenant. It sits on
// the internal surface: the caller is the sync worker, not a browser, so the
// tenant comes from the body rather than the tenant header.
func (s *Server) SyncExpenses(c *gin.Context) {
	var req syncExpensesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "invalid tenant id"))
		return
	}

	created, err := s.expenseSvc.Sync(c.Request.Context(), tenantID, req.Items)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}
