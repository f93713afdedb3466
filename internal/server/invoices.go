package server

import (
	"net/http"
	"strings"
	"time"

	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type lineItemRequest struct {
	Name       string          `json:"name"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Quantity   decimal.Decimal `json:"quantity"`
	CategoryID *snowflake.ID   `json:"category_id"`
}

type createInvoiceRequest struct {
	UnitID          string            `json:"unit_id"`
	UnitTitle       string            `json:"unit_title"`
	Frequency       string            `json:"frequency"`
	StartDate       *time.Time        `json:"start_date"`
	DuePolicy       string            `json:"due_policy"`
	TaxRate         decimal.Decimal   `json:"tax_rate"`
	Notes           string            `json:"notes"`
	RemainingCycles *int              `json:"remaining_cycles"`
	LineItems       []lineItemRequest `json:"line_items"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	unitID, err := snowflake.ParseString(strings.TrimSpace(req.UnitID))
	if err != nil {
		AbortWithError(c, newValidationError("unit_id", "invalid_unit_id", "invalid unit id"))
		return
	}

	cmd := invoicedomain.CreateInvoiceCommand{
		TenantID:        tenantID,
		UnitID:          unitID,
		UnitTitle:       req.UnitTitle,
		Frequency:       invoicedomain.Frequency(req.Frequency),
		DuePolicy:       invoicedomain.DueDatePolicy(req.DuePolicy),
		TaxRate:         req.TaxRate,
		Notes:           req.Notes,
		RemainingCycles: req.RemainingCycles,
		LineItems:       toLineItemInputs(req.LineItems),
	}
	if req.StartDate != nil {
		cmd.StartDate = *req.StartDate
	}

	item, err := s.invoiceSvc.Create(c.Request.Context(), cmd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func toLineItemInputs(items []lineItemRequest) []invoicedomain.LineItemInput {
	inputs := make([]invoicedomain.LineItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, invoicedomain.LineItemInput{
			Name:       item.Name,
			UnitCost:   item.UnitCost,
			Quantity:   item.Quantity,
			CategoryID: item.CategoryID,
		})
	}
	return inputs
}

func (s *Server) ListInvoices(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	includeDeleted := c.Query("include_deleted") == "true"

	items, err := s.invoiceSvc.List(c.Request.Context(), tenantID, includeDeleted)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Overdue is derived at read time, never stored. The grace period shifts
	// the compare point so a bill is not flagged the morning after its due date.
	asOf := s.overdueAsOf()
	type invoiceView struct {
		invoicedomain.Invoice
		EffectiveStatus invoicedomain.InvoiceStatus `json:"effective_status"`
	}
	views := make([]invoiceView, 0, len(items))
	for _, item := range items {
		views = append(views, invoiceView{Invoice: item, EffectiveStatus: item.EffectiveStatus(asOf)})
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":             item,
		"effective_status": item.EffectiveStatus(s.overdueAsOf()),
	})
}

func (s *Server) overdueAsOf() time.Time {
	return time.Now().UTC().AddDate(0, 0, -s.policy.Get().OverdueGraceDays)
}

type updateLineItemsRequest struct {
	TaxRate   decimal.Decimal   `json:"tax_rate"`
	LineItems []lineItemRequest `json:"line_items"`
}

func (s *Server) UpdateInvoiceLineItems(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.invoiceSvc.UpdateLineItems(c.Request.Context(), invoicedomain.UpdateLineItemsCommand{
		TenantID:  tenantID,
		InvoiceID: id,
		TaxRate:   req.TaxRate,
		LineItems: toLineItemInputs(req.LineItems),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) SendInvoice(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.MarkSent(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.Cancel(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	force := c.Query("force") == "true"

	if err := s.invoiceSvc.Delete(c.Request.Context(), tenantID, id, force); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RestoreInvoice(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.Restore(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) RunSchedules(c *gin.Context) {
	generated, err := s.invoiceSvc.RunSchedules(c.Request.Context(), time.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generated": generated})
}

func tenantAndID(c *gin.Context) (snowflake.ID, snowflake.ID, error) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		return 0, 0, ErrUnauthorized
	}
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return 0, 0, newValidationError("id", "invalid_id", "invalid id")
	}
	return tenantID, id, nil
}
