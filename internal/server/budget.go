package server

import (
	"net/http"
	"strconv"
	"strings"

	budgetdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createCategoryRequest struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Position int    `json:"position"`
}

func (s *Server) CreateBudgetCategory(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.budgetSvc.CreateCategory(c.Request.Context(), budgetdomain.CreateCategoryCommand{
		TenantID: tenantID,
		Name:     req.Name,
		Kind:     budgetdomain.CategoryKind(req.Kind),
		Position: req.Position,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) ListBudgetCategories(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.budgetSvc.ListCategories(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

type renameCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) RenameBudgetCategory(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req renameCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.budgetSvc.RenameCategory(c.Request.Context(), tenantID, id, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteBudgetCategory(c *gin.Context) {
	tenantID, id, err := tenantAndID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.budgetSvc.DeleteCategory(c.Request.Context(), tenantID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) GetBudgetYear(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	year, err := yearParam(c, "year")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.budgetSvc.YearReport(c.Request.Context(), tenantID, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) ListBudgetAudit(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	year, err := yearParam(c, "year")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.auditSvc.ListByYear(c.Request.Context(), tenantID, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

type budgetEntryUpsert struct {
	BudgetCategoryID snowflake.ID    `json:"budget_category_id"`
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	ForecastAmount   decimal.Decimal `json:"forecast_amount"`
}

// UpsertBudgetEntries takes a flat list of forecast cells, possibly spanning
// years, and upserts them year by year.
func (s *Server) UpsertBudgetEntries(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req []budgetEntryUpsert
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	byYear := make(map[int][]budgetdomain.EntryInput)
	years := make([]int, 0, 1)
	for _, cell := range req {
		if _, seen := byYear[cell.Year]; !seen {
			years = append(years, cell.Year)
		}
		byYear[cell.Year] = append(byYear[cell.Year], budgetdomain.EntryInput{
			CategoryID: cell.BudgetCategoryID,
			Month:      cell.Month,
			Amount:     cell.ForecastAmount,
		})
	}

	for _, year := range years {
		err := s.budgetSvc.UpsertEntries(c.Request.Context(), budgetdomain.UpsertEntriesCommand{
			TenantID: tenantID,
			Year:     year,
			Entries:  byYear[year],
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CopyBudgetYear(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	fromYear, err := yearParam(c, "fromYear")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	toYear, err := yearParam(c, "toYear")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	copied, err := s.budgetSvc.CopyYear(c.Request.Context(), tenantID, fromYear, toYear)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"copied": copied})
}

func yearParam(c *gin.Context, name string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Param(name)))
	if err != nil || year <= 0 {
		return 0, newValidationError(name, "invalid_year", "invalid year")
	}
	return year, nil
}
