package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/domain"
	auditrepo "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/repository"
	auditservice "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/service"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/repository"
	expensedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/domain"
	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	paymentdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type budgetFixture struct {
	conn     *gorm.DB
	node     *snowflake.Node
	svc      domain.Service
	auditSvc auditdomain.Service
}

func setupBudgetService(t *testing.T) *budgetFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Category{},
		&domain.Entry{},
		&auditdomain.AuditLog{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.Payment{},
		&expensedomain.Expense{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})

	svc := NewService(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		AuditSvc: auditSvc,
	})
	return &budgetFixture{conn: conn, node: node, svc: svc, auditSvc: auditSvc}
}

func (f *budgetFixture) category(t *testing.T, tenantID snowflake.ID, name string, kind domain.CategoryKind) *domain.Category {
	t.Helper()
	category, err := f.svc.CreateCategory(context.Background(), domain.CreateCategoryCommand{
		TenantID: tenantID,
		Name:     name,
		Kind:     kind,
	})
	require.NoError(t, err)
	return category
}

// seedPaidInvoice writes an invoice, its line items and one approved payment
// straight to the tables the actuals queries read from.
func (f *budgetFixture) seedPaidInvoice(t *testing.T, tenantID snowflake.ID, receivedAt time.Time, paymentAmount decimal.Decimal, lines []invoicedomain.LineItem) {
	t.Helper()

	now := time.Now().UTC()
	invoiceID := f.node.Generate()
	total := decimal.Zero
	for i := range lines {
		lines[i].ID = f.node.Generate()
		lines[i].TenantID = tenantID
		lines[i].InvoiceID = invoiceID
		lines[i].Position = i
		lines[i].UnitCost = lines[i].Total
		lines[i].Quantity = decimal.NewFromInt(1)
		lines[i].CreatedAt = now
		total = total.Add(lines[i].Total)
	}

	invoice := invoicedomain.Invoice{
		ID:        invoiceID,
		TenantID:  tenantID,
		UnitID:    f.node.Generate(),
		Number:    "UNITC-2026-01-" + invoiceID.String(),
		Frequency: invoicedomain.FrequencyOneTime,
		StartDate: receivedAt,
		DuePolicy: invoicedomain.DueNet30,
		DueDate:   receivedAt.AddDate(0, 0, 30),
		Subtotal:  total,
		Total:     total,
		TotalPaid: paymentAmount,
		Status:    invoicedomain.InvoiceStatusPartial,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.conn.Create(&invoice).Error)
	require.NoError(t, f.conn.Create(&lines).Error)

	payment := paymentdomain.Payment{
		ID:           f.node.Generate(),
		TenantID:     tenantID,
		InvoiceID:    invoiceID,
		Amount:       paymentAmount,
		Method:       paymentdomain.MethodCheck,
		ReviewStatus: paymentdomain.ReviewApproved,
		ReceivedAt:   receivedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.conn.Create(&payment).Error)
}

func (f *budgetFixture) auditLogs(t *testing.T, tenantID snowflake.ID, year int) []auditdomain.AuditLog {
	t.Helper()
	logs, err := f.auditSvc.ListByYear(context.Background(), tenantID, year)
	require.NoError(t, err)
	return logs
}

func TestCategoryLifecycleIsAudited(t *testing.T) {
	f := setupBudgetService(t)
	tenantID := f.node.Generate()
	year := time.Now().UTC().Year()

	category := f.category(t, tenantID, "Dues", domain.KindIncome)

	renamed, err := f.svc.RenameCategory(context.Background(), tenantID, category.ID, "Monthly Dues")
	require.NoError(t, err)
	assert.Equal(t, "Monthly Dues", renamed.Name)

	require.NoError(t, f.svc.DeleteCategory(context.Background(), tenantID, category.ID))

	err = f.svc.DeleteCategory(context.Background(), tenantID, category.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	logs := f.auditLogs(t, tenantID, year)
	require.Len(t, logs, 3)
	actions := make([]string, 0, len(logs))
	for _, log := range logs {
		actions = append(actions, log.Action)
	}
	assert.ElementsMatch(t, []string{
		"budget.category.create",
		"budget.category.rename",
		"budget.category.delete",
	}, actions)
}

func TestCreateCategory_Validation(t *testing.T) {
	f := setupBudgetService(t)

	_, err := f.svc.CreateCategory(context.Background(), domain.CreateCategoryCommand{
		TenantID: 0, Name: "Dues", Kind: domain.KindIncome,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = f.svc.CreateCategory(context.Background(), domain.CreateCategoryCommand{
		TenantID: f.node.Generate(), Name: "   ", Kind: domain.KindIncome,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = f.svc.CreateCategory(context.Background(), domain.CreateCategoryCommand{
		TenantID: f.node.Generate(), Name: "Dues", Kind: "savings",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestUpsertEntries_WritesCellsAndOneAuditRecord(t *testing.T) {
	f := setupBudgetService(t)
	tenantID := f.node.Generate()
	category := f.category(t, tenantID, "Dues", domain.KindIncome)

	// A year with no category audit rows keeps the log assertions isolated.
	cmd := domain.UpsertEntriesCommand{
		TenantID: tenantID,
		Year:     2030,
		Entries: []domain.EntryInput{
			{CategoryID: category.ID, Month: 1, Amount: decimal.NewFromInt(1200)},
			{CategoryID: category.ID, Month: 2, Amount: decimal.NewFromInt(1200)},
		},
	}
	require.NoError(t, f.svc.UpsertEntries(context.Background(), cmd))

	report, err := f.svc.YearReport(context.Background(), tenantID, 2030)
	require.NoError(t, err)
	require.Len(t, report.Income, 1)
	assert.True(t, report.Income[0].Months[0].Forecast.Equal(decimal.NewFromInt(1200)))
	assert.True(t, report.Income[0].Months[1].Forecast.Equal(decimal.NewFromInt(1200)))
	assert.True(t, report.IncomeForecast.Equal(decimal.NewFromInt(2400)))

	logs := f.auditLogs(t, tenantID, 2030)
	require.Len(t, logs, 1)
	assert.Equal(t, "budget.entries.upsert", logs[0].Action)

	// Re-submitting identical amounts changes nothing and writes no audit row.
	require.NoError(t, f.svc.UpsertEntries(context.Background(), cmd))
	assert.Len(t, f.auditLogs(t, tenantID, 2030), 1)

	// Overwriting a cell replaces the amount rather than adding to it.
	cmd.Entries = []domain.EntryInput{{CategoryID: category.ID, Month: 1, Amount: decimal.NewFromInt(1500)}}
	require.NoError(t, f.svc.UpsertEntries(context.Background(), cmd))

	report, err = f.svc.YearReport(context.Background(), tenantID, 2030)
	require.NoError(t, err)
	assert.True(t, report.Income[0].Months[0].Forecast.Equal(decimal.NewFromInt(1500)))
	assert.Len(t, f.auditLogs(t, tenantID, 2030), 2)
}

func TestUpsertEntries_Validation(t *testing.T) {
	f := setupBudgetService(t)
	tenantID := f.node.Generate()
	category := f.category(t, tenantID, "Dues", domain.KindIncome)

	err := f.svc.UpsertEntries(context.Background(), domain.UpsertEntriesCommand{
		TenantID: tenantID,
		Year:     2026,
		Entries:  []domain.EntryInput{{CategoryID: category.ID, Month: 13, Amount: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)

	err = f.svc.UpsertEntries(context.Background(), domain.UpsertEntriesCommand{
		TenantID: tenantID,
		Year:     2026,
		Entries:  []domain.EntryInput{{CategoryID: category.ID, Month: 1, Amount: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	err = f.svc.UpsertEntries(context.Background(), domain.UpsertEntriesCommand{
		TenantID: tenantID,
		Year:     2026,
		Entries:  []domain.EntryInput{{CategoryID: f.node.Generate(), Month: 1, Amount: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestCopyYear_CopiesForecastsOnly(t *testing.T) {
	f := setupBudgetService(t)
	tenantID := f.node.Generate()
	category := f.category(t, tenantID, "Dues", domain.KindIncome)

	require.NoError(t, f.svc.UpsertEntries(context.Background(), domain.UpsertEntriesCommand{
		TenantID: tenantID,
		Year:     2026,
		Entries: []domain.EntryInput{
			{CategoryID: category.ID, Month: 1, Amount: decimal.NewFromInt(1200)},
			{CategoryID: category.ID, Month: 6, Amount: decimal.NewFromInt(900)},
		},
	}))

	// An actual in the source year must not travel with the copy.
	f.seedPaidInvoice(t, tenantID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(100), []invoicedomain.LineItem{
			{Name: "Dues", CategoryID: &category.ID, Total: decimal.NewFromInt(100)},
		})

	copied, err := f.svc.CopyYear(context.Background(), tenantID, 2026, 2027)
	require.NoError(t, err)
	assert.Equal(t, 2, copied)

	report, err := f.svc.YearReport(context.Background(), tenantID, 2027)
	require.NoError(t, err)
	require.Len(t, report.Income, 1)
	assert.True(t, report.Income[0].Months[0].Forecast.Equal(decimal.NewFromInt(1200)))
	assert.True(t, report.Income[0].Months[5].Forecast.Equal(decimal.NewFromInt(900)))
	assert.True(t, report.IncomeActual.IsZero())

	logs := f.auditLogs(t, tenantID, 2027)
	require.Len(t, logs, 1)
	assert.Equal(t, "budget.year.copy", logs[0].Action)

	_, err = f.svc.CopyYear(context.Background(), tenantID, 2026, 2026)
	assert.ErrorIs(t, err, domain.ErrSameYear)
}

func TestYearReport_AllocatesPaymentsAcrossCategories(t *testing.T) {
	f := setupBudgetService(t)
	tenantID := f.node.Generate()
	dues := f.category(t, tenantID, "Dues", domain.KindIncome)
	pool := f.category(t, tenantID, "Pool", domain.KindIncome)

	// $60 against a $100 dues + $20 pool invoice splits $50/$10.
	f.seedPaidInvoice(t, tenantID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(60), []invoicedomain.LineItem{
			{Name: "Dues", CategoryID: &dues.ID, Total: decimal.NewFromInt(100)},
			{Name: "Pool", CategoryID: &pool.ID, Total: decimal.NewFromInt(20)},
		})

	report, err := f.svc.YearReport(context.Background(), tenantID, 2026)
	require.NoError(t, err)
	require.Len(t, report.Income, 2)

	byName := map[string]domain.CategoryReport{}
	for _, row := range report.Income {
		byName[row.Name] = row
	}
	assert.True(t, byName["Dues"].Months[2].Actual.Equal(decimal.NewFromInt(50)),
		byName["Dues"].Months[2].Actual.String())
	assert.True(t, byName["Pool"].Months[2].Actual.Equal(decimal.NewFromInt(10)),
		byName["Pool"].Months[2].Actual.String())
	assert.True(t, report.IncomeActual.Equal(decimal.NewFromInt(60)))
}

func TestYearReport_UncategorizedIncome(t *testing.T) {
	f := setupBudgetService(t)
	tenantID := f.node.Generate()
	dues := f.category(t, tenantID, "Dues", domain.KindIncome)

	// The second line has no category; its share lands in the
	// uncategorized bucket instead of disappearing.
	f.seedPaidInvoice(t, tenantID, time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(120), []invoicedomain.LineItem{
			{Name: "Dues", CategoryID: &dues.ID, Total: decimal.NewFromInt(100)},
			{Name: "Key fob", Total: decimal.NewFromInt(20)},
		})

	report, err := f.svc.YearReport(context.Background(), tenantID, 2026)
	require.NoError(t, err)
	require.Len(t, report.Income, 1)
	assert.True(t, report.Income[0].Months[6].Actual.Equal(decimal.NewFromInt(100)))
	assert.True(t, report.UncategorizedIncome[6].Equal(decimal.NewFromInt(20)))
	assert.True(t, report.IncomeActual.Equal(decimal.NewFromInt(120)))
}

func TestYearReport_ExpenseActuals(t *testing.T) {
	f := setupBudgetService(t)
	tenantID := f.node.Generate()
	landscaping := f.category(t, tenantID, "Landscaping", domain.KindExpense)

	now := time.Now().UTC()
	paidAt := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	expenses := []expensedomain.Expense{
		{
			ID:            f.node.Generate(),
			TenantID:      tenantID,
			CategoryID:    &landscaping.ID,
			VendorName:    "GreenWorks",
			InvoiceAmount: decimal.NewFromInt(800),
			PaidAmount:    decimal.NewFromInt(800),
			Status:        expensedomain.StatusPaid,
			IncurredAt:    paidAt,
			PaidAt:        &paidAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			// A partial settlement contributes only its paid portion.
			ID:            f.node.Generate(),
			TenantID:      tenantID,
			CategoryID:    &landscaping.ID,
			VendorName:    "Roof Repair Co",
			InvoiceAmount: decimal.NewFromInt(1000),
			PaidAmount:    decimal.NewFromInt(250),
			Status:        expensedomain.StatusPartial,
			IncurredAt:    paidAt,
			PaidAt:        &paidAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			// Pending expenses never count as actuals.
			ID:            f.node.Generate(),
			TenantID:      tenantID,
			CategoryID:    &landscaping.ID,
			VendorName:    "GreenWorks",
			InvoiceAmount: decimal.NewFromInt(300),
			Status:        expensedomain.StatusPending,
			IncurredAt:    paidAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
	require.NoError(t, f.conn.Create(&expenses).Error)

	report, err := f.svc.YearReport(context.Background(), tenantID, 2026)
	require.NoError(t, err)
	require.Len(t, report.Expense, 1)
	assert.True(t, report.Expense[0].Months[3].Actual.Equal(decimal.NewFromInt(1050)))
	assert.True(t, report.ExpenseActual.Equal(decimal.NewFromInt(1050)))
}
