package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("budget.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) CreateCategory(ctx context.Context, cmd domain.CreateCategoryCommand) (*domain.Category, error) {
	if cmd.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, domain.ErrInvalidCategory
	}
	if cmd.Kind != domain.KindIncome && cmd.Kind != domain.KindExpense {
		return nil, domain.ErrInvalidKind
	}

	now := time.Now().UTC()
	category := &domain.Category{
		ID:        s.genID.Generate(),
		TenantID:  cmd.TenantID,
		Name:      name,
		Kind:      cmd.Kind,
		Position:  cmd.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertCategory(ctx, tx, category); err != nil {
			return err
		}
		return s.auditSvc.Log(ctx, tx, auditdomain.Entry{
			TenantID:   cmd.TenantID,
			Year:       now.Year(),
			Action:     "budget.category.create",
			EntityType: "budget_category",
			EntityID:   &category.ID,
			After:      category,
		})
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context, tenantID snowflake.ID) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, s.db, tenantID)
}

func (s *Service) RenameCategory(ctx context.Context, tenantID, id snowflake.ID, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidCategory
	}

	var renamed *domain.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := s.repo.FindCategory(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		before := *category
		category.Name = name
		category.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateCategory(ctx, tx, category); err != nil {
			return err
		}
		renamed = category
		return s.auditSvc.Log(ctx, tx, auditdomain.Entry{
			TenantID:   tenantID,
			Year:       category.UpdatedAt.Year(),
			Action:     "budget.category.rename",
			EntityType: "budget_category",
			EntityID:   &category.ID,
			Before:     before,
			After:      category,
		})
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

func (s *Service) DeleteCategory(ctx context.Context, tenantID, id snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		category, err := s.repo.FindCategory(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteCategory(ctx, tx, tenantID, id); err != nil {
			return err
		}
		return s.auditSvc.Log(ctx, tx, auditdomain.Entry{
			TenantID:   tenantID,
			Year:       time.Now().UTC().Year(),
			Action:     "budget.category.delete",
			EntityType: "budget_category",
			EntityID:   &id,
			Before:     category,
		})
	})
}

type entryChange struct {
	CategoryID snowflake.ID    `json:"category_id"`
	Month      int             `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

func (s *Service) UpsertEntries(ctx context.Context, cmd domain.UpsertEntriesCommand) error {
	if cmd.TenantID == 0 {
		return domain.ErrInvalidTenant
	}
	if cmd.Year <= 0 {
		return domain.ErrInvalidYear
	}
	for _, input := range cmd.Entries {
		if input.Month < 1 || input.Month > 12 {
			return domain.ErrInvalidMonth
		}
		if input.Amount.IsNegative() {
			return domain.ErrInvalidAmount
		}
		if input.CategoryID == 0 {
			return domain.ErrInvalidCategory
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var before, after []entryChange

		for _, input := range cmd.Entries {
			if _, err := s.repo.FindCategory(ctx, tx, cmd.TenantID, input.CategoryID); err != nil {
				return err
			}
			existing, err := s.repo.FindEntry(ctx, tx, cmd.TenantID, input.CategoryID, cmd.Year, input.Month)
			if err != nil {
				return err
			}
			amount := input.Amount.Round(2)
			if existing != nil && existing.Amount.Equal(amount) {
				continue
			}

			prev := decimal.Zero
			if existing != nil {
				prev = existing.Amount
			}
			before = append(before, entryChange{CategoryID: input.CategoryID, Month: input.Month, Amount: prev})
			after = append(after, entryChange{CategoryID: input.CategoryID, Month: input.Month, Amount: amount})

			entry := &domain.Entry{
				ID:         s.genID.Generate(),
				TenantID:   cmd.TenantID,
				CategoryID: input.CategoryID,
				Year:       cmd.Year,
				Month:      input.Month,
				Amount:     amount,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.repo.UpsertEntry(ctx, tx, entry); err != nil {
				return err
			}
		}

		if len(after) == 0 {
			return nil
		}
		return s.auditSvc.Log(ctx, tx, auditdomain.Entry{
			TenantID:   cmd.TenantID,
			Year:       cmd.Year,
			Action:     "budget.entries.upsert",
			EntityType: "budget_entry",
			Before:     before,
			After:      after,
		})
	})
}

func (s *Service) CopyYear(ctx context.Context, tenantID snowflake.ID, fromYear, toYear int) (int, error) {
	if tenantID == 0 {
		return 0, domain.ErrInvalidTenant
	}
	if fromYear <= 0 || toYear <= 0 {
		return 0, domain.ErrInvalidYear
	}
	if fromYear == toYear {
		return 0, domain.ErrSameYear
	}

	copied := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		entries, err := s.repo.ListEntries(ctx, tx, tenantID, fromYear)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, source := range entries {
			entry := &domain.Entry{
				ID:         s.genID.Generate(),
				TenantID:   tenantID,
				CategoryID: source.CategoryID,
				Year:       toYear,
				Month:      source.Month,
				Amount:     source.Amount,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.repo.UpsertEntry(ctx, tx, entry); err != nil {
				return err
			}
			copied++
		}
		if copied == 0 {
			return nil
		}

		return s.auditSvc.Log(ctx, tx, auditdomain.Entry{
			TenantID:   tenantID,
			Year:       toYear,
			Action:     "budget.year.copy",
			EntityType: "budget_entry",
			After:      map[string]int{"from_year": fromYear, "to_year": toYear, "entries": copied},
		})
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("budget year copied",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("from_year", fromYear),
		zap.Int("to_year", toYear),
		zap.Int("entries", copied),
	)
	return copied, nil
}

func (s *Service) YearReport(ctx context.Context, tenantID snowflake.ID, year int) (*domain.YearReport, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if year <= 0 {
		return nil, domain.ErrInvalidYear
	}

	categories, err := s.repo.ListCategories(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, s.db, tenantID, year)
	if err != nil {
		return nil, err
	}
	allocations, err := s.repo.PaymentAllocations(ctx, s.db, tenantID, year)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ExpenseActuals(ctx, s.db, tenantID, year)
	if err != nil {
		return nil, err
	}

	report := &domain.YearReport{Year: year}
	rows := make(map[snowflake.ID]*domain.CategoryReport, len(categories))
	for _, category := range categories {
		rows[category.ID] = &domain.CategoryReport{
			CategoryID:   category.ID,
			Name:         category.Name,
			Kind:         category.Kind,
			DisplayOrder: category.Position,
		}
	}

	for _, entry := range entries {
		row, ok := rows[entry.CategoryID]
		if !ok || entry.Month < 1 || entry.Month > 12 {
			continue
		}
		row.Months[entry.Month-1].Forecast = row.Months[entry.Month-1].Forecast.Add(entry.Amount)
	}

	s.applyIncomeActuals(report, rows, allocations)
	s.applyExpenseActuals(report, rows, expenses)

	for _, category := range categories {
		row := rows[category.ID]
		for i := range row.Months {
			row.Forecast = row.Forecast.Add(row.Months[i].Forecast)
			row.Actual = row.Actual.Add(row.Months[i].Actual)
		}
		switch category.Kind {
		case domain.KindIncome:
			report.Income = append(report.Income, *row)
			report.IncomeForecast = report.IncomeForecast.Add(row.Forecast)
			report.IncomeActual = report.IncomeActual.Add(row.Actual)
		case domain.KindExpense:
			report.Expense = append(report.Expense, *row)
			report.ExpenseForecast = report.ExpenseForecast.Add(row.Forecast)
			report.ExpenseActual = report.ExpenseActual.Add(row.Actual)
		}
	}
	for _, amount := range report.UncategorizedIncome {
		report.IncomeActual = report.IncomeActual.Add(amount)
	}
	return report, nil
}

// applyIncomeActuals splits every approved payment across its invoice's line
// items proportionally and books each share into the item's budget category
// for the month the payment was received.
func (s *Service) applyIncomeActuals(report *domain.YearReport, rows map[snowflake.ID]*domain.CategoryReport, allocations []domain.PaymentAllocationRow) {
	var (
		current  snowflake.ID
		targets  []domain.AllocationTarget
		amount   decimal.Decimal
		received time.Time
	)

	flush := func() {
		if current == 0 || len(targets) == 0 {
			return
		}
		month := int(received.UTC().Month())
		shares := domain.AllocatePayment(amount, targets)
		for i, target := range targets {
			if target.CategoryID == nil {
				report.UncategorizedIncome[month-1] = report.UncategorizedIncome[month-1].Add(shares[i])
				continue
			}
			row, ok := rows[*target.CategoryID]
			if !ok || row.Kind != domain.KindIncome {
				report.UncategorizedIncome[month-1] = report.UncategorizedIncome[month-1].Add(shares[i])
				continue
			}
			row.Months[month-1].Actual = row.Months[month-1].Actual.Add(shares[i])
		}
	}

	for _, allocation := range allocations {
		if allocation.PaymentID != current {
			flush()
			current = allocation.PaymentID
			amount = allocation.Amount
			received = allocation.ReceivedAt
			targets = targets[:0]
		}
		targets = append(targets, domain.AllocationTarget{
			CategoryID: allocation.CategoryID,
			Total:      allocation.LineTotal,
		})
	}
	flush()
}

func (s *Service) applyExpenseActuals(report *domain.YearReport, rows map[snowflake.ID]*domain.CategoryReport, expenses []domain.ExpenseActualRow) {
	for _, expense := range expenses {
		month := int(expense.PaidAt.UTC().Month())
		if expense.CategoryID == nil {
			report.ExpenseActual = report.ExpenseActual.Add(expense.PaidAmount)
			continue
		}
		row, ok := rows[*expense.CategoryID]
		if !ok || row.Kind != domain.KindExpense {
			report.ExpenseActual = report.ExpenseActual.Add(expense.PaidAmount)
			continue
		}
		row.Months[month-1].Actual = row.Months[month-1].Actual.Add(expense.PaidAmount)
	}
}
