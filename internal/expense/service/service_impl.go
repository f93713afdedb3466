package service

import (
	"context"
	"strings"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("expense.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, cmd domain.CreateExpenseCommand) (*domain.Expense, error) {
	if cmd.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	incurredAt := cmd.IncurredAt
	if incurredAt.IsZero() {
		incurredAt = now
	}

	expense := &domain.Expense{
		ID:            s.genID.Generate(),
		TenantID:      cmd.TenantID,
		CategoryID:    cmd.CategoryID,
		VendorName:    strings.TrimSpace(cmd.VendorName),
		InvoiceAmount: cmd.Amount.Round(2),
		Status:        domain.StatusPending,
		Description:   cmd.Description,
		IncurredAt:    incurredAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]domain.Expense, error) {
	return s.repo.List(ctx, s.db, tenantID)
}

func (s *Service) Settle(ctx context.Context, cmd domain.SettleExpenseCommand) (*domain.Expense, error) {
	status := cmd.Status
	if status == "" {
		status = domain.StatusPaid
	}
	if status != domain.StatusPartial && status != domain.StatusPaid {
		return nil, domain.ErrInvalidStatus
	}

	var updated *domain.Expense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		expense, err := s.repo.Find(ctx, tx, cmd.TenantID, cmd.ExpenseID)
		if err != nil {
			return err
		}
		if expense.Status == domain.StatusPaid {
			return domain.ErrAlreadyPaid
		}

		paidAmount := cmd.PaidAmount.Round(2)
		if status == domain.StatusPaid {
			paidAmount = expense.InvoiceAmount
		}
		if err := domain.ValidateSettlement(status, paidAmount, expense.InvoiceAmount); err != nil {
			return err
		}

		paidAt := cmd.PaidAt
		if paidAt.IsZero() {
			paidAt = time.Now().UTC()
		}
		expense.Status = status
		expense.PaidAmount = paidAmount
		expense.PaidAt = &paidAt
		expense.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, expense); err != nil {
			return err
		}
		updated = expense
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Categorize(ctx context.Context, tenantID, id snowflake.ID, categoryID *snowflake.ID) (*domain.Expense, error) {
	var updated *domain.Expense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		expense, err := s.repo.Find(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		expense.CategoryID = categoryID
		expense.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, expense); err != nil {
			return err
		}
		updated = expense
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Sync imports bank-feed transactions as paid expenses. A transaction seen
// before, matched on external ref, is left untouched so re-running a feed
// never duplicates costs.
func (s *Service) Sync(ctx context.Context, tenantID snowflake.ID, items []domain.SyncItem) (int, error) {
	if tenantID == 0 {
		return 0, domain.ErrInvalidTenant
	}

	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, item := range items {
			ref := strings.TrimSpace(item.ExternalRef)
			if ref == "" || !item.Amount.IsPositive() {
				continue
			}
			existing, err := s.repo.FindByExternalRef(ctx, tx, tenantID, ref)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			paidAt := item.PaidAt
			if paidAt.IsZero() {
				paidAt = now
			}
			expense := &domain.Expense{
				ID:            s.genID.Generate(),
				TenantID:      tenantID,
				VendorName:    strings.TrimSpace(item.VendorName),
				InvoiceAmount: item.Amount.Round(2),
				PaidAmount:    item.Amount.Round(2),
				Status:        domain.StatusPaid,
				Description:   item.Description,
				ExternalRef:   &ref,
				IncurredAt:    paidAt,
				PaidAt:        &paidAt,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.repo.Insert(ctx, tx, expense); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		s.log.Info("bank feed synced",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("created", created),
		)
	}
	return created, nil
}
