package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/config"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const numberRetries = 3

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Policy *config.BillingPolicyHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	policy *config.BillingPolicyHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("invoice.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		policy: p.Policy,
	}
}

func (s *Service) Create(ctx context.Context, cmd domain.CreateInvoiceCommand) (*domain.Invoice, error) {
	if cmd.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if err := validateFrequency(cmd.Frequency); err != nil {
		return nil, err
	}
	if len(cmd.LineItems) == 0 {
		return nil, domain.ErrInvalidLineItem
	}

	now := time.Now().UTC()
	startDate := cmd.StartDate
	if startDate.IsZero() {
		startDate = now
	}

	items, totals, err := s.buildLineItems(cmd.TenantID, cmd.LineItems, cmd.TaxRate, now)
	if err != nil {
		return nil, err
	}

	policy := s.policy.Get()
	invoice := &domain.Invoice{
		ID:              s.genID.Generate(),
		TenantID:        cmd.TenantID,
		UnitID:          cmd.UnitID,
		ParentInvoiceID: cmd.ParentInvoiceID,
		Frequency:       cmd.Frequency,
		StartDate:       startDate,
		DuePolicy:       cmd.DuePolicy,
		DueDate:         domain.DueDateFor(cmd.DuePolicy, startDate, policy.DueTerms, policy.DueTerms["net_30"]),
		TaxRate:         cmd.TaxRate.Round(2),
		Subtotal:        totals.Subtotal,
		TaxAmount:       totals.TaxAmount,
		Total:           totals.Total,
		TotalPaid:       decimal.Zero,
		Status:          domain.InvoiceStatusDraft,
		EarlyDiscount:   percentOf(totals.Total, policy.EarlyDiscountRate),
		LateFee:         percentOf(totals.Total, policy.LateFeePercent),
		Notes:           cmd.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.insertNumbered(ctx, tx, invoice, cmd.UnitTitle, policy); err != nil {
			return err
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return err
		}
		invoice.LineItems = items

		if cmd.Frequency != domain.FrequencyOneTime {
			schedule := &domain.Schedule{
				ID:              s.genID.Generate(),
				TenantID:        cmd.TenantID,
				InvoiceID:       invoice.ID,
				NextDueDate:     domain.NextDueDate(cmd.Frequency, startDate),
				RemainingCycles: cmd.RemainingCycles,
				Active:          domain.HasRemainingCycles(cmd.RemainingCycles),
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.repo.InsertSchedule(ctx, tx, schedule); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("tenant_id", invoice.TenantID.String()),
	)
	return invoice, nil
}

// insertNumbered assigns the next sequence for the unit and period and inserts
// the invoice. A concurrent creation for the same unit can take the same
// sequence first; the unique constraint on (tenant_id, number) surfaces that
// and numbering is retried instead of violating uniqueness.
func (s *Service) insertNumbered(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, unitTitle string, policy config.BillingPolicy) error {
	prefix := numberPrefix(unitTitle, invoice.StartDate, policy.NumberSeparator)

	var lastErr error
	for attempt := 0; attempt < numberRetries; attempt++ {
		seq, err := s.repo.MaxSequence(ctx, tx, invoice.TenantID, invoice.UnitID, prefix)
		if err != nil {
			return err
		}
		invoice.Number = fmt.Sprintf("%s%0*d", prefix, policy.NumberSequencePad, seq+1+attempt)

		lastErr = s.repo.Insert(ctx, tx, invoice)
		if lastErr == nil {
			return nil
		}
		if lastErr != domain.ErrDuplicateNumber {
			return lastErr
		}
	}
	return lastErr
}

func percentOf(total decimal.Decimal, rate float64) decimal.Decimal {
	if rate <= 0 {
		return decimal.Zero
	}
	return total.Mul(decimal.NewFromFloat(rate)).Div(decimal.NewFromInt(100)).Round(2)
}

func numberPrefix(unitTitle string, start time.Time, separator string) string {
	title := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(unitTitle), " ", ""))
	if title == "" {
		title = "UNIT"
	}
	return fmt.Sprintf("%s%s%04d%s%02d%s",
		title, separator, start.Year(), separator, int(start.Month()), separator)
}

func (s *Service) buildLineItems(tenantID snowflake.ID, inputs []domain.LineItemInput, taxRate decimal.Decimal, now time.Time) ([]domain.LineItem, domain.Totals, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	for i, input := range inputs {
		if strings.TrimSpace(input.Name) == "" {
			return nil, domain.Totals{}, domain.ErrInvalidLineItem
		}
		total, err := domain.LineTotal(input.UnitCost, input.Quantity)
		if err != nil {
			return nil, domain.Totals{}, err
		}
		items = append(items, domain.LineItem{
			ID:         s.genID.Generate(),
			TenantID:   tenantID,
			CategoryID: input.CategoryID,
			Position:   i,
			Name:       strings.TrimSpace(input.Name),
			UnitCost:   input.UnitCost.Round(2),
			Quantity:   input.Quantity,
			Total:      total,
			CreatedAt:  now,
		})
	}

	totals, err := domain.ComputeTotals(items, taxRate)
	if err != nil {
		return nil, domain.Totals{}, err
	}
	return items, totals, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	return s.repo.Find(ctx, s.db, tenantID, id, false)
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, includeTombstoned bool) ([]domain.Invoice, error) {
	return s.repo.List(ctx, s.db, tenantID, includeTombstoned)
}

func (s *Service) UpdateLineItems(ctx context.Context, cmd domain.UpdateLineItemsCommand) (*domain.Invoice, error) {
	if len(cmd.LineItems) == 0 {
		return nil, domain.ErrInvalidLineItem
	}

	var updated *domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, cmd.TenantID, cmd.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Locked() {
			return domain.ErrInvoiceLocked
		}

		items, totals, err := s.buildLineItems(cmd.TenantID, cmd.LineItems, cmd.TaxRate, time.Now().UTC())
		if err != nil {
			return err
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := s.repo.ReplaceLineItems(ctx, tx, invoice, items); err != nil {
			return err
		}

		policy := s.policy.Get()
		invoice.TaxRate = cmd.TaxRate.Round(2)
		invoice.Subtotal = totals.Subtotal
		invoice.TaxAmount = totals.TaxAmount
		invoice.Total = totals.Total
		invoice.EarlyDiscount = percentOf(totals.Total, policy.EarlyDiscountRate)
		invoice.LateFee = percentOf(totals.Total, policy.LateFeePercent)
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) MarkSent(ctx context.Context, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	var updated *domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if invoice.Status != domain.InvoiceStatusDraft {
			return domain.ErrNotDraft
		}
		now := time.Now().UTC()
		invoice.Status = domain.InvoiceStatusSent
		invoice.SentAt = &now
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	var updated *domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if invoice.Status == domain.InvoiceStatusPaid || invoice.Status == domain.InvoiceStatusPartial {
			return domain.ErrInvoiceLocked
		}
		invoice.Status = domain.InvoiceStatusCancelled
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id snowflake.ID, force bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.Find(ctx, tx, tenantID, id, true)
		if err != nil {
			return err
		}

		if force {
			if !invoice.Tombstoned {
				return domain.ErrNotTombstoned
			}
			return s.repo.Delete(ctx, tx, tenantID, id)
		}

		if invoice.Locked() {
			return domain.ErrDeleteSentOrPaid
		}
		invoice.Tombstoned = true
		return s.repo.Update(ctx, tx, invoice)
	})
}

func (s *Service) Restore(ctx context.Context, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	var restored *domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.Find(ctx, tx, tenantID, id, true)
		if err != nil {
			return err
		}
		if !invoice.Tombstoned {
			return domain.ErrNotTombstoned
		}
		invoice.Tombstoned = false
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		restored = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// RecomputeFromPayments derives total_paid and status fresh from the full
// payment set. Only approved payments count toward the paid total; pending
// and in-review payments park an active invoice in in_review, and a latest
// rejected payment parks it in payment_rejected.
func (s *Service) RecomputeFromPayments(ctx context.Context, tx *gorm.DB, tenantID, invoiceID snowflake.ID) (*domain.Invoice, error) {
	invoice, err := s.repo.Find(ctx, tx, tenantID, invoiceID, true)
	if err != nil {
		return nil, err
	}

	var totalPaid decimal.NullDecimal
	err = tx.WithContext(ctx).Raw(
		`SELECT SUM(amount)
		 FROM payments
		 WHERE tenant_id = ? AND invoice_id = ? AND review_status = 'approved'`,
		tenantID,
		invoiceID,
	).Scan(&totalPaid).Error
	if err != nil {
		return nil, err
	}

	paid := decimal.Zero
	if totalPaid.Valid {
		paid = totalPaid.Decimal
	}

	var open int64
	err = tx.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM payments
		 WHERE tenant_id = ? AND invoice_id = ? AND review_status IN ('pending', 'in_review')`,
		tenantID,
		invoiceID,
	).Scan(&open).Error
	if err != nil {
		return nil, err
	}

	var latest string
	err = tx.WithContext(ctx).Raw(
		`SELECT review_status
		 FROM payments
		 WHERE tenant_id = ? AND invoice_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		tenantID,
		invoiceID,
	).Scan(&latest).Error
	if err != nil {
		return nil, err
	}

	review := domain.PaymentReview{
		AwaitingReview: open > 0,
		LatestRejected: latest == "rejected",
	}

	invoice.TotalPaid = paid.Round(2)
	invoice.Status = domain.StatusFromPayments(invoice.Status, invoice.Total, invoice.TotalPaid, review)
	if err := s.repo.Update(ctx, tx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// RunSchedules generates the next cycle's invoice for every due active
// schedule. Each schedule is handled in its own transaction so one failure
// does not roll back the rest of the run.
func (s *Service) RunSchedules(ctx context.Context, now time.Time) (int, error) {
	schedules, err := s.repo.DueSchedules(ctx, s.db, now)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, schedule := range schedules {
		if !domain.HasRemainingCycles(schedule.RemainingCycles) {
			continue
		}
		if err := s.generateForSchedule(ctx, schedule, now); err != nil {
			s.log.Error("schedule generation failed",
				zap.String("schedule_id", schedule.ID.String()),
				zap.Error(err),
			)
			continue
		}
		generated++
	}
	return generated, nil
}

func (s *Service) generateForSchedule(ctx context.Context, schedule domain.Schedule, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		source, err := s.repo.Find(ctx, tx, schedule.TenantID, schedule.InvoiceID, false)
		if err != nil {
			return err
		}

		policy := s.policy.Get()
		clone := &domain.Invoice{
			ID:              s.genID.Generate(),
			TenantID:        source.TenantID,
			UnitID:          source.UnitID,
			ParentInvoiceID: &source.ID,
			Frequency:       source.Frequency,
			StartDate:       schedule.NextDueDate,
			DuePolicy:       source.DuePolicy,
			DueDate:         domain.DueDateFor(source.DuePolicy, schedule.NextDueDate, policy.DueTerms, policy.DueTerms["net_30"]),
			TaxRate:         source.TaxRate,
			Subtotal:        source.Subtotal,
			TaxAmount:       source.TaxAmount,
			Total:           source.Total,
			TotalPaid:       decimal.Zero,
			Status:          domain.InvoiceStatusSent,
			SentAt:          &now,
			Notes:           source.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		unitTitle := unitTitleFromNumber(source.Number, policy.NumberSeparator)
		if err := s.insertNumbered(ctx, tx, clone, unitTitle, policy); err != nil {
			return err
		}

		items := make([]domain.LineItem, 0, len(source.LineItems))
		for i, item := range source.LineItems {
			items = append(items, domain.LineItem{
				ID:         s.genID.Generate(),
				TenantID:   clone.TenantID,
				InvoiceID:  clone.ID,
				CategoryID: item.CategoryID,
				Position:   i,
				Name:       item.Name,
				UnitCost:   item.UnitCost,
				Quantity:   item.Quantity,
				Total:      item.Total,
				CreatedAt:  now,
			})
		}
		if len(items) > 0 {
			if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
				return err
			}
		}

		schedule.LastGeneratedAt = &now
		schedule.NextDueDate = domain.NextDueDate(source.Frequency, schedule.NextDueDate)
		remaining, active := domain.DecrementCycles(schedule.RemainingCycles)
		schedule.RemainingCycles = remaining
		schedule.Active = active
		return s.repo.UpdateSchedule(ctx, tx, &schedule)
	})
}

// unitTitleFromNumber recovers the unit prefix from an existing number of the
// form TITLE-YYYY-MM-NNN.
func unitTitleFromNumber(number, separator string) string {
	parts := strings.Split(number, separator)
	if len(parts) <= 3 {
		return number
	}
	return strings.Join(parts[:len(parts)-3], separator)
}

func validateFrequency(frequency domain.Frequency) error {
	switch frequency {
	case domain.FrequencyOneTime, domain.FrequencyWeekly, domain.FrequencyMonthly,
		domain.FrequencyQuarterly, domain.FrequencyYearly:
		return nil
	default:
		return domain.ErrInvalidFrequency
	}
}
