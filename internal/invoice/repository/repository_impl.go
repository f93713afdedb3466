package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, conn *gorm.DB, tenantID, id snowflake.ID, includeTombstoned bool) (*domain.Invoice, error) {
	var invoice domain.Invoice
	stmt := conn.WithContext(ctx).
		Preload("LineItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Where("tenant_id = ? AND id = ?", tenantID, id)
	if !includeTombstoned {
		stmt = stmt.Where("tombstoned = ?", false)
	}
	if err := stmt.First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	stmt := db.LockForUpdate(conn.WithContext(ctx)).
		Where("tenant_id = ? AND id = ? AND tombstoned = ?", tenantID, id, false)
	if err := stmt.First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, tenantID snowflake.ID, includeTombstoned bool) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	stmt := conn.WithContext(ctx).
		Preload("LineItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Where("tenant_id = ?", tenantID)
	if !includeTombstoned {
		stmt = stmt.Where("tombstoned = ?", false)
	}
	if err := stmt.Order("created_at desc, id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	err := conn.WithContext(ctx).Create(invoice).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateNumber
	}
	return err
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	invoice.UpdatedAt = time.Now().UTC()
	return conn.WithContext(ctx).
		Omit("LineItems").
		Where("tenant_id = ?", invoice.TenantID).
		Save(invoice).Error
}

func (r *repo) ReplaceLineItems(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice, items []domain.LineItem) error {
	if err := conn.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", invoice.TenantID, invoice.ID).
		Delete(&domain.LineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		invoice.LineItems = nil
		return nil
	}
	if err := conn.WithContext(ctx).Create(&items).Error; err != nil {
		return err
	}
	invoice.LineItems = items
	return nil
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, tenantID, id snowflake.ID) error {
	if err := conn.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, id).
		Delete(&domain.LineItem{}).Error; err != nil {
		return err
	}
	return conn.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.Invoice{}).Error
}

func (r *repo) MaxSequence(ctx context.Context, conn *gorm.DB, tenantID, unitID snowflake.ID, prefix string) (int, error) {
	var numbers []string
	err := conn.WithContext(ctx).Model(&domain.Invoice{}).
		Where("tenant_id = ? AND unit_id = ?", tenantID, unitID).
		Where("number LIKE ?", prefix+"%").
		Pluck("number", &numbers).Error
	if err != nil {
		return 0, err
	}

	max := 0
	for _, number := range numbers {
		seq, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

func (r *repo) InsertSchedule(ctx context.Context, conn *gorm.DB, schedule *domain.Schedule) error {
	return conn.WithContext(ctx).Create(schedule).Error
}

func (r *repo) UpdateSchedule(ctx context.Context, conn *gorm.DB, schedule *domain.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	return conn.WithContext(ctx).
		Where("tenant_id = ?", schedule.TenantID).
		Save(schedule).Error
}

func (r *repo) DueSchedules(ctx context.Context, conn *gorm.DB, now time.Time) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	err := conn.WithContext(ctx).
		Where("active = ? AND next_due_date <= ?", true, now).
		Order("next_due_date asc").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}
