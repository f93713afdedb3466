package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/budget/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindCategory(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Category, error) {
	var category domain.Category
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.Category, error) {
	var categories []domain.Category
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("kind ASC, position ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) UpdateCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Save(category).Error
}

func (r *repo) DeleteCategory(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	res := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.Category{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *repo) FindEntry(ctx context.Context, db *gorm.DB, tenantID, categoryID snowflake.ID, year, month int) (*domain.Entry, error) {
	var entry domain.Entry
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND category_id = ? AND year = ? AND month = ?",
			tenantID, categoryID, year, month).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND year = ?", tenantID, year).
		Order("category_id ASC, month ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) UpsertEntry(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"}, {Name: "category_id"}, {Name: "year"}, {Name: "month"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(entry).Error
}

func (r *repo) PaymentAllocations(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]domain.PaymentAllocationRow, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var rows []domain.PaymentAllocationRow
	err := db.WithContext(ctx).Raw(
		`SELECT p.id AS payment_id, p.amount, p.received_at,
			li.category_id, li.total AS line_total, li.position
		 FROM payments p
		 JOIN invoice_line_items li ON li.invoice_id = p.invoice_id
		 WHERE p.tenant_id = ?
		   AND p.review_status = 'approved'
		   AND p.received_at >= ? AND p.received_at < ?
		 ORDER BY p.id, li.position`,
		tenantID,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ExpenseActuals(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]domain.ExpenseActualRow, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var rows []domain.ExpenseActualRow
	err := db.WithContext(ctx).Raw(
		`SELECT category_id, paid_amount, paid_at
		 FROM expenses
		 WHERE tenant_id = ?
		   AND status IN ('paid', 'partial')
		   AND paid_at IS NOT NULL
		   AND paid_at >= ? AND paid_at < ?`,
		tenantID,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
