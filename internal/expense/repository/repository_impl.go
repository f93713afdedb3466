package repository

import (
	"context"
	"errors"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/expense/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Expense, error) {
	var expense domain.Expense
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &expense, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.Expense, error) {
	var expenses []domain.Expense
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("incurred_at DESC, id DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Save(expense).Error
}

func (r *repo) FindByExternalRef(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ref string) (*domain.Expense, error) {
	var expense domain.Expense
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND external_ref = ?", tenantID, ref).
		First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}
