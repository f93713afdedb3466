package repository

import (
	"context"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListByYear(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year int) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND year = ?", tenantID, year).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
