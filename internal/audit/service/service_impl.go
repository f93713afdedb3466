package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	auditdomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/audit/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/pkg/tenantctx"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Log(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	if entry.TenantID == 0 {
		return auditdomain.ErrInvalidTenant
	}

	actor := strings.TrimSpace(entry.Actor)
	if actor == "" {
		actor = tenantctx.Actor(ctx)
	}
	if actor == "" {
		actor = "system"
	}

	entityType := strings.TrimSpace(entry.EntityType)
	if entityType == "" {
		entityType = "unknown"
	}

	record := auditdomain.AuditLog{
		ID:          s.genID.Generate(),
		TenantID:    entry.TenantID,
		Year:        entry.Year,
		Actor:       actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entry.EntityID,
		Before:      snapshot(entry.Before),
		After:       snapshot(entry.After),
		Description: strings.TrimSpace(entry.Description),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, tx, &record); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) ListByYear(ctx context.Context, tenantID snowflake.ID, year int) ([]auditdomain.AuditLog, error) {
	if tenantID == 0 {
		return nil, auditdomain.ErrInvalidTenant
	}
	return s.repo.ListByYear(ctx, s.db, tenantID, year)
}

func snapshot(value any) datatypes.JSON {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
