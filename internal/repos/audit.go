package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type AuditRepo interface {
	Record(ctx context.Context, tx *gorm.DB, entries []*types.AccountingAudit) error
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.AccountingAudit, error)
	ListByRecord(ctx context.Context, tx *gorm.DB, tableName string, recordID uuid.UUID) ([]types.AccountingAudit, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return &auditRepo{
		db:  db,
		log: baseLog.With("repo", "AuditRepo"),
	}
}

func (r *auditRepo) Record(ctx context.Context, tx *gorm.DB, entries []*types.AccountingAudit) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
	return transaction.WithContext(ctx).Create(&entries).Error
}

func (r *auditRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.AccountingAudit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []types.AccountingAudit
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *auditRepo) ListByRecord(ctx context.Context, tx *gorm.DB, tableName string, recordID uuid.UUID) ([]types.AccountingAudit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.AccountingAudit
	if err := transaction.WithContext(ctx).
		Where("table_name = ? AND record_id = ?", tableName, recordID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
