package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/types"
)

type WorkOrderRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, record *types.WorkOrderRecord) error
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.WorkOrderRecord, error)
}

type workOrderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkOrderRepo(db *gorm.DB, baseLog *logger.Logger) WorkOrderRepo {
	repoLog := baseLog.With("repo", "WorkOrderRepo")
	return &workOrderRepo{db: db, log: repoLog}
}

func (r *workOrderRepo) Upsert(ctx context.Context, tx *gorm.DB, record *types.WorkOrderRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "issue_id"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

func (r *workOrderRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.WorkOrderRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.WorkOrderRecord
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
