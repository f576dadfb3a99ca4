package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nurpe/lab-review/internal/model"
)

// AuditRepository journals review decisions.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, record model.DecisionRecord) error {
	return r.db.WithContext(ctx).Create(&record).Error
}

// ListByContract returns the journal of a contract, newest first.
func (r *AuditRepository) ListByContract(ctx context.Context, contractID model.ID, limit int) ([]model.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []model.DecisionRecord
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", int64(contractID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
