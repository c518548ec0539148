package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/types"
)

type ReferralRepo interface {
	// CreateIfAbsent inserts the entry unless one already exists for its
	// (client_id, resource_id) pair. Returns whether the row was inserted;
	// concurrent callers resolve to exactly one true.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, entry *types.ReferralEntry) (bool, error)
	GetByKey(ctx context.Context, tx *gorm.DB, clientID, resourceID uuid.UUID) (*types.ReferralEntry, error)
	ListByClientID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) ([]*types.ReferralEntry, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ReferralEntry, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, clientID, resourceID uuid.UUID, updates map[string]interface{}) (int64, error)
}

type referralRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReferralRepo(db *gorm.DB, baseLog *logger.Logger) ReferralRepo {
	return &referralRepo{db: db, log: baseLog.With("repo", "ReferralRepo")}
}

func (r *referralRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, entry *types.ReferralEntry) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "resource_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *referralRepo) GetByKey(ctx context.Context, tx *gorm.DB, clientID, resourceID uuid.UUID) (*types.ReferralEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ReferralEntry
	if err := transaction.WithContext(ctx).
		Where("client_id = ? AND resource_id = ?", clientID, resourceID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *referralRepo) ListByClientID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) ([]*types.ReferralEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ReferralEntry
	if err := transaction.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("added_date asc, id asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *referralRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ReferralEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.ReferralEntry
	if err := transaction.WithContext(ctx).
		Order("last_updated desc").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *referralRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ReferralEntry{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *referralRepo) UpdateFields(ctx context.Context, tx *gorm.DB, clientID, resourceID uuid.UUID, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.ReferralEntry{}).
		Where("client_id = ? AND resource_id = ?", clientID, resourceID).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
