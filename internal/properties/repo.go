package properties

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
)

// Repository handles property persistence for the feed pipeline.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListFeedEligible(ctx context.Context, brokerID *uuid.UUID) ([]models.Property, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a property repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListFeedEligible returns publishable properties with never-published rows
// first, then oldest publication first. Repeated feed pulls under a quota
// therefore rotate through the full inventory instead of pinning the same
// head of the list.
func (r *repository) ListFeedEligible(ctx context.Context, brokerID *uuid.UUID) ([]models.Property, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("feed_enabled = ? AND is_public = ?", true, true)
	if brokerID != nil {
		query = query.Where("broker_id = ?", *brokerID)
	}

	var props []models.Property
	err := query.
		Order("feed_published_at IS NOT NULL, feed_published_at ASC, created_at ASC").
		Find(&props).Error
	if err != nil {
		return nil, err
	}
	return props, nil
}

func (r *repository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"feed_published_at": at,
			"updated_at":        at,
		}).Error
}
