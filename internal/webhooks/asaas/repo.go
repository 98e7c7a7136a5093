package asaaswebhook

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/pagination"
)

// Repository handles the asaas_webhooks audit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, webhook *models.AsaasWebhook) error
	Update(ctx context.Context, webhook *models.AsaasWebhook) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AsaasWebhook, error)
	List(ctx context.Context, params ListWebhooksQuery) ([]models.AsaasWebhook, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// ListWebhooksQuery configures webhook list queries.
type ListWebhooksQuery struct {
	Processed *bool
	Event     *string
	Limit     int
	Cursor    *pagination.Cursor
}

// NewRepository returns a webhook repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, webhook *models.AsaasWebhook) error {
	return r.db.WithContext(ctx).Create(webhook).Error
}

func (r *repository) Update(ctx context.Context, webhook *models.AsaasWebhook) error {
	return r.db.WithContext(ctx).Save(webhook).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AsaasWebhook, error) {
	var webhook models.AsaasWebhook
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&webhook).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &webhook, nil
}

func (r *repository) List(ctx context.Context, params ListWebhooksQuery) ([]models.AsaasWebhook, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.AsaasWebhook{})
	if params.Processed != nil {
		query = query.Where("processed = ?", *params.Processed)
	}
	if params.Event != nil {
		query = query.Where("event = ?", *params.Event)
	}
	if params.Cursor != nil {
		query = query.Where("(received_at, id) < (?, ?)", params.Cursor.Timestamp, params.Cursor.ID)
	}

	var webhooks []models.AsaasWebhook
	if err := query.Order("received_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&webhooks).Error; err != nil {
		return nil, nil, err
	}

	if len(webhooks) > limit {
		next := webhooks[limit]
		webhooks = webhooks[:limit]
		return webhooks, &pagination.Cursor{
			Timestamp: next.ReceivedAt,
			ID:        next.ID,
		}, nil
	}

	return webhooks, nil, nil
}
