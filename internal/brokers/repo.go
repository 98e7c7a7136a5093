package brokers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
)

// Repository handles broker and billing plan persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Broker, error)
	FindByAsaasCustomerID(ctx context.Context, customerID string) (*models.Broker, error)
	ListForBillingSync(ctx context.Context, limit, offset int) ([]models.Broker, error)
	UpdateEntitlement(ctx context.Context, brokerID uuid.UUID, status enums.SubscriptionStatus, expiresAt *time.Time) error
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.BillingPlan, error)
	FindDefaultPlan(ctx context.Context) (*models.BillingPlan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a broker repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Broker, error) {
	var broker models.Broker
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&broker).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &broker, nil
}

func (r *repository) FindByAsaasCustomerID(ctx context.Context, customerID string) (*models.Broker, error) {
	if customerID == "" {
		return nil, nil
	}
	var broker models.Broker
	if err := r.db.WithContext(ctx).
		Where("asaas_customer_id = ?", customerID).
		First(&broker).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &broker, nil
}

// ListForBillingSync pages through brokers that have a gateway customer and
// have not been cancelled. Ordering by id keeps pages stable while the job
// walks the full tenant set.
func (r *repository) ListForBillingSync(ctx context.Context, limit, offset int) ([]models.Broker, error) {
	if limit <= 0 {
		limit = 200
	}
	var brokers []models.Broker
	err := r.db.WithContext(ctx).
		Where("asaas_customer_id IS NOT NULL AND asaas_customer_id <> ''").
		Where("subscription_status <> ?", enums.SubscriptionStatusCancelled).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&brokers).Error
	if err != nil {
		return nil, err
	}
	return brokers, nil
}

func (r *repository) UpdateEntitlement(ctx context.Context, brokerID uuid.UUID, status enums.SubscriptionStatus, expiresAt *time.Time) error {
	updates := map[string]any{
		"subscription_status": status,
		"updated_at":          time.Now().UTC(),
	}
	if expiresAt != nil {
		updates["subscription_expires_at"] = *expiresAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Broker{}).
		Where("id = ?", brokerID).
		Updates(updates).Error
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindDefaultPlan(ctx context.Context) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("updated_at DESC").
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}
