package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	"github.com/caiomonteiro/imovia-backend/pkg/pagination"
)

// Repository handles subscription payment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, payment *models.SubscriptionPayment) error
	FindByAsaasID(ctx context.Context, asaasPaymentID string) (*models.SubscriptionPayment, error)
	ListByBroker(ctx context.Context, params ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// ListPaymentsQuery configures broker payment list queries.
type ListPaymentsQuery struct {
	BrokerID uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
	Status   *enums.PaymentStatus
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert inserts the payment or, when the gateway payment id already exists,
// overwrites the mutable columns with the incoming values. Both the sync job
// and the webhook path funnel through here, so redeliveries collapse into a
// single row.
func (r *repository) Upsert(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "asaas_payment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"amount",
				"status",
				"payment_method",
				"due_date",
				"paid_at",
				"invoice_url",
				"metadata",
				"updated_at",
			}),
		}).
		Create(payment).Error
}

func (r *repository) FindByAsaasID(ctx context.Context, asaasPaymentID string) (*models.SubscriptionPayment, error) {
	if asaasPaymentID == "" {
		return nil, nil
	}
	var payment models.SubscriptionPayment
	if err := r.db.WithContext(ctx).
		Where("asaas_payment_id = ?", asaasPaymentID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListByBroker(ctx context.Context, params ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("broker_id = ?", params.BrokerID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.Timestamp, params.Cursor.ID)
	}

	var payments []models.SubscriptionPayment
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&payments).Error; err != nil {
		return nil, nil, err
	}

	if len(payments) > limit {
		next := payments[limit]
		payments = payments[:limit]
		return payments, &pagination.Cursor{
			Timestamp: next.CreatedAt,
			ID:        next.ID,
		}, nil
	}

	return payments, nil, nil
}
