package payments

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/events"
	"github.com/caiomonteiro/imovia-backend/pkg/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the payment reconciliation service.
type ServiceParams struct {
	Repo              Repository
	BrokerRepo        brokers.Repository
	TransactionRunner txRunner
	Events            events.Publisher
	Logger            *logger.Logger
}

// Service owns the shared reconciliation path. The sync job and the webhook
// handler both feed gateway payments through Reconcile so the two writers
// stay commutative.
type Service struct {
	repo       Repository
	brokerRepo brokers.Repository
	txRunner   txRunner
	events     events.Publisher
	logg       *logger.Logger
}

// NewService builds a payment service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repo required")
	}
	if params.BrokerRepo == nil {
		return nil, fmt.Errorf("broker repo required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	svc := &Service{
		repo:       params.Repo,
		brokerRepo: params.BrokerRepo,
		txRunner:   params.TransactionRunner,
		events:     params.Events,
		logg:       params.Logger,
	}
	if svc.events == nil {
		svc.events = events.NoopPublisher{}
	}
	return svc, nil
}

// ReconcileResult reports what a single reconciliation pass did.
type ReconcileResult struct {
	Payment           *models.SubscriptionPayment
	EntitlementMoved  bool
	SubscriptionState enums.SubscriptionStatus
}

// Reconcile upserts the gateway payment and applies its entitlement side
// effect to the owning broker inside one transaction. A confirmed payment
// activates the broker and extends the subscription one month past the due
// date; an overdue payment flags the broker overdue. Other statuses only
// update the payment row.
func (s *Service) Reconcile(ctx context.Context, broker *models.Broker, payment asaas.Payment) (*ReconcileResult, error) {
	if broker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "broker is required")
	}

	record, err := BuildSubscriptionPayment(payment, broker.ID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Payment: record, SubscriptionState: broker.SubscriptionStatus}
	nextStatus, expiresAt := entitlementFor(record)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert subscription payment")
		}
		if nextStatus == nil {
			return nil
		}
		if err := s.brokerRepo.WithTx(tx).UpdateEntitlement(ctx, broker.ID, *nextStatus, expiresAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update broker entitlement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if nextStatus != nil {
		result.EntitlementMoved = *nextStatus != broker.SubscriptionStatus
		result.SubscriptionState = *nextStatus

		if result.EntitlementMoved {
			event := events.EntitlementChanged{
				BrokerID:       broker.ID,
				Status:         *nextStatus,
				PreviousStatus: broker.SubscriptionStatus,
				ExpiresAt:      expiresAt,
				Source:         "billing_reconcile",
			}
			if err := s.events.PublishEntitlementChanged(ctx, event); err != nil && s.logg != nil {
				s.logg.Error(ctx, "entitlement event publish failed", err)
			}
		}

		broker.SubscriptionStatus = *nextStatus
		if expiresAt != nil {
			broker.SubscriptionExpiresAt = expiresAt
		}
	}

	return result, nil
}

// List returns a broker's payment history newest first.
func (s *Service) List(ctx context.Context, params ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error) {
	return s.repo.ListByBroker(ctx, params)
}

// entitlementFor derives the broker-level side effect of a payment state.
// The returned status is nil when the payment should not move entitlement.
func entitlementFor(record *models.SubscriptionPayment) (*enums.SubscriptionStatus, *time.Time) {
	switch record.Status {
	case enums.PaymentStatusConfirmed:
		status := enums.SubscriptionStatusActive
		expires := subscriptionExpiry(record)
		return &status, expires
	case enums.PaymentStatusOverdue:
		status := enums.SubscriptionStatusOverdue
		return &status, nil
	default:
		return nil, nil
	}
}

// subscriptionExpiry anchors the paid-through date on the invoice due date,
// falling back to the settlement date when the gateway omitted one.
func subscriptionExpiry(record *models.SubscriptionPayment) *time.Time {
	anchor := record.DueDate
	if anchor == nil {
		anchor = record.PaidAt
	}
	if anchor == nil {
		return nil
	}
	expires := anchor.AddDate(0, 1, 0)
	return &expires
}
