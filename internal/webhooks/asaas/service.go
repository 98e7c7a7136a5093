package asaaswebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/payments"
	"github.com/caiomonteiro/imovia-backend/pkg/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/metrics"
	"github.com/caiomonteiro/imovia-backend/pkg/pagination"
)

// Event is the gateway's webhook envelope. Every payment event carries the
// full payment resource, so processing never has to call back to Asaas.
type Event struct {
	Event   string        `json:"event"`
	Payment asaas.Payment `json:"payment"`
}

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	Repo       Repository
	BrokerRepo brokers.Repository
	Payments   *payments.Service
	Metrics    *metrics.WebhookMetrics
	Logger     *logger.Logger
}

// Service ingests gateway callbacks. Every delivery is persisted before any
// side effect runs, so a crash mid-processing leaves an unprocessed row that
// an operator can replay instead of a lost event.
type Service struct {
	repo       Repository
	brokerRepo brokers.Repository
	payments   *payments.Service
	metrics    *metrics.WebhookMetrics
	logg       *logger.Logger
}

// NewService builds a webhook service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook repo required")
	}
	if params.BrokerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "broker repo required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	return &Service{
		repo:       params.Repo,
		brokerRepo: params.BrokerRepo,
		payments:   params.Payments,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// HandleEvent stores the delivery and then reconciles it. The returned
// webhook row is always persisted; the error only reflects the processing
// half, which the caller may treat as non-fatal because the row can be
// replayed later.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (*models.AsaasWebhook, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asaas event required")
	}
	eventName := strings.TrimSpace(event.Event)
	if eventName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name is required")
	}
	if strings.TrimSpace(event.Payment.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	payload, err := json.Marshal(event.Payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal webhook payment")
	}

	webhook := &models.AsaasWebhook{
		ID:      uuid.New(),
		Event:   eventName,
		Payment: payload,
	}
	if err := s.repo.Insert(ctx, webhook); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist webhook")
	}
	if s.metrics != nil {
		s.metrics.IncReceived(eventName)
	}

	if err := s.process(ctx, webhook, event.Payment); err != nil {
		if s.metrics != nil {
			s.metrics.IncFailed(eventName)
		}
		return webhook, err
	}
	return webhook, nil
}

// Retry reprocesses a stored delivery by id. Used by the admin surface to
// drain webhooks that failed on first delivery.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (*models.AsaasWebhook, error) {
	webhook, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load webhook")
	}
	if webhook == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "webhook not found")
	}

	var payment asaas.Payment
	if err := json.Unmarshal(webhook.Payment, &payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored payment")
	}

	if err := s.process(ctx, webhook, payment); err != nil {
		if s.metrics != nil {
			s.metrics.IncFailed(webhook.Event)
		}
		return webhook, err
	}
	return webhook, nil
}

// List returns stored deliveries newest first.
func (s *Service) List(ctx context.Context, params ListWebhooksQuery) ([]models.AsaasWebhook, *pagination.Cursor, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) process(ctx context.Context, webhook *models.AsaasWebhook, payment asaas.Payment) error {
	err := s.reconcile(ctx, payment)
	if err != nil {
		message := err.Error()
		webhook.Error = &message
		webhook.Processed = false
		webhook.ProcessedAt = nil
	} else {
		now := time.Now().UTC()
		webhook.Processed = true
		webhook.ProcessedAt = &now
		webhook.Error = nil
	}
	if updateErr := s.repo.Update(ctx, webhook); updateErr != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "mark webhook state", updateErr)
		}
		if err == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, updateErr, "mark webhook processed")
		}
	}
	return err
}

func (s *Service) reconcile(ctx context.Context, payment asaas.Payment) error {
	customerID := strings.TrimSpace(payment.Customer)
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment customer is missing")
	}

	broker, err := s.brokerRepo.FindByAsaasCustomerID(ctx, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up broker")
	}
	if broker == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no broker for asaas customer").
			WithDetails(map[string]any{"customer": customerID})
	}

	_, err = s.payments.Reconcile(ctx, broker, payment)
	return err
}
