package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/payments"
	"github.com/caiomonteiro/imovia-backend/pkg/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
)

type gatewayClient interface {
	ListPayments(ctx context.Context, customerID string, limit int) ([]asaas.Payment, error)
}

// PaymentSyncJobParams configure the billing sync job.
type PaymentSyncJobParams struct {
	BrokerRepo   brokers.Repository
	Payments     *payments.Service
	Gateway      gatewayClient
	Logger       *logger.Logger
	PageSize     int
	PaymentLimit int
}

// PaymentSyncJob sweeps every billable broker, pulls their recent gateway
// payments, and reconciles each one. A failing broker is logged and skipped
// so one bad tenant cannot stall the rest of the sweep.
type PaymentSyncJob struct {
	brokerRepo   brokers.Repository
	payments     *payments.Service
	gateway      gatewayClient
	logg         *logger.Logger
	pageSize     int
	paymentLimit int
}

// NewPaymentSyncJob builds the billing sync job.
func NewPaymentSyncJob(params PaymentSyncJobParams) (*PaymentSyncJob, error) {
	if params.BrokerRepo == nil {
		return nil, fmt.Errorf("broker repo required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	paymentLimit := params.PaymentLimit
	if paymentLimit <= 0 {
		paymentLimit = 20
	}
	return &PaymentSyncJob{
		brokerRepo:   params.BrokerRepo,
		payments:     params.Payments,
		gateway:      params.Gateway,
		logg:         params.Logger,
		pageSize:     pageSize,
		paymentLimit: paymentLimit,
	}, nil
}

// Name implements Job.
func (j *PaymentSyncJob) Name() string {
	return "asaas_payment_sync"
}

// Run implements Job.
func (j *PaymentSyncJob) Run(ctx context.Context) error {
	var swept, failed int
	var errs error

	for offset := 0; ; offset += j.pageSize {
		page, err := j.brokerRepo.ListForBillingSync(ctx, j.pageSize, offset)
		if err != nil {
			return fmt.Errorf("list brokers: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			broker := &page[i]
			swept++
			if err := j.syncBroker(ctx, broker); err != nil {
				failed++
				errs = multierr.Append(errs, fmt.Errorf("broker %s: %w", broker.ID, err))
				brokerCtx := j.logg.WithBrokerID(ctx, broker.ID.String())
				j.logg.Error(brokerCtx, "broker billing sync failed", err)
			}
		}

		if len(page) < j.pageSize {
			break
		}
	}

	summaryCtx := j.logg.WithFields(ctx, map[string]any{
		"brokers_swept":  swept,
		"brokers_failed": failed,
	})
	j.logg.Info(summaryCtx, "billing sync sweep finished")
	return errs
}

func (j *PaymentSyncJob) syncBroker(ctx context.Context, broker *models.Broker) error {
	if broker.AsaasCustomerID == nil || *broker.AsaasCustomerID == "" {
		return nil
	}

	gatewayPayments, err := j.gateway.ListPayments(ctx, *broker.AsaasCustomerID, j.paymentLimit)
	if err != nil {
		return fmt.Errorf("list gateway payments: %w", err)
	}

	var errs error
	for _, payment := range gatewayPayments {
		if _, err := j.payments.Reconcile(ctx, broker, payment); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %s: %w", payment.ID, err))
		}
	}
	return errs
}
