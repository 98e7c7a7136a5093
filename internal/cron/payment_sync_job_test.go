package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/payments"
	"github.com/caiomonteiro/imovia-backend/pkg/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
)

type fakeGateway struct {
	payments map[string][]asaas.Payment
	errors   map[string]error
	calls    []string
}

func (f *fakeGateway) ListPayments(ctx context.Context, customerID string, limit int) ([]asaas.Payment, error) {
	f.calls = append(f.calls, customerID)
	if err, ok := f.errors[customerID]; ok {
		return nil, err
	}
	return f.payments[customerID], nil
}

type syncTxRunner struct {
	db *gorm.DB
}

func (r syncTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupSyncTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS brokers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT,
  creci_number TEXT,
  asaas_customer_id TEXT,
  plan_id TEXT,
  subscription_status TEXT NOT NULL DEFAULT 'pending',
  subscription_expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS subscription_payments (
  id TEXT PRIMARY KEY,
  broker_id TEXT NOT NULL,
  asaas_payment_id TEXT NOT NULL UNIQUE,
  amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT,
  due_date DATETIME,
  paid_at DATETIME,
  invoice_url TEXT,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedSyncBroker(t *testing.T, db *gorm.DB, customerID string, status enums.SubscriptionStatus) *models.Broker {
	t.Helper()
	broker := &models.Broker{
		ID:                 uuid.New(),
		Name:               "Corretora " + customerID,
		Email:              customerID + "@example.com",
		AsaasCustomerID:    &customerID,
		SubscriptionStatus: status,
	}
	require.NoError(t, db.Create(broker).Error)
	return broker
}

func newSyncJob(t *testing.T, db *gorm.DB, gateway *fakeGateway) *PaymentSyncJob {
	t.Helper()

	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo:              payments.NewRepository(db),
		BrokerRepo:        brokers.NewRepository(db),
		TransactionRunner: syncTxRunner{db: db},
	})
	require.NoError(t, err)

	job, err := NewPaymentSyncJob(PaymentSyncJobParams{
		BrokerRepo: brokers.NewRepository(db),
		Payments:   paymentSvc,
		Gateway:    gateway,
		Logger:     logger.New(logger.Options{ServiceName: "sync-test"}),
		PageSize:   2,
	})
	require.NoError(t, err)
	return job
}

func TestPaymentSyncJob_ReconcilesAllBrokers(t *testing.T) {
	db := setupSyncTestDB(t)
	brokerA := seedSyncBroker(t, db, "cus_a", enums.SubscriptionStatusPending)
	brokerB := seedSyncBroker(t, db, "cus_b", enums.SubscriptionStatusActive)
	seedSyncBroker(t, db, "cus_c", enums.SubscriptionStatusCancelled)

	gateway := &fakeGateway{payments: map[string][]asaas.Payment{
		"cus_a": {{ID: "pay_a1", Customer: "cus_a", Value: 97, Status: "RECEIVED", BillingType: "PIX", DueDate: "2024-06-01"}},
		"cus_b": {{ID: "pay_b1", Customer: "cus_b", Value: 197, Status: "OVERDUE", BillingType: "BOLETO", DueDate: "2024-05-20"}},
	}}
	job := newSyncJob(t, db, gateway)

	require.NoError(t, job.Run(context.Background()))

	// Cancelled brokers are not swept.
	assert.Len(t, gateway.calls, 2)

	var storedA, storedB models.Broker
	require.NoError(t, db.First(&storedA, "id = ?", brokerA.ID).Error)
	require.NoError(t, db.First(&storedB, "id = ?", brokerB.ID).Error)
	assert.Equal(t, enums.SubscriptionStatusActive, storedA.SubscriptionStatus)
	require.NotNil(t, storedA.SubscriptionExpiresAt)
	assert.Equal(t, "2024-07-01", storedA.SubscriptionExpiresAt.UTC().Format("2006-01-02"))
	assert.Equal(t, enums.SubscriptionStatusOverdue, storedB.SubscriptionStatus)

	var paymentCount int64
	require.NoError(t, db.Model(&models.SubscriptionPayment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(2), paymentCount)
}

func TestPaymentSyncJob_OneBrokerFailureDoesNotStopSweep(t *testing.T) {
	db := setupSyncTestDB(t)
	seedSyncBroker(t, db, "cus_bad", enums.SubscriptionStatusPending)
	healthy := seedSyncBroker(t, db, "cus_good", enums.SubscriptionStatusPending)

	gateway := &fakeGateway{
		payments: map[string][]asaas.Payment{
			"cus_good": {{ID: "pay_ok", Customer: "cus_good", Value: 97, Status: "CONFIRMED", BillingType: "PIX", DueDate: "2024-06-01"}},
		},
		errors: map[string]error{"cus_bad": errors.New("gateway 500")},
	}
	job := newSyncJob(t, db, gateway)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway 500")

	var stored models.Broker
	require.NoError(t, db.First(&stored, "id = ?", healthy.ID).Error)
	assert.Equal(t, enums.SubscriptionStatusActive, stored.SubscriptionStatus)
}

func TestPaymentSyncJob_RerunIsIdempotent(t *testing.T) {
	db := setupSyncTestDB(t)
	seedSyncBroker(t, db, "cus_repeat", enums.SubscriptionStatusPending)

	gateway := &fakeGateway{payments: map[string][]asaas.Payment{
		"cus_repeat": {{ID: "pay_same", Customer: "cus_repeat", Value: 97, Status: "RECEIVED", BillingType: "PIX", DueDate: "2024-06-01"}},
	}}
	job := newSyncJob(t, db, gateway)

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	var paymentCount int64
	require.NoError(t, db.Model(&models.SubscriptionPayment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), paymentCount)
}
