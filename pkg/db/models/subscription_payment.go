package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caiomonteiro/imovia-backend/pkg/enums"
)

// SubscriptionPayment is one row per gateway payment/invoice. The Asaas
// payment id is the idempotency key: both the sync job and the webhook
// path upsert on it, so concurrent writers stay commutative.
type SubscriptionPayment struct {
	ID             uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BrokerID       uuid.UUID            `gorm:"column:broker_id;type:uuid;not null;index"`
	AsaasPaymentID string               `gorm:"column:asaas_payment_id;not null;uniqueIndex"`
	Amount         decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	Status         enums.PaymentStatus  `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaymentMethod  *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method"`
	DueDate        *time.Time           `gorm:"column:due_date"`
	PaidAt         *time.Time           `gorm:"column:paid_at"`
	InvoiceURL     *string              `gorm:"column:invoice_url"`
	Metadata       json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
