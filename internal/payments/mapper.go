package payments

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caiomonteiro/imovia-backend/pkg/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
)

var asaasStatusMap = map[string]enums.PaymentStatus{
	"PENDING":                      enums.PaymentStatusPending,
	"RECEIVED":                     enums.PaymentStatusConfirmed,
	"CONFIRMED":                    enums.PaymentStatusConfirmed,
	"RECEIVED_IN_CASH":             enums.PaymentStatusConfirmed,
	"OVERDUE":                      enums.PaymentStatusOverdue,
	"REFUNDED":                     enums.PaymentStatusRefunded,
	"REFUND_REQUESTED":             enums.PaymentStatusRefunded,
	"CHARGEBACK_REQUESTED":         enums.PaymentStatusRefunded,
	"CHARGEBACK_DISPUTE":           enums.PaymentStatusRefunded,
	"AWAITING_CHARGEBACK_REVERSAL": enums.PaymentStatusRefunded,
}

var asaasBillingTypeMap = map[string]enums.PaymentMethod{
	"PIX":         enums.PaymentMethodPix,
	"CREDIT_CARD": enums.PaymentMethodCreditCard,
	"BOLETO":      enums.PaymentMethodBoleto,
	"DEBIT_CARD":  enums.PaymentMethodDebitCard,
	"TRANSFER":    enums.PaymentMethodTransfer,
}

// PaymentStatusFromAsaas collapses the gateway's status vocabulary into the
// local lifecycle. Statuses we have never seen stay pending so a later sync
// pass can still move them forward.
func PaymentStatusFromAsaas(raw string) enums.PaymentStatus {
	if mapped, ok := asaasStatusMap[normalizeGatewayValue(raw)]; ok {
		return mapped
	}
	return enums.PaymentStatusPending
}

// PaymentMethodFromAsaas maps gateway billing types to the stored enum.
// Unknown types return nil rather than guessing.
func PaymentMethodFromAsaas(raw string) *enums.PaymentMethod {
	if mapped, ok := asaasBillingTypeMap[normalizeGatewayValue(raw)]; ok {
		return &mapped
	}
	return nil
}

func normalizeGatewayValue(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ToUpper(normalized)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return normalized
}

// BuildSubscriptionPayment maps a gateway payment into the canonical model.
func BuildSubscriptionPayment(payment asaas.Payment, brokerID uuid.UUID) (*models.SubscriptionPayment, error) {
	paymentID := strings.TrimSpace(payment.ID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "asaas payment id is empty")
	}
	if brokerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "broker id is required")
	}

	metadata, err := json.Marshal(payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal payment metadata")
	}

	record := &models.SubscriptionPayment{
		ID:             uuid.New(),
		BrokerID:       brokerID,
		AsaasPaymentID: paymentID,
		Amount:         decimal.NewFromFloat(payment.Value),
		Status:         PaymentStatusFromAsaas(payment.Status),
		PaymentMethod:  PaymentMethodFromAsaas(payment.BillingType),
		InvoiceURL:     trimmedPtr(payment.InvoiceURL),
		Metadata:       metadata,
	}
	if due, ok := payment.DueDateTime(); ok {
		record.DueDate = &due
	}
	if paid, ok := payment.PaidAtTime(); ok {
		record.PaidAt = &paid
	}
	return record, nil
}

func trimmedPtr(value string) *string {
	if s := strings.TrimSpace(value); s != "" {
		return &s
	}
	return nil
}
