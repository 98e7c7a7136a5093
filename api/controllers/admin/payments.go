package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/api/responses"
	"github.com/caiomonteiro/imovia-backend/api/validators"
	"github.com/caiomonteiro/imovia-backend/internal/payments"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/pagination"
)

// PaymentLister is the billing-history surface the controller depends on.
type PaymentLister interface {
	List(ctx context.Context, params payments.ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error)
}

type paymentDTO struct {
	ID             uuid.UUID  `json:"id"`
	AsaasPaymentID string     `json:"asaas_payment_id"`
	Amount         string     `json:"amount"`
	Status         string     `json:"status"`
	PaymentMethod  *string    `json:"payment_method,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	InvoiceURL     *string    `json:"invoice_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type paymentListResponse struct {
	Payments   []paymentDTO `json:"payments"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

// ListBrokerPayments returns a broker's billing history newest first.
func ListBrokerPayments(svc PaymentLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		brokerID, err := validators.ParsePathUUID(chi.URLParam(r, "brokerId"), "brokerId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor, err := validators.ParseQueryCursor(r, "cursor")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query := payments.ListPaymentsQuery{BrokerID: brokerID, Limit: limit, Cursor: cursor}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParsePaymentStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			query.Status = &status
		}

		rows, next, err := svc.List(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments"))
			return
		}

		payload := paymentListResponse{Payments: make([]paymentDTO, 0, len(rows))}
		for _, row := range rows {
			payload.Payments = append(payload.Payments, paymentToDTO(row))
		}
		if next != nil {
			encoded := pagination.EncodeCursor(*next)
			payload.NextCursor = &encoded
		}

		responses.WriteSuccess(w, payload)
	}
}

func paymentToDTO(payment models.SubscriptionPayment) paymentDTO {
	dto := paymentDTO{
		ID:             payment.ID,
		AsaasPaymentID: payment.AsaasPaymentID,
		Amount:         payment.Amount.StringFixed(2),
		Status:         payment.Status.String(),
		DueDate:        payment.DueDate,
		PaidAt:         payment.PaidAt,
		InvoiceURL:     payment.InvoiceURL,
		CreatedAt:      payment.CreatedAt,
	}
	if payment.PaymentMethod != nil {
		method := payment.PaymentMethod.String()
		dto.PaymentMethod = &method
	}
	return dto
}
