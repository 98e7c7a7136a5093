package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caiomonteiro/imovia-backend/internal/payments"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	"github.com/caiomonteiro/imovia-backend/pkg/pagination"
)

type stubPaymentLister struct {
	listFn func(ctx context.Context, params payments.ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error)
}

func (s stubPaymentLister) List(ctx context.Context, params payments.ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, nil, nil
}

func withBrokerID(req *http.Request, brokerID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("brokerId", brokerID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestListBrokerPayments(t *testing.T) {
	brokerID := uuid.New()
	paymentID := uuid.New()
	method := enums.PaymentMethodPix
	now := time.Now().UTC()

	svc := stubPaymentLister{
		listFn: func(ctx context.Context, params payments.ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error) {
			if params.BrokerID != brokerID {
				t.Fatalf("unexpected broker %s", params.BrokerID)
			}
			if params.Limit != 10 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			rows := []models.SubscriptionPayment{{
				ID:             paymentID,
				BrokerID:       brokerID,
				AsaasPaymentID: "pay_123",
				Amount:         decimal.NewFromFloat(97.5),
				Status:         enums.PaymentStatusConfirmed,
				PaymentMethod:  &method,
				CreatedAt:      now,
			}}
			return rows, &pagination.Cursor{Timestamp: now, ID: paymentID}, nil
		},
	}

	handler := ListBrokerPayments(svc, nil)
	req := withBrokerID(httptest.NewRequest(http.MethodGet, "/?limit=10", nil), brokerID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data paymentListResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(envelope.Data.Payments))
	}
	got := envelope.Data.Payments[0]
	if got.AsaasPaymentID != "pay_123" || got.Amount != "97.50" || got.Status != "confirmed" {
		t.Fatalf("unexpected payment %+v", got)
	}
	if got.PaymentMethod == nil || *got.PaymentMethod != "pix" {
		t.Fatalf("expected pix method, got %v", got.PaymentMethod)
	}
	if envelope.Data.NextCursor == nil {
		t.Fatalf("expected next cursor")
	}
}

func TestListBrokerPaymentsStatusFilter(t *testing.T) {
	brokerID := uuid.New()
	svc := stubPaymentLister{
		listFn: func(ctx context.Context, params payments.ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error) {
			if params.Status == nil || *params.Status != enums.PaymentStatusOverdue {
				t.Fatalf("expected overdue filter, got %v", params.Status)
			}
			return nil, nil, nil
		},
	}

	handler := ListBrokerPayments(svc, nil)
	req := withBrokerID(httptest.NewRequest(http.MethodGet, "/?status=overdue", nil), brokerID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestListBrokerPaymentsRejectsUnknownStatus(t *testing.T) {
	handler := ListBrokerPayments(stubPaymentLister{}, nil)
	req := withBrokerID(httptest.NewRequest(http.MethodGet, "/?status=RECEIVED", nil), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListBrokerPaymentsInvalidBrokerID(t *testing.T) {
	handler := ListBrokerPayments(stubPaymentLister{}, nil)
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("brokerId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
