package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	asaaswebhook "github.com/caiomonteiro/imovia-backend/internal/webhooks/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
)

type stubWebhookService struct {
	handleFn func(ctx context.Context, event *asaaswebhook.Event) (*models.AsaasWebhook, error)
}

func (s stubWebhookService) HandleEvent(ctx context.Context, event *asaaswebhook.Event) (*models.AsaasWebhook, error) {
	if s.handleFn != nil {
		return s.handleFn(ctx, event)
	}
	return &models.AsaasWebhook{ID: uuid.New(), Processed: true}, nil
}

const samplePayload = `{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_123","customer":"cus_001","value":97.0,"status":"RECEIVED"}}`

func TestAsaasWebhookProcessed(t *testing.T) {
	webhookID := uuid.New()
	svc := stubWebhookService{
		handleFn: func(ctx context.Context, event *asaaswebhook.Event) (*models.AsaasWebhook, error) {
			if event.Event != "PAYMENT_RECEIVED" {
				t.Fatalf("unexpected event %q", event.Event)
			}
			if event.Payment.ID != "pay_123" {
				t.Fatalf("unexpected payment id %q", event.Payment.ID)
			}
			return &models.AsaasWebhook{ID: webhookID, Processed: true}, nil
		},
	}

	handler := AsaasWebhook(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(samplePayload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data asaasWebhookResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.WebhookID != webhookID.String() || !envelope.Data.Processed {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestAsaasWebhookProcessingFailureStillAcknowledged(t *testing.T) {
	svc := stubWebhookService{
		handleFn: func(ctx context.Context, event *asaaswebhook.Event) (*models.AsaasWebhook, error) {
			return &models.AsaasWebhook{ID: uuid.New(), Processed: false},
				pkgerrors.New(pkgerrors.CodeNotFound, "no broker for customer")
		},
	}

	handler := AsaasWebhook(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(samplePayload))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data asaasWebhookResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Processed {
		t.Fatalf("expected processed=false for failed delivery")
	}
}

func TestAsaasWebhookInsertFailure(t *testing.T) {
	svc := stubWebhookService{
		handleFn: func(ctx context.Context, event *asaaswebhook.Event) (*models.AsaasWebhook, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "insert webhook")
		},
	}

	handler := AsaasWebhook(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(samplePayload))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestAsaasWebhookMalformedBody(t *testing.T) {
	handler := AsaasWebhook(stubWebhookService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
