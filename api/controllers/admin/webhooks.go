package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/api/responses"
	"github.com/caiomonteiro/imovia-backend/api/validators"
	asaaswebhook "github.com/caiomonteiro/imovia-backend/internal/webhooks/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/pagination"
)

// WebhookMonitor is the audit-log surface the controllers depend on.
type WebhookMonitor interface {
	List(ctx context.Context, params asaaswebhook.ListWebhooksQuery) ([]models.AsaasWebhook, *pagination.Cursor, error)
	Retry(ctx context.Context, id uuid.UUID) (*models.AsaasWebhook, error)
}

type webhookDTO struct {
	ID          uuid.UUID  `json:"id"`
	Event       string     `json:"event"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
}

type webhookListResponse struct {
	Webhooks   []webhookDTO `json:"webhooks"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

// ListWebhooks returns the gateway callback audit log newest first.
func ListWebhooks(svc WebhookMonitor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

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
		processed, err := validators.ParseQueryBool(r, "processed")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query := asaaswebhook.ListWebhooksQuery{Limit: limit, Cursor: cursor, Processed: processed}
		if event := r.URL.Query().Get("event"); event != "" {
			query.Event = &event
		}

		rows, next, err := svc.List(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list webhooks"))
			return
		}

		payload := webhookListResponse{Webhooks: make([]webhookDTO, 0, len(rows))}
		for _, row := range rows {
			payload.Webhooks = append(payload.Webhooks, webhookToDTO(row))
		}
		if next != nil {
			encoded := pagination.EncodeCursor(*next)
			payload.NextCursor = &encoded
		}

		responses.WriteSuccess(w, payload)
	}
}

type webhookRetryResponse struct {
	Webhook webhookDTO `json:"webhook"`
}

// RetryWebhook replays a stored callback payload through the billing pipeline.
func RetryWebhook(svc WebhookMonitor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		webhookID, err := validators.ParsePathUUID(chi.URLParam(r, "webhookId"), "webhookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		webhook, err := svc.Retry(ctx, webhookID)
		if webhook == nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err != nil && logg != nil {
			logg.Error(ctx, "webhook retry failed", err)
		}

		responses.WriteSuccess(w, webhookRetryResponse{Webhook: webhookToDTO(*webhook)})
	}
}

func webhookToDTO(webhook models.AsaasWebhook) webhookDTO {
	return webhookDTO{
		ID:          webhook.ID,
		Event:       webhook.Event,
		Processed:   webhook.Processed,
		ProcessedAt: webhook.ProcessedAt,
		Error:       webhook.Error,
		ReceivedAt:  webhook.ReceivedAt,
	}
}
