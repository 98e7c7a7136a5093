package webhooks

import (
	"context"
	"net/http"

	"github.com/caiomonteiro/imovia-backend/api/responses"
	"github.com/caiomonteiro/imovia-backend/api/validators"
	asaaswebhook "github.com/caiomonteiro/imovia-backend/internal/webhooks/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
)

// AsaasWebhookService is the ingestion surface the controller depends on.
type AsaasWebhookService interface {
	HandleEvent(ctx context.Context, event *asaaswebhook.Event) (*models.AsaasWebhook, error)
}

type asaasWebhookResponse struct {
	WebhookID string `json:"webhook_id"`
	Processed bool   `json:"processed"`
}

// AsaasWebhook ingests billing gateway callbacks. Once the delivery row is
// durable the gateway gets a 200 even if processing failed; the row carries
// the error and the admin surface can replay it.
func AsaasWebhook(svc AsaasWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		var event asaaswebhook.Event
		if err := validators.DecodeJSONBody(r, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		webhook, err := svc.HandleEvent(ctx, &event)
		if webhook == nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err != nil && logg != nil {
			eventCtx := logg.WithField(ctx, "webhook_id", webhook.ID.String())
			logg.Error(eventCtx, "webhook processing failed", err)
		}

		responses.WriteSuccess(w, asaasWebhookResponse{
			WebhookID: webhook.ID.String(),
			Processed: webhook.Processed,
		})
	}
}
