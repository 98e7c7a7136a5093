package feed

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/api/responses"
	"github.com/caiomonteiro/imovia-backend/api/validators"
	"github.com/caiomonteiro/imovia-backend/pkg/config"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
)

// Generator is the feed surface the controller depends on.
type Generator interface {
	Generate(ctx context.Context, brokerID *uuid.UUID) ([]byte, error)
}

// VivaReal serves the portal XML feed. The consuming portal only understands
// XML or a bare status code, so errors here are plain text rather than the
// JSON envelope used elsewhere.
func VivaReal(cfg config.FeedConfig, generator Generator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := r.URL.Query().Get("token")
		if cfg.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		brokerID, err := validators.ParseQueryUUID(r, "broker_id")
		if err != nil {
			http.Error(w, "invalid broker_id", http.StatusBadRequest)
			return
		}

		body, err := generator.Generate(ctx, brokerID)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "feed generation failed", err)
			}
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				http.Error(w, "broker not found", http.StatusNotFound)
				return
			}
			http.Error(w, "feed generation failed", http.StatusInternalServerError)
			return
		}

		responses.WriteXML(w, http.StatusOK, body)
	}
}
