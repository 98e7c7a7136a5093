package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/properties"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/metrics"
)

// Exclusion reasons surfaced through logs and counters.
const (
	reasonMissingState        = "missing_state"
	reasonMissingCity         = "missing_city"
	reasonMissingNeighborhood = "missing_neighborhood"
	reasonMissingAddress      = "missing_address"
	reasonMissingStreetNumber = "missing_street_number"
	reasonMissingPostalCode   = "missing_postal_code"
	reasonInvalidLivingArea   = "invalid_living_area"
	reasonMissingContactName  = "missing_contact_name"
	reasonMissingContactEmail = "missing_contact_email"
	reasonMissingContactPhone = "missing_contact_phone"
	reasonUnknownBroker       = "unknown_broker"
)

// ServiceParams groups dependencies for the feed service.
type ServiceParams struct {
	PropertyRepo  properties.Repository
	BrokerRepo    brokers.Repository
	Logger        *logger.Logger
	Metrics       *metrics.FeedMetrics
	PublisherName string
	ContactEmail  string
	MaxImages     int
}

// Service generates the portal XML feed. Listings that would fail the
// portal's own validation are dropped here, never emitted.
type Service struct {
	propertyRepo properties.Repository
	brokerRepo   brokers.Repository
	logg         *logger.Logger
	metrics      *metrics.FeedMetrics
	publisher    string
	contactEmail string
	maxImages    int
	now          func() time.Time
}

// NewService builds a feed service.
func NewService(params ServiceParams) (*Service, error) {
	if params.PropertyRepo == nil {
		return nil, fmt.Errorf("property repo required")
	}
	if params.BrokerRepo == nil {
		return nil, fmt.Errorf("broker repo required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxImages := params.MaxImages
	if maxImages <= 0 {
		maxImages = 50
	}
	publisher := strings.TrimSpace(params.PublisherName)
	if publisher == "" {
		publisher = "Imovia"
	}
	return &Service{
		propertyRepo: params.PropertyRepo,
		brokerRepo:   params.BrokerRepo,
		logg:         params.Logger,
		metrics:      params.Metrics,
		publisher:    publisher,
		contactEmail: strings.TrimSpace(params.ContactEmail),
		maxImages:    maxImages,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Generate produces the XML feed body. A broker id scopes the feed to that
// tenant and applies its plan quota; without one, every tenant's eligible
// listings are emitted unbounded.
func (s *Service) Generate(ctx context.Context, brokerID *uuid.UUID) ([]byte, error) {
	publishedAt := s.now()
	doc := NewDocument(s.publisher, s.contactEmail, publishedAt)

	quota := -1
	if brokerID != nil {
		broker, err := s.brokerRepo.FindByID(ctx, *brokerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load broker")
		}
		if broker == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "broker not found")
		}
		quota, err = s.resolveQuota(ctx, broker)
		if err != nil {
			return nil, err
		}
		if quota == 0 {
			return doc.Marshal()
		}
	}

	props, err := s.propertyRepo.ListFeedEligible(ctx, brokerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list feed properties")
	}

	brokerCache := map[uuid.UUID]*models.Broker{}
	included := make([]uuid.UUID, 0, len(props))
	for _, property := range props {
		if quota >= 0 && len(included) >= quota {
			break
		}

		broker, err := s.brokerFor(ctx, brokerCache, property.BrokerID)
		if err != nil {
			return nil, err
		}

		if reason, ok := gate(property, broker); !ok {
			s.metrics.IncExcluded(reason)
			propCtx := s.logg.WithFields(ctx, map[string]any{
				"property_id": property.ID.String(),
				"reason":      reason,
			})
			s.logg.Warn(propCtx, "listing excluded from feed")
			continue
		}

		doc.Listings.Listings = append(doc.Listings.Listings, buildListing(property, *broker, s.maxImages))
		included = append(included, property.ID)
		s.metrics.IncIncluded()
	}

	if len(included) > 0 {
		if err := s.propertyRepo.MarkPublished(ctx, included, publishedAt); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamp published listings")
		}
	}

	return doc.Marshal()
}

// resolveQuota reads the broker's plan quota, falling back to the default
// plan when the broker has none. No plan anywhere means no feed surface for
// the tenant.
func (s *Service) resolveQuota(ctx context.Context, broker *models.Broker) (int, error) {
	var plan *models.BillingPlan
	var err error
	if broker.PlanID != nil {
		plan, err = s.brokerRepo.FindPlanByID(ctx, *broker.PlanID)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load billing plan")
		}
	}
	if plan == nil {
		plan, err = s.brokerRepo.FindDefaultPlan(ctx)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load default plan")
		}
	}
	if plan == nil {
		return 0, nil
	}
	if plan.ListingQuota < 0 {
		return 0, nil
	}
	return plan.ListingQuota, nil
}

func (s *Service) brokerFor(ctx context.Context, cache map[uuid.UUID]*models.Broker, id uuid.UUID) (*models.Broker, error) {
	if broker, ok := cache[id]; ok {
		return broker, nil
	}
	broker, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing broker")
	}
	cache[id] = broker
	return broker, nil
}

// gate applies the portal's mandatory-field validation. The first failing
// field names the exclusion reason.
func gate(property models.Property, broker *models.Broker) (string, bool) {
	if broker == nil {
		return reasonUnknownBroker, false
	}
	checks := []struct {
		reason string
		ok     bool
	}{
		{reasonMissingState, strings.TrimSpace(property.State) != ""},
		{reasonMissingCity, strings.TrimSpace(property.City) != ""},
		{reasonMissingNeighborhood, strings.TrimSpace(property.Neighborhood) != ""},
		{reasonMissingAddress, strings.TrimSpace(property.Address) != ""},
		{reasonMissingStreetNumber, strings.TrimSpace(property.StreetNumber) != ""},
		{reasonMissingPostalCode, strings.TrimSpace(property.PostalCode) != ""},
		{reasonInvalidLivingArea, property.LivingArea.IsPositive()},
		{reasonMissingContactName, strings.TrimSpace(broker.Name) != ""},
		{reasonMissingContactEmail, strings.TrimSpace(broker.Email) != ""},
		{reasonMissingContactPhone, contactPhone(*broker) != ""},
	}
	for _, check := range checks {
		if !check.ok {
			return check.reason, false
		}
	}
	return "", true
}
