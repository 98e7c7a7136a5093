package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/properties"
	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
)

type fakePropertyRepo struct {
	props     []models.Property
	published []uuid.UUID
	stampedAt time.Time
}

func (f *fakePropertyRepo) WithTx(tx *gorm.DB) properties.Repository { return f }

func (f *fakePropertyRepo) ListFeedEligible(ctx context.Context, brokerID *uuid.UUID) ([]models.Property, error) {
	if brokerID == nil {
		return f.props, nil
	}
	var scoped []models.Property
	for _, p := range f.props {
		if p.BrokerID == *brokerID {
			scoped = append(scoped, p)
		}
	}
	return scoped, nil
}

func (f *fakePropertyRepo) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	f.published = append(f.published, ids...)
	f.stampedAt = at
	return nil
}

type fakeBrokerRepo struct {
	brokers     map[uuid.UUID]*models.Broker
	plans       map[uuid.UUID]*models.BillingPlan
	defaultPlan *models.BillingPlan
}

func (f *fakeBrokerRepo) WithTx(tx *gorm.DB) brokers.Repository { return f }

func (f *fakeBrokerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Broker, error) {
	return f.brokers[id], nil
}

func (f *fakeBrokerRepo) FindByAsaasCustomerID(ctx context.Context, customerID string) (*models.Broker, error) {
	return nil, nil
}

func (f *fakeBrokerRepo) ListForBillingSync(ctx context.Context, limit, offset int) ([]models.Broker, error) {
	return nil, nil
}

func (f *fakeBrokerRepo) UpdateEntitlement(ctx context.Context, brokerID uuid.UUID, status enums.SubscriptionStatus, expiresAt *time.Time) error {
	return nil
}

func (f *fakeBrokerRepo) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.BillingPlan, error) {
	return f.plans[id], nil
}

func (f *fakeBrokerRepo) FindDefaultPlan(ctx context.Context) (*models.BillingPlan, error) {
	return f.defaultPlan, nil
}

func validProperty(brokerID uuid.UUID, ref string) models.Property {
	return models.Property{
		ID:              uuid.New(),
		BrokerID:        brokerID,
		ReferenceCode:   ref,
		Title:           "Apartamento 2 quartos",
		Description:     "Apartamento reformado",
		TransactionType: enums.TransactionTypeSale,
		LivingArea:      decimal.NewFromInt(70),
		State:           "SP",
		City:            "São Paulo",
		Neighborhood:    "Moema",
		Address:         "Alameda dos Anapurus",
		StreetNumber:    "1200",
		PostalCode:      "04087-002",
		IsPublic:        true,
		FeedEnabled:     true,
	}
}

func feedBroker(planID *uuid.UUID) *models.Broker {
	phone := "+55 11 98888-7777"
	return &models.Broker{
		ID:     uuid.New(),
		Name:   "Corretora Sul",
		Email:  "sul@example.com",
		Phone:  &phone,
		PlanID: planID,
	}
}

func newFeedService(t *testing.T, propertyRepo *fakePropertyRepo, brokerRepo *fakeBrokerRepo) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		PropertyRepo:  propertyRepo,
		BrokerRepo:    brokerRepo,
		Logger:        logger.New(logger.Options{ServiceName: "feed-test"}),
		PublisherName: "Imovia",
		ContactEmail:  "feed@imovia.example",
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestGenerate_IncludesValidListing(t *testing.T) {
	broker := feedBroker(nil)
	property := validProperty(broker.ID, "IMV-100")
	propertyRepo := &fakePropertyRepo{props: []models.Property{property}}
	brokerRepo := &fakeBrokerRepo{brokers: map[uuid.UUID]*models.Broker{broker.ID: broker}}
	svc := newFeedService(t, propertyRepo, brokerRepo)

	body, err := svc.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	output := string(body)
	if !strings.Contains(output, "<ListingID>IMV-100</ListingID>") {
		t.Fatalf("expected listing in feed, got:\n%s", output)
	}
	if len(propertyRepo.published) != 1 || propertyRepo.published[0] != property.ID {
		t.Fatalf("expected property stamped, got %v", propertyRepo.published)
	}
}

func TestGenerate_ExcludesListingMissingPostalCode(t *testing.T) {
	broker := feedBroker(nil)
	valid := validProperty(broker.ID, "IMV-OK")
	invalid := validProperty(broker.ID, "IMV-NOCEP")
	invalid.PostalCode = ""
	propertyRepo := &fakePropertyRepo{props: []models.Property{invalid, valid}}
	brokerRepo := &fakeBrokerRepo{brokers: map[uuid.UUID]*models.Broker{broker.ID: broker}}
	svc := newFeedService(t, propertyRepo, brokerRepo)

	body, err := svc.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	output := string(body)
	if strings.Contains(output, "IMV-NOCEP") {
		t.Fatal("expected invalid listing to be excluded")
	}
	if !strings.Contains(output, "IMV-OK") {
		t.Fatal("expected valid listing to remain")
	}
	if len(propertyRepo.published) != 1 || propertyRepo.published[0] != valid.ID {
		t.Fatalf("only the emitted listing may be stamped, got %v", propertyRepo.published)
	}
}

func TestGenerate_ZeroQuotaReturnsEmptyDocumentWithoutStamping(t *testing.T) {
	planID := uuid.New()
	broker := feedBroker(&planID)
	property := validProperty(broker.ID, "IMV-QUOTA")
	propertyRepo := &fakePropertyRepo{props: []models.Property{property}}
	brokerRepo := &fakeBrokerRepo{
		brokers: map[uuid.UUID]*models.Broker{broker.ID: broker},
		plans:   map[uuid.UUID]*models.BillingPlan{planID: {ID: planID, Name: "Free", ListingQuota: 0}},
	}
	svc := newFeedService(t, propertyRepo, brokerRepo)

	body, err := svc.Generate(context.Background(), &broker.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	output := string(body)
	if strings.Contains(output, "IMV-QUOTA") {
		t.Fatal("expected empty feed under zero quota")
	}
	if !strings.Contains(output, "<ListingDataFeed>") {
		t.Fatal("expected well-formed empty document")
	}
	if len(propertyRepo.published) != 0 {
		t.Fatalf("zero quota must not stamp listings, got %v", propertyRepo.published)
	}
}

func TestGenerate_QuotaCapsListings(t *testing.T) {
	planID := uuid.New()
	broker := feedBroker(&planID)
	first := validProperty(broker.ID, "IMV-1")
	second := validProperty(broker.ID, "IMV-2")
	third := validProperty(broker.ID, "IMV-3")
	propertyRepo := &fakePropertyRepo{props: []models.Property{first, second, third}}
	brokerRepo := &fakeBrokerRepo{
		brokers: map[uuid.UUID]*models.Broker{broker.ID: broker},
		plans:   map[uuid.UUID]*models.BillingPlan{planID: {ID: planID, Name: "Basic", ListingQuota: 2}},
	}
	svc := newFeedService(t, propertyRepo, brokerRepo)

	body, err := svc.Generate(context.Background(), &broker.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	output := string(body)
	if !strings.Contains(output, "IMV-1") || !strings.Contains(output, "IMV-2") {
		t.Fatal("expected first two listings under quota")
	}
	if strings.Contains(output, "IMV-3") {
		t.Fatal("expected third listing cut by quota")
	}
	if len(propertyRepo.published) != 2 {
		t.Fatalf("expected 2 stamped listings, got %d", len(propertyRepo.published))
	}
}

func TestGenerate_UnknownBrokerScope(t *testing.T) {
	propertyRepo := &fakePropertyRepo{}
	brokerRepo := &fakeBrokerRepo{brokers: map[uuid.UUID]*models.Broker{}}
	svc := newFeedService(t, propertyRepo, brokerRepo)

	missing := uuid.New()
	if _, err := svc.Generate(context.Background(), &missing); err == nil {
		t.Fatal("expected error for unknown broker")
	}
}

func TestGenerate_BrokerWithoutPlanUsesDefault(t *testing.T) {
	broker := feedBroker(nil)
	property := validProperty(broker.ID, "IMV-DEF")
	propertyRepo := &fakePropertyRepo{props: []models.Property{property}}
	brokerRepo := &fakeBrokerRepo{
		brokers:     map[uuid.UUID]*models.Broker{broker.ID: broker},
		defaultPlan: &models.BillingPlan{ID: uuid.New(), Name: "Default", ListingQuota: 10},
	}
	svc := newFeedService(t, propertyRepo, brokerRepo)

	body, err := svc.Generate(context.Background(), &broker.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(body), "IMV-DEF") {
		t.Fatal("expected listing under default plan quota")
	}
}
