package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/pkg/enums"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/pubsub"
)

// EntitlementChanged is emitted whenever billing reconciliation moves a
// broker's subscription status.
type EntitlementChanged struct {
	BrokerID       uuid.UUID                `json:"broker_id"`
	Status         enums.SubscriptionStatus `json:"status"`
	PreviousStatus enums.SubscriptionStatus `json:"previous_status"`
	ExpiresAt      *time.Time               `json:"expires_at,omitempty"`
	Source         string                   `json:"source"`
	OccurredAt     time.Time                `json:"occurred_at"`
}

// Publisher emits entitlement change events to downstream consumers.
type Publisher interface {
	PublishEntitlementChanged(ctx context.Context, event EntitlementChanged) error
}

// PubSubPublisher publishes entitlement events onto a Pub/Sub topic.
type PubSubPublisher struct {
	publisher *gcppubsub.Publisher
	logg      *logger.Logger
}

// NewPubSubPublisher binds a publisher to the given topic.
func NewPubSubPublisher(client *pubsub.Client, topic string, logg *logger.Logger) (*PubSubPublisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("entitlement topic is required")
	}
	publisher := client.Publisher(topic)
	if publisher == nil {
		return nil, errors.New("pubsub publisher could not be created")
	}
	return &PubSubPublisher{publisher: publisher, logg: logg}, nil
}

// PublishEntitlementChanged sends the event and waits for the server ack.
func (p *PubSubPublisher) PublishEntitlementChanged(ctx context.Context, event EntitlementChanged) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	result := p.publisher.Publish(ctx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event":     "entitlement.changed",
			"broker_id": event.BrokerID.String(),
			"status":    event.Status.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		if p.logg != nil {
			p.logg.Error(ctx, "publish entitlement event", err)
		}
		return err
	}
	return nil
}

// NoopPublisher drops events. Used when Pub/Sub is not configured.
type NoopPublisher struct{}

// PublishEntitlementChanged implements Publisher.
func (NoopPublisher) PublishEntitlementChanged(ctx context.Context, event EntitlementChanged) error {
	return nil
}
