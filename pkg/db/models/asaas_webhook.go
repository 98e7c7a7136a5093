package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AsaasWebhook is the durable audit log of inbound gateway callbacks.
// A row is inserted before any processing side effect and is never deleted,
// so redeliveries produce one row each.
type AsaasWebhook struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Event       string          `gorm:"column:event;not null;index"`
	Payment     json.RawMessage `gorm:"column:payment;type:jsonb"`
	Processed   bool            `gorm:"column:processed;not null;default:false;index"`
	ProcessedAt *time.Time      `gorm:"column:processed_at"`
	Error       *string         `gorm:"column:error"`
	ReceivedAt  time.Time       `gorm:"column:received_at;autoCreateTime"`
}
