package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/pkg/enums"
)

// Broker represents the canonical tenant model. Rows are never deleted;
// lifecycle is expressed through subscription_status only.
type Broker struct {
	ID                    uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string                   `gorm:"column:name;not null"`
	Email                 string                   `gorm:"column:email;not null"`
	Phone                 *string                  `gorm:"column:phone"`
	CreciNumber           *string                  `gorm:"column:creci_number"`
	AsaasCustomerID       *string                  `gorm:"column:asaas_customer_id;uniqueIndex"`
	PlanID                *uuid.UUID               `gorm:"column:plan_id;type:uuid"`
	SubscriptionStatus    enums.SubscriptionStatus `gorm:"column:subscription_status;type:subscription_status;not null;default:'pending'"`
	SubscriptionExpiresAt *time.Time               `gorm:"column:subscription_expires_at"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
