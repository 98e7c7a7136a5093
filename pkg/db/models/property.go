package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/caiomonteiro/imovia-backend/pkg/enums"
)

// Property holds the feed-relevant subset of a listing. Import jobs and
// broker edits mutate it; the feed generator only reads and stamps
// feed_published_at.
type Property struct {
	ID              uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BrokerID        uuid.UUID             `gorm:"column:broker_id;type:uuid;not null;index"`
	ReferenceCode   string                `gorm:"column:reference_code;not null"`
	Title           string                `gorm:"column:title;not null"`
	Description     string                `gorm:"column:description"`
	Observations    *string               `gorm:"column:observations"`
	TransactionType enums.TransactionType `gorm:"column:transaction_type;type:transaction_type;not null;default:'sale'"`
	SalePrice       *decimal.Decimal      `gorm:"column:sale_price;type:numeric(14,2)"`
	RentPrice       *decimal.Decimal      `gorm:"column:rent_price;type:numeric(14,2)"`
	LivingArea      decimal.Decimal       `gorm:"column:living_area;type:numeric(10,2);not null;default:0"`
	Bedrooms        int                   `gorm:"column:bedrooms;not null;default:0"`
	Bathrooms       int                   `gorm:"column:bathrooms;not null;default:0"`
	ParkingSpaces   int                   `gorm:"column:parking_spaces;not null;default:0"`
	State           string                `gorm:"column:state"`
	City            string                `gorm:"column:city"`
	Neighborhood    string                `gorm:"column:neighborhood"`
	Address         string                `gorm:"column:address"`
	StreetNumber    string                `gorm:"column:street_number"`
	PostalCode      string                `gorm:"column:postal_code"`
	Latitude        *float64              `gorm:"column:latitude"`
	Longitude       *float64              `gorm:"column:longitude"`
	PhotoURLs       pq.StringArray        `gorm:"column:photo_urls;type:text[]"`
	IsPublic        bool                  `gorm:"column:is_public;not null;default:false"`
	FeedEnabled     bool                  `gorm:"column:feed_enabled;not null;default:false"`
	FeedPublishedAt *time.Time            `gorm:"column:feed_published_at;index"`
	RawSource       json.RawMessage       `gorm:"column:raw_source;type:jsonb"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
