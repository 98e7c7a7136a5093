package feed

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caiomonteiro/imovia-backend/pkg/db/models"
	"github.com/caiomonteiro/imovia-backend/pkg/enums"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 3000

	transactionForSale  = "For Sale"
	transactionForRent  = "For Rent"
	transactionSaleRent = "Sale/Rent"
)

// Document is the root of the syndication feed. The portal requires a
// well-formed document even when no listing qualifies.
type Document struct {
	XMLName  xml.Name `xml:"ListingDataFeed"`
	Header   Header   `xml:"Header"`
	Listings Listings `xml:"Listings"`
}

// Header identifies the feed publisher.
type Header struct {
	Provider    string `xml:"Provider"`
	Email       string `xml:"Email,omitempty"`
	PublishDate string `xml:"PublishDate"`
}

// Listings wraps the listing collection so an empty feed still renders the
// enclosing element.
type Listings struct {
	Listings []Listing `xml:"Listing"`
}

// Listing is one syndicated property.
type Listing struct {
	ListingID       string      `xml:"ListingID"`
	Title           string      `xml:"Title"`
	TransactionType string      `xml:"TransactionType"`
	DetailViewURL   string      `xml:"DetailViewUrl,omitempty"`
	Details         Details     `xml:"Details"`
	Location        Location    `xml:"Location"`
	ContactInfo     ContactInfo `xml:"ContactInfo"`
	Media           *Media      `xml:"Media,omitempty"`
}

// Details carries descriptive and pricing fields.
type Details struct {
	Description   string      `xml:"Description"`
	ListPrice     *int64      `xml:"ListPrice,omitempty"`
	RentalPrice   *int64      `xml:"RentalPrice,omitempty"`
	LivingArea    LivingArea  `xml:"LivingArea"`
	Bedrooms      int         `xml:"Bedrooms"`
	Bathrooms     int         `xml:"Bathrooms"`
	ParkingSpaces int         `xml:"Garage,omitempty"`
}

// LivingArea is the usable area in square meters.
type LivingArea struct {
	Unit  string `xml:"unit,attr"`
	Value int64  `xml:",chardata"`
}

// Location carries the address fields the portal validates.
type Location struct {
	State        string   `xml:"State"`
	City         string   `xml:"City"`
	Neighborhood string   `xml:"Neighborhood"`
	Address      string   `xml:"Address"`
	StreetNumber string   `xml:"StreetNumber"`
	PostalCode   string   `xml:"PostalCode"`
	Latitude     *float64 `xml:"Latitude,omitempty"`
	Longitude    *float64 `xml:"Longitude,omitempty"`
}

// ContactInfo is the broker contact attached to each listing.
type ContactInfo struct {
	Name      string `xml:"Name"`
	Email     string `xml:"Email"`
	Telephone string `xml:"Telephone"`
}

// Media wraps listing image URLs.
type Media struct {
	Items []MediaItem `xml:"Item"`
}

// MediaItem is one image URL.
type MediaItem struct {
	Medium string `xml:"medium,attr"`
	URL    string `xml:",chardata"`
}

// NewDocument builds an empty feed document stamped with the publish time.
func NewDocument(provider, email string, publishedAt time.Time) Document {
	return Document{
		Header: Header{
			Provider:    provider,
			Email:       email,
			PublishDate: publishedAt.UTC().Format(time.RFC3339),
		},
		Listings: Listings{Listings: []Listing{}},
	}
}

// Marshal renders the document with the XML declaration prepended.
func (d Document) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// buildListing maps a property plus its broker contact into a feed listing.
// Callers must have run the validation gate first; this function only shapes
// fields, it does not reject.
func buildListing(property models.Property, broker models.Broker, maxImages int) Listing {
	listing := Listing{
		ListingID:       property.ReferenceCode,
		Title:           truncate(property.Title, maxTitleLength),
		TransactionType: transactionTypeLabel(property.TransactionType),
		Details: Details{
			Description: truncate(fullDescription(property), maxDescriptionLength),
			LivingArea: LivingArea{
				Unit:  "square metres",
				Value: roundedInt(property.LivingArea),
			},
			Bedrooms:      property.Bedrooms,
			Bathrooms:     property.Bathrooms,
			ParkingSpaces: property.ParkingSpaces,
		},
		Location: Location{
			State:        strings.TrimSpace(property.State),
			City:         strings.TrimSpace(property.City),
			Neighborhood: strings.TrimSpace(property.Neighborhood),
			Address:      strings.TrimSpace(property.Address),
			StreetNumber: strings.TrimSpace(property.StreetNumber),
			PostalCode:   FormatPostalCode(property.PostalCode),
			Latitude:     property.Latitude,
			Longitude:    property.Longitude,
		},
		ContactInfo: ContactInfo{
			Name:      strings.TrimSpace(broker.Name),
			Email:     strings.TrimSpace(broker.Email),
			Telephone: contactPhone(broker),
		},
	}

	if property.SalePrice != nil {
		price := roundedInt(*property.SalePrice)
		listing.Details.ListPrice = &price
	}
	if property.RentPrice != nil {
		price := roundedInt(*property.RentPrice)
		listing.Details.RentalPrice = &price
	}

	if len(property.PhotoURLs) > 0 {
		urls := property.PhotoURLs
		if maxImages > 0 && len(urls) > maxImages {
			urls = urls[:maxImages]
		}
		media := &Media{}
		for _, url := range urls {
			if strings.TrimSpace(url) == "" {
				continue
			}
			media.Items = append(media.Items, MediaItem{Medium: "image", URL: url})
		}
		if len(media.Items) > 0 {
			listing.Media = media
		}
	}

	return listing
}

func fullDescription(property models.Property) string {
	description := strings.TrimSpace(property.Description)
	if property.Observations != nil {
		if obs := strings.TrimSpace(*property.Observations); obs != "" {
			if description != "" {
				description += " "
			}
			description += obs
		}
	}
	return description
}

func transactionTypeLabel(t enums.TransactionType) string {
	switch t {
	case enums.TransactionTypeRent:
		return transactionForRent
	case enums.TransactionTypeSaleRent:
		return transactionSaleRent
	default:
		return transactionForSale
	}
}

// FormatPostalCode normalizes a Brazilian CEP to the #####-### shape the
// portal expects. Inputs that are not eight digits pass through trimmed.
func FormatPostalCode(raw string) string {
	digits := strings.Builder{}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() != 8 {
		return strings.TrimSpace(raw)
	}
	cep := digits.String()
	return cep[:5] + "-" + cep[5:]
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func roundedInt(value decimal.Decimal) int64 {
	return value.Round(0).IntPart()
}

func contactPhone(broker models.Broker) string {
	if broker.Phone == nil {
		return ""
	}
	return strings.TrimSpace(*broker.Phone)
}
