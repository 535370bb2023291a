package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ListingType string

const (
	ListingShortlet   ListingType = "shortlet"
	ListingInvestment ListingType = "investment"
	ListingSale       ListingType = "sale"
)

func (t ListingType) Valid() bool {
	switch t {
	case ListingShortlet, ListingInvestment, ListingSale:
		return true
	}
	return false
}

// Listing is a property owned by exactly one agent.
type Listing struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	AgentID     uint                `gorm:"not null;index" json:"agent_id"`
	Agent       *Account            `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
	Title       string              `gorm:"size:200;not null" json:"title"`
	Description string              `gorm:"type:text" json:"description"`
	Location    string              `gorm:"size:200" json:"location"`
	Price       decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"price"`
	Type        ListingType         `gorm:"size:20;not null;index" json:"property_type"`
	Amenities   datatypes.JSON      `json:"amenities"`
	Images      datatypes.JSON      `json:"images"`
	CostPrice   decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"cost_price"`
	IsAvailable bool                `gorm:"not null" json:"is_available"`
	IsApproved  bool                `gorm:"not null;index" json:"is_approved"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// HasCostPrice reports whether the listing can back an investment.
func (l *Listing) HasCostPrice() bool {
	return l.CostPrice.Valid && l.CostPrice.Decimal.IsPositive()
}
