package models

import "time"

// ReviewType says whether a review rates a listing or an agent.
type ReviewType string

const (
	ReviewListing ReviewType = "property"
	ReviewAgent   ReviewType = "agent"
)

// Review is hidden from the public until an admin approves it.
type Review struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AuthorID   uint       `gorm:"not null;index" json:"user"`
	Author     *Account   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	ListingID  *uint      `gorm:"index" json:"property,omitempty"`
	Listing    *Listing   `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	AgentID    *uint      `gorm:"index" json:"agent,omitempty"`
	Agent      *Account   `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
	Rating     int        `gorm:"not null" json:"rating"`
	Comment    string     `gorm:"type:text;not null" json:"comment"`
	Type       ReviewType `gorm:"size:20;not null" json:"review_type"`
	IsApproved bool       `gorm:"not null;default:false;index" json:"is_approved"`
	CreatedAt  time.Time  `json:"created_at"`
}
