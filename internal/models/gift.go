package models

import (
	"time"
)

// GiftStatus is terminal once it leaves pending.
type GiftStatus string

const (
	GiftPending  GiftStatus = "pending"
	GiftAccepted GiftStatus = "accepted"
	GiftDeclined GiftStatus = "declined"
	GiftExpired  GiftStatus = "expired"
)

type Gift struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SenderID        uint       `gorm:"not null;index" json:"sender_id"`
	Sender          *Account   `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	RecipientEmail  string     `gorm:"size:255;not null;index" json:"recipient_email"`
	RecipientUserID *uint      `gorm:"index" json:"recipient_user_id,omitempty"`
	RecipientUser   *Account   `gorm:"foreignKey:RecipientUserID;constraint:OnDelete:SET NULL" json:"-"`
	ListingID       uint       `gorm:"not null;index" json:"property_id"`
	Listing         *Listing   `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	Message         string     `gorm:"type:text" json:"message"`
	Status          GiftStatus `gorm:"size:10;not null;index" json:"status"`
	ExpiresAt       *time.Time `gorm:"index" json:"expires_at,omitempty"`
	ReassignedToID  *uint      `json:"reassigned_to,omitempty"`
	ReassignedTo    *Account   `gorm:"foreignKey:ReassignedToID;constraint:OnDelete:SET NULL" json:"-"`
	// ReassignedAt marks the one allowed reassignment even when the new
	// recipient has no account yet.
	ReassignedAt      *time.Time `json:"reassigned_at,omitempty"`
	ConvertedToCredit bool       `gorm:"not null" json:"converted_to_credit"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (g *Gift) Reassigned() bool {
	return g.ReassignedAt != nil
}
