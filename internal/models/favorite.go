package models

import "time"

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_favorite_account_listing" json:"user"`
	Account   *Account  `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_favorite_account_listing;index" json:"property"`
	Listing   *Listing  `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
