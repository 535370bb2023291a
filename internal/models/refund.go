package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundLog is an append-only record of a refund owed to an account.
type RefundLog struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	AccountID uint            `gorm:"not null;index" json:"user"`
	Account   *Account        `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	BookingID *uint           `gorm:"index" json:"booking_id,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Reason    string          `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}
