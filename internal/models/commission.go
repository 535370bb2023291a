package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionStatus moves accrued -> withdrawal_requested -> withdrawn.
type CommissionStatus string

const (
	CommissionAccrued             CommissionStatus = "accrued"
	CommissionWithdrawalRequested CommissionStatus = "withdrawal_requested"
	CommissionWithdrawn           CommissionStatus = "withdrawn"
)

// Commission is the agent's cut of one paid booking.
type Commission struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	AgentID     uint             `gorm:"not null;index" json:"agent_id"`
	Agent       *Account         `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
	BookingID   uint             `gorm:"not null;uniqueIndex" json:"booking_id"`
	Booking     *Booking         `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"-"`
	Amount      decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"amount"`
	Status      CommissionStatus `gorm:"size:30;not null;index" json:"status"`
	RequestedAt *time.Time       `json:"requested_at,omitempty"`
	WithdrawnAt *time.Time       `json:"withdrawn_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
