package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"proptx/server/internal/ledger"
)

// BookingStatus is the booking lifecycle. Refunded is a cancellation of a
// booking that had been paid.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingPaid      BookingStatus = "paid"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
)

// Active bookings hold their date range on the listing.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingPaid
}

// Paid reports whether the booking has been paid, even if later refunded.
func (s BookingStatus) Paid() bool {
	return s == BookingPaid || s == BookingRefunded
}

type Booking struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	AccountID  uint            `gorm:"not null;index" json:"user_id"`
	Account    *Account        `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	ListingID  uint            `gorm:"not null;index" json:"property_id"`
	Listing    *Listing        `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	StartDate  time.Time       `gorm:"not null;index" json:"start_date"`
	EndDate    time.Time       `gorm:"not null;index" json:"end_date"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
	Status     BookingStatus   `gorm:"size:20;not null;index" json:"status"`
	// ActiveSlot is set while the booking is active and cleared on
	// cancellation; its unique index keeps active ranges distinct per listing.
	ActiveSlot  *string    `gorm:"size:64;uniqueIndex" json:"-"`
	TxRef       string     `gorm:"size:100;uniqueIndex;not null" json:"tx_ref"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (b *Booking) Range() ledger.DateRange {
	return ledger.DateRange{Start: ledger.Date(b.StartDate), End: ledger.Date(b.EndDate)}
}

// BookingSlot is the ActiveSlot key for a listing and range.
func BookingSlot(listingID uint, r ledger.DateRange) string {
	return fmt.Sprintf("%d:%s:%s", listingID, r.Start.Format(ledger.DateLayout), r.End.Format(ledger.DateLayout))
}
