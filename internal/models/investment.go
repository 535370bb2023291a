package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentPlan string

const (
	PlanFull        PaymentPlan = "full"
	PlanInstallment PaymentPlan = "installment"
)

func ParsePlan(s string) (PaymentPlan, bool) {
	switch p := PaymentPlan(s); p {
	case PlanFull, PlanInstallment:
		return p, true
	}
	return "", false
}

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

// Investment is unique per (investor, listing).
type Investment struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	InvestorID       uint             `gorm:"not null;uniqueIndex:idx_investment_investor_listing" json:"investor_id"`
	Investor         *Account         `gorm:"foreignKey:InvestorID;constraint:OnDelete:CASCADE" json:"-"`
	ListingID        uint             `gorm:"not null;uniqueIndex:idx_investment_investor_listing" json:"property_id"`
	Listing          *Listing         `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	Plan             PaymentPlan      `gorm:"size:20;not null" json:"payment_plan"`
	TotalPrice       decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"total_price"`
	AmountPaid       decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"amount_paid"`
	RemainingBalance decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"remaining_balance"`
	Status           InvestmentStatus `gorm:"size:20;not null;index" json:"status"`
	TxRef            string           `gorm:"size:100;uniqueIndex;not null" json:"tx_ref"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ROIs             []InvestmentROI  `gorm:"constraint:OnDelete:CASCADE" json:"rois,omitempty"`
}

// InvestmentROI is an append-only payout record.
type InvestmentROI struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	InvestmentID uint            `gorm:"not null;index" json:"investment"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	DatePaid     time.Time       `gorm:"not null" json:"date_paid"`
	Note         string          `gorm:"type:text" json:"note"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (InvestmentROI) TableName() string {
	return "investment_rois"
}
