package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the single active role of an account.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleInvestor Role = "INVESTOR"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleAgent, RoleInvestor, RoleAdmin:
		return r, true
	}
	return "", false
}

// MembershipTier is empty when the account has no membership.
type MembershipTier string

const (
	TierNone     MembershipTier = ""
	TierGold     MembershipTier = "Gold"
	TierPlatinum MembershipTier = "Platinum"
)

type Account struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	Email                 string          `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName              string          `gorm:"size:100" json:"full_name"`
	Role                  Role            `gorm:"size:20;not null;index" json:"role"`
	IsVerified            bool            `gorm:"not null" json:"is_verified"`
	IsStaff               bool            `gorm:"not null" json:"is_staff"`
	WasVerifiedAsAgent    bool            `gorm:"not null" json:"was_verified_as_agent"`
	WasVerifiedAsInvestor bool            `gorm:"not null" json:"was_verified_as_investor"`
	MembershipTier        MembershipTier  `gorm:"size:20" json:"membership_tier,omitempty"`
	MembershipExpiresAt   *time.Time      `json:"membership_expires_at,omitempty"`
	ShortletCredit        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"shortlet_credit"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// IsAdmin reports whether the account may use admin operations.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin || a.IsStaff
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
