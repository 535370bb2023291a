package models

import "time"

// VerificationStatus is the review state of an agent's documents.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// AgentVerification holds the documents an agent submits once for review.
type AgentVerification struct {
	ID                   uint               `gorm:"primaryKey" json:"id"`
	AgentID              uint               `gorm:"not null;uniqueIndex" json:"agent"`
	Agent                *Account           `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
	ValidID              string             `gorm:"size:500;not null" json:"valid_id"`
	CACCertificate       string             `gorm:"size:500;not null" json:"cac_certificate"`
	ProofOfLocation      string             `gorm:"size:500;not null" json:"proof_of_location"`
	PropertyOwnershipDoc string             `gorm:"size:500;not null" json:"property_ownership_doc"`
	Status               VerificationStatus `gorm:"size:10;not null;index" json:"status"`
	RejectionReason      string             `gorm:"type:text" json:"rejection_reason,omitempty"`
	SubmittedAt          time.Time          `gorm:"autoCreateTime" json:"submitted_at"`
	ReviewedAt           *time.Time         `json:"reviewed_at,omitempty"`
}
