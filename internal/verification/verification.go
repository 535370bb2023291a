// Package verification handles the one-time document review that makes an
// agent verified.
package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/database"
	"proptx/server/internal/models"
)

// Documents are links to the files an agent uploads elsewhere
type Documents struct {
	ValidID              string `json:"valid_id"`
	CACCertificate       string `json:"cac_certificate"`
	ProofOfLocation      string `json:"proof_of_location"`
	PropertyOwnershipDoc string `json:"property_ownership_doc"`
}

// Service reviews agent verification submissions
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	Now    func() time.Time
}

// NewService creates a new verification service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores an agent's documents. Each agent submits exactly once.
func (s *Service) Submit(ctx context.Context, agentID uint, docs Documents) (*models.AgentVerification, error) {
	if err := docs.validate(); err != nil {
		return nil, err
	}

	var v *models.AgentVerification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agent, err := account.Load(tx, agentID)
		if err != nil {
			return err
		}
		if agent.Role != models.RoleAgent {
			return apperror.ErrNotAgent
		}

		v = &models.AgentVerification{
			AgentID:              agent.ID,
			ValidID:              strings.TrimSpace(docs.ValidID),
			CACCertificate:       strings.TrimSpace(docs.CACCertificate),
			ProofOfLocation:      strings.TrimSpace(docs.ProofOfLocation),
			PropertyOwnershipDoc: strings.TrimSpace(docs.PropertyOwnershipDoc),
			Status:               models.VerificationPending,
		}
		if err := tx.Create(v).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.ErrAlreadySubmitted
			}
			return fmt.Errorf("failed to save verification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"verification_id": v.ID, "agent_id": agentID}).Info("Verification submitted")
	return v, nil
}

// Approve marks the submission approved and the agent verified.
func (s *Service) Approve(ctx context.Context, id uint) (*models.AgentVerification, error) {
	now := s.Now()
	var v *models.AgentVerification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		v, err = loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if v.Status == models.VerificationApproved {
			return apperror.ErrAlreadyVerified
		}

		v.Status = models.VerificationApproved
		v.RejectionReason = ""
		v.ReviewedAt = &now
		if err := tx.Model(&models.AgentVerification{ID: v.ID}).Updates(map[string]interface{}{
			"status":           v.Status,
			"rejection_reason": "",
			"reviewed_at":      now,
		}).Error; err != nil {
			return fmt.Errorf("failed to approve verification: %w", err)
		}
		return setAgentVerified(tx, v.AgentID, true)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"verification_id": v.ID, "agent_id": v.AgentID}).Info("Agent verified")
	return v, nil
}

// Reject records why the documents were refused and unverifies the agent.
func (s *Service) Reject(ctx context.Context, id uint, reason string) (*models.AgentVerification, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.ErrMissingReason
	}

	now := s.Now()
	var v *models.AgentVerification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		v, err = loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if v.Status == models.VerificationRejected {
			return apperror.ErrVerificationNotActive
		}

		v.Status = models.VerificationRejected
		v.RejectionReason = reason
		v.ReviewedAt = &now
		if err := tx.Model(&models.AgentVerification{ID: v.ID}).Updates(map[string]interface{}{
			"status":           v.Status,
			"rejection_reason": reason,
			"reviewed_at":      now,
		}).Error; err != nil {
			return fmt.Errorf("failed to reject verification: %w", err)
		}
		return setAgentVerified(tx, v.AgentID, false)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"verification_id": v.ID,
		"agent_id":        v.AgentID,
		"reason":          reason,
	}).Info("Agent verification rejected")
	return v, nil
}

// Pending lists submissions awaiting review, oldest first.
func (s *Service) Pending(ctx context.Context) ([]models.AgentVerification, error) {
	var out []models.AgentVerification
	err := s.db.WithContext(ctx).
		Where("status = ?", models.VerificationPending).
		Order("submitted_at, id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return out, nil
}

// ForAgent returns the agent's submission, if any.
func (s *Service) ForAgent(ctx context.Context, agentID uint) (*models.AgentVerification, error) {
	var v models.AgentVerification
	if err := s.db.WithContext(ctx).Where("agent_id = ?", agentID).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to load verification: %w", err)
	}
	return &v, nil
}

// CountPending counts submissions awaiting review.
func CountPending(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&models.AgentVerification{}).Where("status = ?", models.VerificationPending).Count(&n).Error
	return n, err
}

func setAgentVerified(tx *gorm.DB, agentID uint, verified bool) error {
	agent, err := account.LoadForUpdate(tx, agentID)
	if err != nil {
		return err
	}
	if err := tx.Model(&models.Account{ID: agent.ID}).Update("is_verified", verified).Error; err != nil {
		return fmt.Errorf("failed to update agent verification: %w", err)
	}
	return nil
}

func loadForUpdate(tx *gorm.DB, id uint) (*models.AgentVerification, error) {
	var v models.AgentVerification
	if err := database.ForUpdate(tx).First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to load verification %d: %w", id, err)
	}
	return &v, nil
}

func (d Documents) validate() error {
	for _, raw := range []string{d.ValidID, d.CACCertificate, d.ProofOfLocation, d.PropertyOwnershipDoc} {
		u, err := url.ParseRequestURI(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperror.ErrInvalidDocument
		}
	}
	return nil
}
