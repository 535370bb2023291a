package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/apperror"
	"proptx/server/internal/database"
	"proptx/server/internal/models"
)

// MembershipTerm is the length of a granted membership.
const MembershipTerm = 365 * 24 * time.Hour

// Service manages accounts, roles and memberships
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	Now    func() time.Time
}

// NewService creates a new account service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// SwitchResult describes the outcome of a role switch
type SwitchResult struct {
	Account                *models.Account
	Changed                bool
	ReverificationRequired bool
}

// Create registers a new account with the given role.
func (s *Service) Create(ctx context.Context, email, fullName string, role models.Role) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.ErrInvalidEmail
	}
	if _, ok := models.ParseRole(string(role)); !ok {
		return nil, apperror.ErrInvalidRole
	}

	acc := &models.Account{
		Email:          email,
		FullName:       fullName,
		Role:           role,
		ShortletCredit: decimal.Zero,
	}
	if err := s.db.WithContext(ctx).Create(acc).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"account_id": acc.ID, "role": acc.Role}).Info("Account created")
	return acc, nil
}

// Get loads an account by ID.
func (s *Service) Get(ctx context.Context, id uint) (*models.Account, error) {
	return Load(s.db.WithContext(ctx), id)
}

// FindByEmail returns the account registered under email, or nil.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return FindByEmail(s.db.WithContext(ctx), email)
}

// SwitchRole moves an account to a new role. Leaving a verified Agent or
// Investor role records that history, and every switch clears verification.
func (s *Service) SwitchRole(ctx context.Context, id uint, role models.Role) (*SwitchResult, error) {
	if role != models.RoleCustomer && role != models.RoleAgent && role != models.RoleInvestor {
		return nil, apperror.ErrInvalidRole.Withf("cannot switch to role %q", role)
	}

	var result SwitchResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := LoadForUpdate(tx, id)
		if err != nil {
			return err
		}
		result.Account = acc
		if acc.Role == role {
			return nil
		}
		if acc.Role == models.RoleAdmin {
			return apperror.ErrForbidden.Withf("admins cannot switch role")
		}

		if acc.IsVerified {
			switch acc.Role {
			case models.RoleAgent:
				acc.WasVerifiedAsAgent = true
			case models.RoleInvestor:
				acc.WasVerifiedAsInvestor = true
			}
		}

		acc.IsVerified = false
		result.ReverificationRequired = role == models.RoleAgent || role == models.RoleInvestor
		acc.Role = role
		result.Changed = true

		return tx.Model(acc).Updates(map[string]interface{}{
			"role":                     acc.Role,
			"is_verified":              acc.IsVerified,
			"was_verified_as_agent":    acc.WasVerifiedAsAgent,
			"was_verified_as_investor": acc.WasVerifiedAsInvestor,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.logger.WithFields(logrus.Fields{
			"account_id":              id,
			"role":                    role,
			"reverification_required": result.ReverificationRequired,
		}).Info("Account switched role")
	}
	return &result, nil
}

// PromoteToAdmin gives an account the Admin role and staff access.
func (s *Service) PromoteToAdmin(ctx context.Context, id uint) (*models.Account, error) {
	var acc *models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		acc, err = LoadForUpdate(tx, id)
		if err != nil {
			return err
		}
		acc.Role = models.RoleAdmin
		acc.IsStaff = true
		acc.IsVerified = true
		return tx.Model(acc).Updates(map[string]interface{}{
			"role": acc.Role, "is_staff": true, "is_verified": true,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("account_id", id).Info("Account promoted to admin")
	return acc, nil
}

// Verify marks an account as verified in its current role.
func (s *Service) Verify(ctx context.Context, id uint) (*models.Account, error) {
	var acc *models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		acc, err = LoadForUpdate(tx, id)
		if err != nil {
			return err
		}
		acc.IsVerified = true
		return tx.Model(acc).Update("is_verified", true).Error
	})
	return acc, err
}

// HasActiveMembership reports whether acc holds a membership that has not
// expired at now.
func HasActiveMembership(acc *models.Account, now time.Time) bool {
	if acc.MembershipTier == models.TierNone || acc.MembershipExpiresAt == nil {
		return false
	}
	return !acc.MembershipExpiresAt.Before(now)
}

// GrantMembershipTx sets the tier of acc and starts a fresh term at now.
func GrantMembershipTx(tx *gorm.DB, acc *models.Account, tier models.MembershipTier, now time.Time) error {
	expires := now.Add(MembershipTerm)
	acc.MembershipTier = tier
	acc.MembershipExpiresAt = &expires
	return tx.Model(acc).Updates(map[string]interface{}{
		"membership_tier":       tier,
		"membership_expires_at": expires,
	}).Error
}

// SetCreditTx overwrites the shortlet credit of acc.
func SetCreditTx(tx *gorm.DB, acc *models.Account, credit decimal.Decimal) error {
	acc.ShortletCredit = credit
	return tx.Model(acc).Update("shortlet_credit", credit).Error
}

// Load fetches an account.
func Load(tx *gorm.DB, id uint) (*models.Account, error) {
	var acc models.Account
	if err := tx.First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	return &acc, nil
}

// LoadForUpdate fetches and locks an account inside tx.
func LoadForUpdate(tx *gorm.DB, id uint) (*models.Account, error) {
	return Load(database.ForUpdate(tx), id)
}

// FindByEmail returns the account registered under email, or nil when no
// account exists.
func FindByEmail(tx *gorm.DB, email string) (*models.Account, error) {
	var acc models.Account
	err := tx.Where("email = ?", models.NormalizeEmail(email)).Limit(1).Find(&acc).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	}
	if acc.ID == 0 {
		return nil, nil
	}
	return &acc, nil
}
