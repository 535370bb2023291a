package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/database"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
)

// Rate is the agent's percentage of a paid booking.
const Rate = 10

// Wallet is an agent's derived balance and the commissions behind it
type Wallet struct {
	AgentID     uint                `json:"agent_id"`
	Balance     decimal.Decimal     `json:"balance"`
	Commissions []models.Commission `json:"commissions"`
}

// Service manages commissions and withdrawals
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	Now    func() time.Time
}

// NewService creates a new commission service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// AccrueTx creates the commission for a booking that just became paid.
func AccrueTx(tx *gorm.DB, b *models.Booking, agentID uint) (*models.Commission, error) {
	c := &models.Commission{
		AgentID:   agentID,
		BookingID: b.ID,
		Amount:    ledger.Percent(b.TotalPrice, Rate),
		Status:    models.CommissionAccrued,
	}
	if err := tx.Create(c).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("commission for booking %d already exists: %w", b.ID, err)
		}
		return nil, fmt.Errorf("failed to create commission: %w", err)
	}
	return c, nil
}

// RequestWithdrawal moves an accrued commission owned by agentID to
// withdrawal_requested.
func (s *Service) RequestWithdrawal(ctx context.Context, commissionID, agentID uint) (*models.Commission, error) {
	var c *models.Commission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = loadForUpdate(tx, commissionID)
		if err != nil {
			return err
		}
		if c.AgentID != agentID {
			return apperror.ErrNotOwner
		}
		switch c.Status {
		case models.CommissionWithdrawn:
			return apperror.ErrAlreadyWithdrawn
		case models.CommissionWithdrawalRequested:
			return apperror.ErrWithdrawalAlreadyRequested
		}

		now := s.Now()
		c.Status = models.CommissionWithdrawalRequested
		c.RequestedAt = &now
		return tx.Model(c).Updates(map[string]interface{}{
			"status":       c.Status,
			"requested_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"commission_id": c.ID, "agent_id": agentID}).Info("Withdrawal requested")
	return c, nil
}

// ApproveWithdrawal marks a requested withdrawal as paid out.
func (s *Service) ApproveWithdrawal(ctx context.Context, commissionID uint) (*models.Commission, error) {
	var c *models.Commission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = loadForUpdate(tx, commissionID)
		if err != nil {
			return err
		}
		switch c.Status {
		case models.CommissionWithdrawn:
			return apperror.ErrAlreadyWithdrawn
		case models.CommissionAccrued:
			return apperror.ErrWithdrawalNotRequested
		}

		now := s.Now()
		c.Status = models.CommissionWithdrawn
		c.WithdrawnAt = &now
		return tx.Model(c).Updates(map[string]interface{}{
			"status":       c.Status,
			"withdrawn_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"commission_id": c.ID,
		"agent_id":      c.AgentID,
		"amount":        c.Amount.StringFixed(2),
	}).Info("Withdrawal approved")
	return c, nil
}

// Wallet sums an agent's commissions that have not been withdrawn.
func (s *Service) Wallet(ctx context.Context, agentID uint) (*Wallet, error) {
	db := s.db.WithContext(ctx)
	agent, err := account.Load(db, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Role != models.RoleAgent {
		return nil, apperror.ErrNoWallet
	}

	var commissions []models.Commission
	err = db.Where("agent_id = ? AND status <> ?", agentID, models.CommissionWithdrawn).
		Order("created_at DESC, id DESC").
		Find(&commissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load commissions: %w", err)
	}

	return &Wallet{
		AgentID:     agentID,
		Balance:     Balance(commissions),
		Commissions: commissions,
	}, nil
}

// PendingWithdrawals lists every commission awaiting payout, oldest first.
func (s *Service) PendingWithdrawals(ctx context.Context) ([]models.Commission, error) {
	var commissions []models.Commission
	err := s.db.WithContext(ctx).
		Where("status = ?", models.CommissionWithdrawalRequested).
		Order("requested_at ASC, id ASC").
		Find(&commissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending withdrawals: %w", err)
	}
	return commissions, nil
}

// Balance is the sum of commissions that have not been withdrawn.
func Balance(commissions []models.Commission) decimal.Decimal {
	total := decimal.Zero
	for _, c := range commissions {
		if c.Status != models.CommissionWithdrawn {
			total = total.Add(c.Amount)
		}
	}
	return total
}

func loadForUpdate(tx *gorm.DB, id uint) (*models.Commission, error) {
	var c models.Commission
	if err := database.ForUpdate(tx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrCommissionNotFound
		}
		return nil, fmt.Errorf("failed to load commission %d: %w", id, err)
	}
	return &c, nil
}
