package investment

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
	"proptx/server/internal/listing"
	"proptx/server/internal/models"
)

const (
	// InstallmentDownPercent is the share paid up front on an installment plan.
	InstallmentDownPercent = 60
)

// InstallmentCredit is the shortlet credit granted with an installment plan.
var InstallmentCredit = ledger.MustMoney("5000000")

// Service manages investments and ROI payouts
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	Now    func() time.Time
}

// NewService creates a new investment service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create opens an investment in an approved listing. A full plan completes
// immediately with a Platinum membership; an installment plan pays the
// down payment, grants Gold and sets the investor's shortlet credit.
func (s *Service) Create(ctx context.Context, investorID, listingID uint, plan string) (*models.Investment, error) {
	var inv *models.Investment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		investor, err := account.LoadForUpdate(tx, investorID)
		if err != nil {
			return err
		}
		if investor.Role != models.RoleInvestor {
			return apperror.ErrNotInvestor
		}
		l, err := listing.Load(tx, listingID)
		if err != nil {
			return err
		}
		if !l.IsApproved {
			return apperror.ErrListingNotApproved
		}
		if !l.HasCostPrice() {
			return apperror.ErrMissingCostPrice
		}
		p, ok := models.ParsePlan(plan)
		if !ok {
			return apperror.ErrInvalidPlan.Withf("invalid payment plan %q", plan)
		}

		var existing int64
		if err := tx.Model(&models.Investment{}).
			Where("investor_id = ? AND listing_id = ?", investorID, listingID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing investment: %w", err)
		}
		if existing > 0 {
			return apperror.ErrDuplicateInvestment
		}

		now := s.Now()
		total := l.CostPrice.Decimal
		inv = &models.Investment{
			InvestorID: investorID,
			ListingID:  listingID,
			Plan:       p,
			TotalPrice: total,
			Status:     models.InvestmentActive,
			TxRef:      ledger.NewReference(ledger.InvestmentReference),
			StartedAt:  now,
		}

		switch p {
		case models.PlanFull:
			inv.AmountPaid = total
			inv.RemainingBalance = decimal.Zero
			inv.Status = models.InvestmentCompleted
			inv.CompletedAt = &now
			if err := account.GrantMembershipTx(tx, investor, models.TierPlatinum, now); err != nil {
				return err
			}
		case models.PlanInstallment:
			inv.AmountPaid, inv.RemainingBalance = ledger.Split(total, InstallmentDownPercent)
			if err := account.GrantMembershipTx(tx, investor, models.TierGold, now); err != nil {
				return err
			}
			if err := account.SetCreditTx(tx, investor, InstallmentCredit); err != nil {
				return err
			}
		}

		if err := tx.Create(inv).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.ErrDuplicateInvestment
			}
			return fmt.Errorf("failed to create investment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"investment_id": inv.ID,
		"investor_id":   investorID,
		"listing_id":    listingID,
		"plan":          inv.Plan,
		"tx_ref":        inv.TxRef,
	}).Info("Investment created")
	return inv, nil
}

// TopUp pays amount towards an active investment. Paying off the balance
// completes the investment, upgrades the investor to Platinum and clears
// their shortlet credit.
func (s *Service) TopUp(ctx context.Context, investmentID, investorID uint, amount decimal.Decimal) (*models.Investment, error) {
	amount = ledger.Round(amount)

	var inv *models.Investment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = LoadForUpdate(tx, investmentID)
		if err != nil {
			return err
		}
		if inv.InvestorID != investorID {
			return apperror.ErrNotOwner
		}
		if !amount.IsPositive() {
			return apperror.ErrInvalidAmount
		}
		if inv.Status == models.InvestmentCompleted {
			return apperror.ErrAlreadyCompleted
		}
		if amount.GreaterThan(inv.RemainingBalance) {
			return apperror.ErrAmountExceedsBalance
		}

		inv.AmountPaid = inv.AmountPaid.Add(amount)
		inv.RemainingBalance = inv.RemainingBalance.Sub(amount)
		updates := map[string]interface{}{
			"amount_paid":       inv.AmountPaid,
			"remaining_balance": inv.RemainingBalance,
		}

		if inv.RemainingBalance.IsZero() {
			now := s.Now()
			inv.Status = models.InvestmentCompleted
			inv.CompletedAt = &now
			updates["status"] = inv.Status
			updates["completed_at"] = now

			investor, err := account.LoadForUpdate(tx, investorID)
			if err != nil {
				return err
			}
			if err := account.GrantMembershipTx(tx, investor, models.TierPlatinum, now); err != nil {
				return err
			}
			if err := account.SetCreditTx(tx, investor, decimal.Zero); err != nil {
				return err
			}
		}
		return tx.Model(&models.Investment{ID: inv.ID}).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"investment_id": inv.ID,
		"amount":        amount.StringFixed(2),
		"remaining":     inv.RemainingBalance.StringFixed(2),
		"status":        inv.Status,
	}).Info("Investment topped up")
	return inv, nil
}

// SettleTx completes a locked investment from an external payment
// confirmation: the balance is paid in full and the investor becomes a
// verified Platinum member. It reports false when already completed.
func SettleTx(tx *gorm.DB, inv *models.Investment, now time.Time) (bool, error) {
	if inv.Status == models.InvestmentCompleted {
		return false, nil
	}

	inv.AmountPaid = inv.TotalPrice
	inv.RemainingBalance = decimal.Zero
	inv.Status = models.InvestmentCompleted
	inv.CompletedAt = &now
	if err := tx.Model(&models.Investment{ID: inv.ID}).Updates(map[string]interface{}{
		"amount_paid":       inv.AmountPaid,
		"remaining_balance": inv.RemainingBalance,
		"status":            inv.Status,
		"completed_at":      now,
	}).Error; err != nil {
		return false, fmt.Errorf("failed to settle investment: %w", err)
	}

	investor, err := account.LoadForUpdate(tx, inv.InvestorID)
	if err != nil {
		return false, err
	}
	if err := account.GrantMembershipTx(tx, investor, models.TierPlatinum, now); err != nil {
		return false, err
	}
	if err := tx.Model(investor).Update("is_verified", true).Error; err != nil {
		return false, err
	}
	return true, nil
}

// RecordROI appends a payout to an investment.
func (s *Service) RecordROI(ctx context.Context, investmentID uint, amount decimal.Decimal, paidOn time.Time, note string) (*models.InvestmentROI, error) {
	amount = ledger.Round(amount)
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount
	}
	if paidOn.IsZero() {
		paidOn = s.Now()
	}

	roi := &models.InvestmentROI{
		InvestmentID: investmentID,
		Amount:       amount,
		DatePaid:     ledger.Date(paidOn),
		Note:         note,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := Load(tx, investmentID); err != nil {
			return err
		}
		return tx.Create(roi).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"investment_id": investmentID,
		"amount":        amount.StringFixed(2),
	}).Info("ROI recorded")
	return roi, nil
}

// ListROI returns payouts newest first. A zero investorID lists every
// payout.
func (s *Service) ListROI(ctx context.Context, investorID uint) ([]models.InvestmentROI, error) {
	q := s.db.WithContext(ctx).Model(&models.InvestmentROI{})
	if investorID != 0 {
		q = q.Joins("JOIN investments ON investments.id = investment_rois.investment_id").
			Where("investments.investor_id = ?", investorID)
	}
	var rois []models.InvestmentROI
	if err := q.Order("investment_rois.date_paid DESC, investment_rois.id DESC").Find(&rois).Error; err != nil {
		return nil, fmt.Errorf("failed to list ROI: %w", err)
	}
	return rois, nil
}

// ListForInvestor returns an investor's investments.
func (s *Service) ListForInvestor(ctx context.Context, investorID uint) ([]models.Investment, error) {
	var investments []models.Investment
	err := s.db.WithContext(ctx).
		Where("investor_id = ?", investorID).
		Order("started_at DESC, id DESC").
		Find(&investments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	return investments, nil
}

// Load fetches an investment.
func Load(tx *gorm.DB, id uint) (*models.Investment, error) {
	var inv models.Investment
	if err := tx.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("failed to load investment %d: %w", id, err)
	}
	return &inv, nil
}

// LoadForUpdate fetches and locks an investment inside tx.
func LoadForUpdate(tx *gorm.DB, id uint) (*models.Investment, error) {
	return Load(database.ForUpdate(tx), id)
}

// FindByTxRefForUpdate locks the investment carrying txRef, or returns nil.
func FindByTxRefForUpdate(tx *gorm.DB, txRef string) (*models.Investment, error) {
	var inv models.Investment
	err := database.ForUpdate(tx).Where("tx_ref = ?", txRef).Limit(1).Find(&inv).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up investment by reference: %w", err)
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}
