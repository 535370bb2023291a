package refund

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
)

// Service records refunds owed to accounts
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new refund service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// LogTx appends a refund entry inside tx.
func LogTx(tx *gorm.DB, accountID uint, amount decimal.Decimal, reason string, bookingID *uint) (*models.RefundLog, error) {
	entry := &models.RefundLog{
		AccountID: accountID,
		BookingID: bookingID,
		Amount:    ledger.Round(amount),
		Reason:    reason,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to log refund: %w", err)
	}
	return entry, nil
}

// Issue records a manual refund by an admin.
func (s *Service) Issue(ctx context.Context, adminID, accountID uint, amount decimal.Decimal, reason string) (*models.RefundLog, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.ErrMissingReason
	}
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount
	}

	var entry *models.RefundLog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin, err := account.Load(tx, adminID)
		if err != nil {
			return err
		}
		if !admin.IsAdmin() {
			return apperror.ErrForbidden.Withf("only admins can issue refunds")
		}
		if _, err := account.Load(tx, accountID); err != nil {
			return err
		}
		entry, err = LogTx(tx, accountID, amount, reason, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     entry.Amount.StringFixed(2),
		"admin_id":   adminID,
	}).Info("Refund issued")
	return entry, nil
}

// List returns refunds newest first. A zero accountID lists every refund.
func (s *Service) List(ctx context.Context, accountID uint) ([]models.RefundLog, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if accountID != 0 {
		q = q.Where("account_id = ?", accountID)
	}
	var logs []models.RefundLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	return logs, nil
}
