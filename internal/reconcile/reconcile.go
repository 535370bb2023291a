package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/apperror"
	"proptx/server/internal/booking"
	"proptx/server/internal/investment"
	"proptx/server/internal/models"
	"proptx/server/internal/payment"
)

// Result names what a settlement did
type Result string

const (
	ResultBookingPaid         Result = "booking_paid"
	ResultInvestmentCompleted Result = "investment_completed"
	ResultAlreadySettled      Result = "already_settled"
	ResultNotFound            Result = "not_found"
	ResultIgnored             Result = "ignored"
)

// Outcome is reported identically by the verify call and the webhook
type Outcome struct {
	Result       Result `json:"result"`
	TxRef        string `json:"tx_ref"`
	BookingID    uint   `json:"booking_id,omitempty"`
	InvestmentID uint   `json:"investment_id,omitempty"`
}

// Due is the amount still owed under a transaction reference
type Due struct {
	TxRef  string          `json:"tx_ref"`
	Amount decimal.Decimal `json:"amount"`
}

// Verifier fetches a settlement from the payment provider.
type Verifier interface {
	Verify(ctx context.Context, transactionID string) (*payment.Settlement, error)
}

// Service applies provider settlements to bookings and investments
type Service struct {
	db       *gorm.DB
	verifier Verifier
	logger   *logrus.Logger
	Now      func() time.Time
}

// NewService creates a new reconciliation service
func NewService(db *gorm.DB, verifier Verifier, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		verifier: verifier,
		logger:   logger,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Apply settles the booking or investment named by s.TxRef. Applying a
// settlement twice leaves the second call with ResultAlreadySettled.
func (s *Service) Apply(ctx context.Context, st payment.Settlement) (*Outcome, error) {
	out := &Outcome{TxRef: st.TxRef}
	if !st.Successful() || st.TxRef == "" {
		out.Result = ResultIgnored
		return out, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.Now()

		b, err := booking.FindByTxRefForUpdate(tx, st.TxRef)
		if err != nil {
			return err
		}
		if b != nil {
			out.BookingID = b.ID
			s.warnOnShortfall(st, b.TotalPrice)
			switch {
			case b.Status.Paid():
				out.Result = ResultAlreadySettled
				return nil
			case b.Status == models.BookingCancelled:
				out.Result = ResultIgnored
				s.logger.WithField("tx_ref", st.TxRef).Warn("Settlement received for a cancelled booking")
				return nil
			}
			if _, err := booking.MarkPaidTx(tx, b, now); err != nil {
				return err
			}
			out.Result = ResultBookingPaid
			return nil
		}

		inv, err := investment.FindByTxRefForUpdate(tx, st.TxRef)
		if err != nil {
			return err
		}
		if inv == nil {
			out.Result = ResultNotFound
			return nil
		}
		out.InvestmentID = inv.ID
		s.warnOnShortfall(st, inv.RemainingBalance)
		settled, err := investment.SettleTx(tx, inv, now)
		if err != nil {
			return err
		}
		if settled {
			out.Result = ResultInvestmentCompleted
		} else {
			out.Result = ResultAlreadySettled
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile %s: %w", st.TxRef, err)
	}

	s.logger.WithFields(logrus.Fields{
		"tx_ref":        st.TxRef,
		"result":        out.Result,
		"booking_id":    out.BookingID,
		"investment_id": out.InvestmentID,
	}).Info("Settlement reconciled")
	return out, nil
}

// VerifyAndApply asks the provider for a transaction and applies it.
func (s *Service) VerifyAndApply(ctx context.Context, transactionID string) (*Outcome, error) {
	st, err := s.verifier.Verify(ctx, transactionID)
	if err != nil {
		if errors.Is(err, payment.ErrProviderRejected) {
			return nil, apperror.ErrPaymentNotVerified
		}
		return nil, err
	}
	if !st.Successful() {
		return nil, apperror.ErrPaymentNotVerified.Withf("payment status is %q", st.Status)
	}
	return s.Apply(ctx, *st)
}

// AmountDue reports what accountID still owes under txRef.
func (s *Service) AmountDue(ctx context.Context, accountID uint, txRef string) (*Due, error) {
	db := s.db.WithContext(ctx)

	var b models.Booking
	if err := db.Where("tx_ref = ?", txRef).Limit(1).Find(&b).Error; err != nil {
		return nil, err
	}
	if b.ID != 0 {
		if b.AccountID != accountID {
			return nil, apperror.ErrNotOwner
		}
		if b.Status != models.BookingPending {
			return nil, apperror.ErrAlreadySettled
		}
		return &Due{TxRef: txRef, Amount: b.TotalPrice}, nil
	}

	var inv models.Investment
	if err := db.Where("tx_ref = ?", txRef).Limit(1).Find(&inv).Error; err != nil {
		return nil, err
	}
	if inv.ID == 0 || inv.InvestorID != accountID {
		return nil, apperror.ErrNotOwner
	}
	if inv.Status == models.InvestmentCompleted {
		return nil, apperror.ErrAlreadySettled
	}
	return &Due{TxRef: txRef, Amount: inv.RemainingBalance}, nil
}

func (s *Service) warnOnShortfall(st payment.Settlement, due decimal.Decimal) {
	if st.Amount.IsPositive() && st.Amount.LessThan(due) {
		s.logger.WithFields(logrus.Fields{
			"tx_ref": st.TxRef,
			"amount": st.Amount.StringFixed(2),
			"due":    due.StringFixed(2),
		}).Warn("Settlement amount is below the amount due")
	}
}
