package booking

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
	"proptx/server/internal/commission"
	"proptx/server/internal/database"
	"proptx/server/internal/ledger"
	"proptx/server/internal/listing"
	"proptx/server/internal/models"
	"proptx/server/internal/refund"
)

// Service books short-let stays against shortlet credit
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	Now    func() time.Time
}

// NewService creates a new booking service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create books an approved shortlet listing for accountID, debits the
// total from the account's credit and marks the booking paid, all in one
// transaction.
func (s *Service) Create(ctx context.Context, accountID, listingID uint, r ledger.DateRange) (*models.Booking, error) {
	var b *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := listing.LoadForUpdate(tx, listingID)
		if err != nil {
			return err
		}
		if !l.IsApproved || l.Type != models.ListingShortlet {
			return apperror.ErrListingUnavailable
		}

		conflict, err := hasOverlap(tx, l.ID, r)
		if err != nil {
			return err
		}
		if conflict {
			return apperror.ErrDateConflict.Withf("dates %s overlap an existing booking", r)
		}

		nights := r.Nights()
		if nights <= 0 {
			return apperror.ErrInvalidRange
		}
		total := ledger.Round(l.Price.Mul(decimal.NewFromInt(int64(nights))))

		acc, err := account.LoadForUpdate(tx, accountID)
		if err != nil {
			return err
		}
		if acc.ShortletCredit.LessThan(total) {
			return apperror.ErrInsufficientCredit
		}
		if err := account.SetCreditTx(tx, acc, acc.ShortletCredit.Sub(total)); err != nil {
			return fmt.Errorf("failed to debit credit: %w", err)
		}

		slot := models.BookingSlot(l.ID, r)
		b = &models.Booking{
			AccountID:  acc.ID,
			ListingID:  l.ID,
			StartDate:  r.Start,
			EndDate:    r.End,
			TotalPrice: total,
			Status:     models.BookingPending,
			ActiveSlot: &slot,
			TxRef:      ledger.NewReference(ledger.BookingReference),
		}
		if err := tx.Create(b).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.ErrDateConflict
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}
		b.Listing = l

		_, err = MarkPaidTx(tx, b, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"listing_id": listingID,
		"account_id": accountID,
		"range":      r.String(),
		"total":      b.TotalPrice.StringFixed(2),
	}).Info("Booking created")
	return b, nil
}

// MarkPaid records payment for a booking. Marking a paid booking again
// changes nothing and returns its current state.
func (s *Service) MarkPaid(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var (
		b       *models.Booking
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = LoadForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		changed, err = MarkPaidTx(tx, b, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.WithField("booking_id", bookingID).Info("Booking marked paid")
	}
	return b, nil
}

// MarkPaidTx moves a locked booking to paid and accrues the agent's
// commission. It reports false when the booking was already paid.
func MarkPaidTx(tx *gorm.DB, b *models.Booking, now time.Time) (bool, error) {
	switch b.Status {
	case models.BookingPaid, models.BookingRefunded:
		return false, nil
	case models.BookingCancelled:
		return false, apperror.ErrAlreadyCancelled
	}

	if b.Listing == nil {
		l, err := listing.Load(tx, b.ListingID)
		if err != nil {
			return false, err
		}
		b.Listing = l
	}

	b.Status = models.BookingPaid
	b.PaidAt = &now
	if err := tx.Model(&models.Booking{ID: b.ID}).Updates(map[string]interface{}{
		"status":  b.Status,
		"paid_at": now,
	}).Error; err != nil {
		return false, fmt.Errorf("failed to mark booking paid: %w", err)
	}

	if _, err := commission.AccrueTx(tx, b, b.Listing.AgentID); err != nil {
		return false, err
	}
	return true, nil
}

// Cancel cancels the actor's own booking before its start date. A paid
// booking is refunded in the same transaction.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID uint) (*models.Booking, error) {
	now := s.Now()
	b, err := s.cancel(ctx, bookingID, func(b *models.Booking) (string, error) {
		if b.AccountID != actorID {
			return "", apperror.ErrBookingNotFound
		}
		if !b.Status.Active() {
			return "", apperror.ErrAlreadyCancelled
		}
		if !ledger.Date(now).Before(ledger.Date(b.StartDate)) {
			return "", apperror.ErrBookingStarted
		}
		return fmt.Sprintf("Cancelled short-let booking for '%s'", b.Listing.Title), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"booking_id": bookingID, "account_id": actorID}).Info("Booking cancelled")
	return b, nil
}

// AdminCancel cancels any active booking regardless of its start date.
func (s *Service) AdminCancel(ctx context.Context, bookingID uint) (*models.Booking, error) {
	b, err := s.cancel(ctx, bookingID, func(b *models.Booking) (string, error) {
		if !b.Status.Active() {
			return "", apperror.ErrAlreadyCancelled
		}
		return fmt.Sprintf("Admin cancelled booking for '%s'", b.Listing.Title), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("booking_id", bookingID).Info("Booking cancelled by admin")
	return b, nil
}

// Get loads a booking visible to the viewer.
func (s *Service) Get(ctx context.Context, viewer *models.Account, bookingID uint) (*models.Booking, error) {
	b, err := Load(s.db.WithContext(ctx), bookingID)
	if err != nil {
		return nil, err
	}
	if b.AccountID != viewer.ID && !viewer.IsAdmin() {
		return nil, apperror.ErrBookingNotFound
	}
	return b, nil
}

// ListForAccount returns an account's bookings newest first.
func (s *Service) ListForAccount(ctx context.Context, accountID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// check validates a cancellation and returns the refund reason.
type check func(b *models.Booking) (string, error)

func (s *Service) cancel(ctx context.Context, bookingID uint, allow check) (*models.Booking, error) {
	var b *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = LoadForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Listing, err = listing.Load(tx, b.ListingID); err != nil {
			return err
		}

		reason, err := allow(b)
		if err != nil {
			return err
		}

		wasPaid := b.Status == models.BookingPaid
		now := s.Now()
		b.Status = models.BookingCancelled
		if wasPaid {
			b.Status = models.BookingRefunded
		}
		b.ActiveSlot = nil
		b.CancelledAt = &now
		if err := tx.Model(&models.Booking{ID: b.ID}).Updates(map[string]interface{}{
			"status":       b.Status,
			"active_slot":  nil,
			"cancelled_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		if wasPaid {
			if _, err := refund.LogTx(tx, b.AccountID, b.TotalPrice, reason, &b.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func hasOverlap(tx *gorm.DB, listingID uint, r ledger.DateRange) (bool, error) {
	var count int64
	err := tx.Model(&models.Booking{}).
		Where("listing_id = ? AND status IN ?", listingID, []models.BookingStatus{models.BookingPending, models.BookingPaid}).
		Where("start_date < ? AND end_date > ?", r.End, r.Start).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return count > 0, nil
}

// Load fetches a booking.
func Load(tx *gorm.DB, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := tx.First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking %d: %w", id, err)
	}
	return &b, nil
}

// LoadForUpdate fetches and locks a booking inside tx.
func LoadForUpdate(tx *gorm.DB, id uint) (*models.Booking, error) {
	return Load(database.ForUpdate(tx), id)
}

// FindByTxRefForUpdate locks the booking carrying txRef, or returns nil.
func FindByTxRefForUpdate(tx *gorm.DB, txRef string) (*models.Booking, error) {
	var b models.Booking
	err := database.ForUpdate(tx).Where("tx_ref = ?", txRef).Limit(1).Find(&b).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking by reference: %w", err)
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}
