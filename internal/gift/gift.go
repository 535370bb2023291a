package gift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/database"
	"proptx/server/internal/listing"
	"proptx/server/internal/models"
)

// ExpiryWindow is how long a shortlet gift stays claimable.
const ExpiryWindow = 7 * 24 * time.Hour

// Action is a recipient's decision on a pending gift
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
)

// ExpiryResult counts the gifts touched by one expiry sweep
type ExpiryResult struct {
	Expired   int `json:"expired"`
	Converted int `json:"converted"`
	Failed    int `json:"failed"`
}

// Service manages property gifts between accounts
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	Now    func() time.Time
}

// NewService creates a new gift service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create sends an approved listing to recipientEmail. The recipient is
// linked when an account already uses that email.
func (s *Service) Create(ctx context.Context, senderID, listingID uint, recipientEmail, message string) (*models.Gift, error) {
	email := models.NormalizeEmail(recipientEmail)
	if email == "" {
		return nil, apperror.ErrInvalidEmail
	}

	var g *models.Gift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := account.Load(tx, senderID); err != nil {
			return err
		}
		l, err := listing.Load(tx, listingID)
		if err != nil {
			return err
		}
		if !l.IsApproved {
			return apperror.ErrListingNotApproved
		}
		recipient, err := account.FindByEmail(tx, email)
		if err != nil {
			return err
		}

		g = &models.Gift{
			SenderID:       senderID,
			RecipientEmail: email,
			ListingID:      l.ID,
			Message:        message,
			Status:         models.GiftPending,
		}
		if recipient != nil {
			g.RecipientUserID = &recipient.ID
		}
		if l.Type == models.ListingShortlet {
			expires := s.Now().Add(ExpiryWindow)
			g.ExpiresAt = &expires
		}
		return tx.Create(g).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"gift_id":    g.ID,
		"sender_id":  senderID,
		"listing_id": listingID,
	}).Info("Gift sent")
	return g, nil
}

// Decide accepts or declines a pending gift addressed to actorID.
func (s *Service) Decide(ctx context.Context, giftID, actorID uint, action Action) (*models.Gift, error) {
	var g *models.Gift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		g, err = loadForUpdate(tx, giftID)
		if err != nil {
			return err
		}
		if g.Status != models.GiftPending || g.RecipientUserID == nil || *g.RecipientUserID != actorID {
			return apperror.ErrGiftNotFound
		}

		switch action {
		case ActionAccept:
			g.Status = models.GiftAccepted
		case ActionDecline:
			g.Status = models.GiftDeclined
		default:
			return apperror.ErrInvalidAction.Withf("invalid action %q", action)
		}
		return tx.Model(&models.Gift{ID: g.ID}).Update("status", g.Status).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"gift_id": giftID, "status": g.Status}).Info("Gift decided")
	return g, nil
}

// Reassign points a pending gift at a new recipient. A gift can be
// reassigned once.
func (s *Service) Reassign(ctx context.Context, giftID, senderID uint, newEmail string) (*models.Gift, error) {
	email := models.NormalizeEmail(newEmail)
	if email == "" {
		return nil, apperror.ErrInvalidEmail
	}

	var g *models.Gift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		g, err = loadForUpdate(tx, giftID)
		if err != nil {
			return err
		}
		if g.SenderID != senderID || g.Status != models.GiftPending {
			return apperror.ErrGiftNotFound
		}
		if g.Reassigned() {
			return apperror.ErrAlreadyReassigned
		}

		recipient, err := account.FindByEmail(tx, email)
		if err != nil {
			return err
		}
		now := s.Now()
		g.RecipientEmail = email
		g.RecipientUserID = nil
		g.ReassignedToID = nil
		if recipient != nil {
			g.RecipientUserID = &recipient.ID
			g.ReassignedToID = &recipient.ID
		}
		g.ReassignedAt = &now

		return tx.Model(&models.Gift{ID: g.ID}).Updates(map[string]interface{}{
			"recipient_email":   g.RecipientEmail,
			"recipient_user_id": g.RecipientUserID,
			"reassigned_to_id":  g.ReassignedToID,
			"reassigned_at":     now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"gift_id": giftID, "sender_id": senderID}).Info("Gift reassigned")
	return g, nil
}

// ExpireOldGifts expires pending shortlet gifts whose window closed before
// now. A gift that was never reassigned is converted into shortlet credit
// for its sender, worth the listing price. Each gift settles in its own
// transaction, and a gift already handled is skipped, so sweeps may
// overlap or repeat. A gift that fails is logged and counted in Failed and
// the sweep moves on; the next sweep picks it up again.
func (s *Service) ExpireOldGifts(ctx context.Context, now time.Time) (ExpiryResult, error) {
	var result ExpiryResult

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Gift{}).
		Joins("JOIN listings ON listings.id = gifts.listing_id").
		Where("listings.type = ? AND gifts.status = ? AND gifts.expires_at < ?",
			models.ListingShortlet, models.GiftPending, now).
		Order("gifts.id").
		Pluck("gifts.id", &ids).Error
	if err != nil {
		return result, fmt.Errorf("failed to select expired gifts: %w", err)
	}

	for _, id := range ids {
		expired, converted, err := s.expireOne(ctx, id, now)
		if err != nil {
			s.logger.WithError(err).WithField("gift_id", id).Error("Failed to expire gift")
			result.Failed++
			continue
		}
		if expired {
			result.Expired++
		}
		if converted {
			result.Converted++
		}
	}

	if result.Expired > 0 || result.Failed > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired":   result.Expired,
			"converted": result.Converted,
			"failed":    result.Failed,
		}).Info("Expired gifts")
	}
	return result, nil
}

func (s *Service) expireOne(ctx context.Context, id uint, now time.Time) (expired, converted bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if g.Status != models.GiftPending || g.ExpiresAt == nil || !g.ExpiresAt.Before(now) {
			return nil
		}

		updates := map[string]interface{}{"status": models.GiftExpired}
		if !g.Reassigned() && !g.ConvertedToCredit {
			l, err := listing.Load(tx, g.ListingID)
			if err != nil {
				return err
			}
			sender, err := account.LoadForUpdate(tx, g.SenderID)
			if err != nil {
				return err
			}
			if err := account.SetCreditTx(tx, sender, sender.ShortletCredit.Add(l.Price)); err != nil {
				return fmt.Errorf("failed to credit sender: %w", err)
			}
			updates["converted_to_credit"] = true
			converted = true
		}
		if err := tx.Model(&models.Gift{ID: g.ID}).Updates(updates).Error; err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, false, err
	}
	return expired, converted, nil
}

// ListForAccount returns gifts the account sent or received.
func (s *Service) ListForAccount(ctx context.Context, acc *models.Account) ([]models.Gift, error) {
	var gifts []models.Gift
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_user_id = ? OR recipient_email = ?", acc.ID, acc.ID, acc.Email).
		Order("created_at DESC, id DESC").
		Find(&gifts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}
	return gifts, nil
}

func loadForUpdate(tx *gorm.DB, id uint) (*models.Gift, error) {
	var g models.Gift
	if err := database.ForUpdate(tx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrGiftNotFound
		}
		return nil, fmt.Errorf("failed to load gift %d: %w", id, err)
	}
	return &g, nil
}
