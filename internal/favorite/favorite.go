package favorite

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/database"
	"proptx/server/internal/listing"
	"proptx/server/internal/models"
)

// Service keeps each account's saved listings
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new favorite service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Add saves an approved listing. Customers cannot save investment listings.
func (s *Service) Add(ctx context.Context, accountID, listingID uint) (*models.Favorite, error) {
	var fav *models.Favorite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := account.Load(tx, accountID)
		if err != nil {
			return err
		}
		l, err := listing.Load(tx, listingID)
		if err != nil {
			return err
		}
		if !l.IsApproved {
			return apperror.ErrListingNotApproved
		}
		if acc.Role == models.RoleCustomer && l.Type == models.ListingInvestment {
			return apperror.ErrFavoriteNotAllowed
		}

		fav = &models.Favorite{AccountID: acc.ID, ListingID: l.ID}
		if err := tx.Create(fav).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.ErrDuplicateFavorite
			}
			return fmt.Errorf("failed to save favorite: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"account_id": accountID, "listing_id": listingID}).Debug("Favorite added")
	return fav, nil
}

// Remove deletes one of the account's favorites.
func (s *Service) Remove(ctx context.Context, accountID, favoriteID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", favoriteID, accountID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrFavoriteNotFound
	}
	return nil
}

// List returns the account's favorites, newest first.
func (s *Service) List(ctx context.Context, accountID uint) ([]models.Favorite, error) {
	var out []models.Favorite
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return out, nil
}

// Count counts the account's favorites.
func Count(db *gorm.DB, accountID uint) (int64, error) {
	var n int64
	err := db.Model(&models.Favorite{}).Where("account_id = ?", accountID).Count(&n).Error
	return n, err
}
