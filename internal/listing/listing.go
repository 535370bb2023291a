package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/database"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
)

// Input carries the editable fields of a listing
type Input struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Location    string              `json:"location"`
	Price       decimal.Decimal     `json:"price"`
	Type        models.ListingType  `json:"property_type"`
	Amenities   []string            `json:"amenities"`
	Images      []string            `json:"images"`
	CostPrice   decimal.NullDecimal `json:"cost_price"`
	IsAvailable *bool               `json:"is_available"`
}

// Filter narrows List results
type Filter struct {
	Type           models.ListingType
	AgentID        uint
	IncludePending bool
	OnlyAvailable  bool
}

// Service manages the listing catalogue
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new listing service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create adds an unapproved listing owned by the acting agent.
func (s *Service) Create(ctx context.Context, actorID uint, in Input) (*models.Listing, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var l *models.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := account.Load(tx, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAgent && !actor.IsAdmin() {
			return apperror.ErrForbidden.Withf("only agents can create listings")
		}

		l = &models.Listing{AgentID: actor.ID, IsAvailable: true}
		if err := in.apply(l); err != nil {
			return err
		}
		return tx.Create(l).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"listing_id": l.ID, "agent_id": l.AgentID, "type": l.Type}).Info("Listing created")
	return l, nil
}

// Update edits a listing. Only the owning agent or an admin may edit, and
// an agent's edit sends the listing back for approval.
func (s *Service) Update(ctx context.Context, actorID, listingID uint, in Input) (*models.Listing, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var l *models.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := account.Load(tx, actorID)
		if err != nil {
			return err
		}
		l, err = LoadForUpdate(tx, listingID)
		if err != nil {
			return err
		}
		if l.AgentID != actor.ID && !actor.IsAdmin() {
			return apperror.ErrListingNotFound
		}

		if err := in.apply(l); err != nil {
			return err
		}
		if !actor.IsAdmin() {
			l.IsApproved = false
		}
		return tx.Model(l).Select(
			"Title", "Description", "Location", "Price", "Type",
			"Amenities", "Images", "CostPrice", "IsAvailable", "IsApproved",
		).Updates(l).Error
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Approve publishes a listing.
func (s *Service) Approve(ctx context.Context, listingID uint) (*models.Listing, error) {
	var l *models.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		l, err = LoadForUpdate(tx, listingID)
		if err != nil {
			return err
		}
		l.IsApproved = true
		return tx.Model(l).Update("is_approved", true).Error
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("listing_id", listingID).Info("Listing approved")
	return l, nil
}

// Reject deletes a listing together with its bookings, gifts and
// investments.
func (s *Service) Reject(ctx context.Context, listingID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := LoadForUpdate(tx, listingID)
		if err != nil {
			return err
		}
		return tx.Delete(l).Error
	})
	if err != nil {
		return err
	}
	s.logger.WithField("listing_id", listingID).Info("Listing rejected")
	return nil
}

// Get loads a listing. Unapproved listings are visible to their agent and
// to admins only.
func (s *Service) Get(ctx context.Context, viewer *models.Account, listingID uint) (*models.Listing, error) {
	l, err := Load(s.db.WithContext(ctx), listingID)
	if err != nil {
		return nil, err
	}
	if !l.IsApproved && (viewer == nil || (viewer.ID != l.AgentID && !viewer.IsAdmin())) {
		return nil, apperror.ErrListingNotFound
	}
	return l, nil
}

// List returns listings newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Listing, error) {
	q := s.db.WithContext(ctx).Model(&models.Listing{})
	if !f.IncludePending {
		q = q.Where("is_approved = ?", true)
	}
	if f.OnlyAvailable {
		q = q.Where("is_available = ?", true)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.AgentID != 0 {
		q = q.Where("agent_id = ?", f.AgentID)
	}

	var listings []models.Listing
	if err := q.Order("created_at DESC, id DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// Load fetches a listing.
func Load(tx *gorm.DB, id uint) (*models.Listing, error) {
	var l models.Listing
	if err := tx.First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to load listing %d: %w", id, err)
	}
	return &l, nil
}

// LoadForUpdate fetches and locks a listing inside tx. Bookings lock the
// listing row, which serializes availability checks per listing.
func LoadForUpdate(tx *gorm.DB, id uint) (*models.Listing, error) {
	return Load(database.ForUpdate(tx), id)
}

func (in *Input) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperror.ErrInvalidListing.Withf("title is required")
	}
	if !in.Price.IsPositive() {
		return apperror.ErrInvalidListing.Withf("price must be greater than zero")
	}
	if !in.Type.Valid() {
		return apperror.ErrInvalidListing.Withf("unknown property type %q", in.Type)
	}
	if in.CostPrice.Valid && !in.CostPrice.Decimal.IsPositive() {
		return apperror.ErrInvalidListing.Withf("cost price must be greater than zero")
	}
	return nil
}

func (in *Input) apply(l *models.Listing) error {
	amenities, err := jsonList(in.Amenities)
	if err != nil {
		return err
	}
	images, err := jsonList(in.Images)
	if err != nil {
		return err
	}

	l.Title = in.Title
	l.Description = in.Description
	l.Location = in.Location
	l.Price = ledger.Round(in.Price)
	l.Type = in.Type
	l.Amenities = amenities
	l.Images = images
	l.CostPrice = decimal.NullDecimal{}
	if in.CostPrice.Valid {
		l.CostPrice = decimal.NewNullDecimal(ledger.Round(in.CostPrice.Decimal))
	}
	if in.IsAvailable != nil {
		l.IsAvailable = *in.IsAvailable
	}
	return nil
}

func jsonList(items []string) (datatypes.JSON, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list: %w", err)
	}
	return datatypes.JSON(b), nil
}
