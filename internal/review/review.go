// Package review stores listing and agent reviews behind admin moderation.
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/database"
	"proptx/server/internal/listing"
	"proptx/server/internal/models"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Input is a new review. ListingID is required for listing reviews and
// AgentID for agent reviews.
type Input struct {
	Type      models.ReviewType `json:"review_type"`
	ListingID *uint             `json:"property"`
	AgentID   *uint             `json:"agent"`
	Rating    int               `json:"rating"`
	Comment   string            `json:"comment"`
}

// Filter narrows the public review list
type Filter struct {
	ListingID uint
	AgentID   uint
}

// Service manages reviews
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new review service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create stores an unapproved review by authorID.
func (s *Service) Create(ctx context.Context, authorID uint, in Input) (*models.Review, error) {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return nil, apperror.ErrInvalidRating
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		return nil, apperror.ErrInvalidReview.Withf("a comment is required")
	}

	var r *models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := account.Load(tx, authorID); err != nil {
			return err
		}

		r = &models.Review{
			AuthorID: authorID,
			Rating:   in.Rating,
			Comment:  comment,
			Type:     in.Type,
		}
		switch in.Type {
		case models.ReviewListing:
			if in.ListingID == nil || in.AgentID != nil {
				return apperror.ErrInvalidReview.Withf("a listing review names a listing only")
			}
			l, err := listing.Load(tx, *in.ListingID)
			if err != nil {
				return err
			}
			if !l.IsApproved {
				return apperror.ErrListingNotApproved
			}
			r.ListingID = &l.ID
		case models.ReviewAgent:
			if in.AgentID == nil || in.ListingID != nil {
				return apperror.ErrInvalidReview.Withf("an agent review names an agent only")
			}
			agent, err := account.Load(tx, *in.AgentID)
			if err != nil {
				return err
			}
			if agent.Role != models.RoleAgent {
				return apperror.ErrInvalidReview.Withf("account %d is not an agent", agent.ID)
			}
			if agent.ID == authorID {
				return apperror.ErrInvalidReview.Withf("agents cannot review themselves")
			}
			r.AgentID = &agent.ID
		default:
			return apperror.ErrInvalidReview.Withf("unknown review type %q", in.Type)
		}

		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"review_id": r.ID,
		"type":      r.Type,
		"rating":    r.Rating,
	}).Info("Review submitted for moderation")
	return r, nil
}

// Approve publishes a pending review.
func (s *Service) Approve(ctx context.Context, id uint) (*models.Review, error) {
	var r models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.ForUpdate(tx).Where("is_approved = ?", false).First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrReviewNotFound
			}
			return fmt.Errorf("failed to load review %d: %w", id, err)
		}
		r.IsApproved = true
		return tx.Model(&models.Review{ID: r.ID}).Update("is_approved", true).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("review_id", r.ID).Info("Review approved")
	return &r, nil
}

// List returns approved reviews, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Review, error) {
	q := s.db.WithContext(ctx).Where("is_approved = ?", true)
	if f.ListingID != 0 {
		q = q.Where("listing_id = ?", f.ListingID)
	}
	if f.AgentID != 0 {
		q = q.Where("agent_id = ?", f.AgentID)
	}
	var out []models.Review
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return out, nil
}

// Pending returns reviews awaiting moderation, oldest first.
func (s *Service) Pending(ctx context.Context) ([]models.Review, error) {
	var out []models.Review
	if err := s.db.WithContext(ctx).Where("is_approved = ?", false).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending reviews: %w", err)
	}
	return out, nil
}

// CountPending counts reviews awaiting moderation.
func CountPending(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&models.Review{}).Where("is_approved = ?", false).Count(&n).Error
	return n, err
}

// AverageAgentRating is the mean approved agent rating rounded to one
// decimal, or nil when the agent has none.
func AverageAgentRating(db *gorm.DB, agentID uint) (*float64, error) {
	var avg sql.NullFloat64
	err := db.Model(&models.Review{}).
		Where("agent_id = ? AND type = ? AND is_approved = ?", agentID, models.ReviewAgent, true).
		Select("AVG(rating)").
		Row().Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to average ratings: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	rounded := math.Round(avg.Float64*10) / 10
	return &rounded, nil
}
