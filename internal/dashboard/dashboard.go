package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/commission"
	"proptx/server/internal/favorite"
	"proptx/server/internal/models"
	"proptx/server/internal/review"
	"proptx/server/internal/verification"
)

// RecentBookings is the size of the admin overview's booking list.
const RecentBookings = 5

// View is the role-specific part of a dashboard. Exactly one of
// CustomerView, AgentView, InvestorView and AdminView.
type View interface {
	Role() models.Role
}

type CustomerView struct {
	Bookings  int64 `json:"bookings"`
	Favorites int64 `json:"favorites"`
}

type AgentView struct {
	TotalListings      int64           `json:"total_properties"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
	WalletBalance      decimal.Decimal `json:"wallet_balance"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
	AverageRating      *float64        `json:"average_rating"`
}

type InvestorView struct {
	TotalInvestments      int64                  `json:"total_investments"`
	RemainingBalanceTotal decimal.Decimal        `json:"remaining_balance_total"`
	ShortletCredit        decimal.Decimal        `json:"shortlet_credit"`
	TotalInvested         decimal.Decimal        `json:"total_invested"`
	TotalEarnings         decimal.Decimal        `json:"total_earnings"`
	ROILogs               []models.InvestmentROI `json:"roi_logs"`
}

type AdminView struct {
	UnapprovedListings   int64 `json:"unapproved_properties"`
	PendingVerifications int64 `json:"pending_verifications"`
	PendingWithdrawals   int64 `json:"pending_withdrawals"`
	UnapprovedReviews    int64 `json:"unapproved_reviews"`
}

func (CustomerView) Role() models.Role { return models.RoleCustomer }
func (AgentView) Role() models.Role    { return models.RoleAgent }
func (InvestorView) Role() models.Role { return models.RoleInvestor }
func (AdminView) Role() models.Role    { return models.RoleAdmin }

// Membership summarises an account's membership
type Membership struct {
	Tier      models.MembershipTier `json:"membership_tier"`
	ExpiresAt *time.Time            `json:"membership_expires_at"`
	Active    bool                  `json:"membership_active"`
}

// Dashboard is what an account sees on its home screen
type Dashboard struct {
	FullName   string      `json:"full_name"`
	Role       models.Role `json:"role"`
	Details    View        `json:"details"`
	Membership *Membership `json:"membership,omitempty"`
}

// Overview is the admin-wide summary
type Overview struct {
	PendingListings      int64                 `json:"pending_properties"`
	PendingVerifications int64                 `json:"pending_verifications"`
	PendingWithdrawals   int64                 `json:"pending_withdrawals"`
	UnapprovedReviews    int64                 `json:"unapproved_reviews"`
	RecentBookings       []models.Booking      `json:"recent_bookings"`
	UserCounts           map[models.Role]int64 `json:"user_counts"`
}

// Service builds dashboards
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	Now    func() time.Time
}

// NewService creates a new dashboard service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// For builds the dashboard of accountID.
func (s *Service) For(ctx context.Context, accountID uint) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	acc, err := account.Load(db, accountID)
	if err != nil {
		return nil, err
	}

	var view View
	switch acc.Role {
	case models.RoleAgent:
		view, err = s.agentView(db, acc)
	case models.RoleInvestor:
		view, err = s.investorView(db, acc)
	case models.RoleAdmin:
		view, err = s.adminView(db)
	default:
		view, err = s.customerView(db, acc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s dashboard: %w", acc.Role, err)
	}

	d := &Dashboard{FullName: acc.FullName, Role: acc.Role, Details: view}
	if acc.MembershipTier != models.TierNone {
		d.Membership = &Membership{
			Tier:      acc.MembershipTier,
			ExpiresAt: acc.MembershipExpiresAt,
			Active:    account.HasActiveMembership(acc, s.Now()),
		}
	}
	return d, nil
}

// Overview builds the admin summary.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)
	admin, err := s.adminView(db)
	if err != nil {
		return nil, err
	}

	o := &Overview{
		PendingListings:      admin.UnapprovedListings,
		PendingVerifications: admin.PendingVerifications,
		PendingWithdrawals:   admin.PendingWithdrawals,
		UnapprovedReviews:    admin.UnapprovedReviews,
		UserCounts:           make(map[models.Role]int64),
	}
	if err := db.Order("created_at DESC, id DESC").Limit(RecentBookings).Find(&o.RecentBookings).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Role  models.Role
		Count int64
	}
	if err := db.Model(&models.Account{}).Select("role, COUNT(*) AS count").Group("role").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range []models.Role{models.RoleCustomer, models.RoleAgent, models.RoleInvestor, models.RoleAdmin} {
		o.UserCounts[r] = 0
	}
	for _, row := range rows {
		o.UserCounts[row.Role] = row.Count
	}
	return o, nil
}

func (s *Service) customerView(db *gorm.DB, acc *models.Account) (CustomerView, error) {
	var v CustomerView
	if err := db.Model(&models.Booking{}).Where("account_id = ?", acc.ID).Count(&v.Bookings).Error; err != nil {
		return v, err
	}
	n, err := favorite.Count(db, acc.ID)
	v.Favorites = n
	return v, err
}

func (s *Service) agentView(db *gorm.DB, acc *models.Account) (AgentView, error) {
	var v AgentView
	if err := db.Model(&models.Listing{}).Where("agent_id = ?", acc.ID).Count(&v.TotalListings).Error; err != nil {
		return v, err
	}

	var commissions []models.Commission
	if err := db.Where("agent_id = ?", acc.ID).Find(&commissions).Error; err != nil {
		return v, err
	}
	v.TotalCommission = decimal.Zero
	for _, c := range commissions {
		v.TotalCommission = v.TotalCommission.Add(c.Amount)
		if c.Status == models.CommissionWithdrawalRequested {
			v.PendingWithdrawals++
		}
	}
	v.WalletBalance = commission.Balance(commissions)

	avg, err := review.AverageAgentRating(db, acc.ID)
	if err != nil {
		return v, err
	}
	v.AverageRating = avg
	return v, nil
}

func (s *Service) investorView(db *gorm.DB, acc *models.Account) (InvestorView, error) {
	v := InvestorView{
		RemainingBalanceTotal: decimal.Zero,
		ShortletCredit:        acc.ShortletCredit,
		TotalInvested:         decimal.Zero,
		TotalEarnings:         decimal.Zero,
	}

	var investments []models.Investment
	if err := db.Where("investor_id = ?", acc.ID).Preload("ROIs").Find(&investments).Error; err != nil {
		return v, err
	}
	v.TotalInvestments = int64(len(investments))
	v.ROILogs = []models.InvestmentROI{}
	for _, inv := range investments {
		v.RemainingBalanceTotal = v.RemainingBalanceTotal.Add(inv.RemainingBalance)
		v.TotalInvested = v.TotalInvested.Add(inv.TotalPrice)
		for _, roi := range inv.ROIs {
			v.TotalEarnings = v.TotalEarnings.Add(roi.Amount)
			v.ROILogs = append(v.ROILogs, roi)
		}
	}
	return v, nil
}

func (s *Service) adminView(db *gorm.DB) (AdminView, error) {
	var v AdminView
	if err := db.Model(&models.Listing{}).Where("is_approved = ?", false).Count(&v.UnapprovedListings).Error; err != nil {
		return v, err
	}
	if err := db.Model(&models.Commission{}).
		Where("status = ?", models.CommissionWithdrawalRequested).
		Count(&v.PendingWithdrawals).Error; err != nil {
		return v, err
	}

	var err error
	if v.PendingVerifications, err = verification.CountPending(db); err != nil {
		return v, err
	}
	v.UnapprovedReviews, err = review.CountPending(db)
	return v, err
}
