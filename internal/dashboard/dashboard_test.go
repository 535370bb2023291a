package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptx/server/internal/fixtures"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
)

func TestFor_SelectsViewByRole(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	svc.Now = fixtures.Clock()
	ctx := context.Background()

	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	guest := fixtures.Account(t, db, "guest@example.com", models.RoleCustomer)
	investor := fixtures.Account(t, db, "investor@example.com", models.RoleInvestor)
	admin := fixtures.Account(t, db, "admin@example.com", models.RoleAdmin)

	l := fixtures.Listing(t, db, agent, models.ListingShortlet, "10000")
	r := fixtures.Range(t, "2025-06-01", "2025-06-03")
	slot := models.BookingSlot(l.ID, r)
	b := &models.Booking{AccountID: guest.ID, ListingID: l.ID, StartDate: r.Start, EndDate: r.End,
		TotalPrice: ledger.MustMoney("20000"), Status: models.BookingPaid, ActiveSlot: &slot,
		TxRef: ledger.NewReference(ledger.BookingReference)}
	require.NoError(t, db.Create(b).Error)
	require.NoError(t, db.Create(&models.Commission{AgentID: agent.ID, BookingID: b.ID,
		Amount: ledger.MustMoney("2000"), Status: models.CommissionWithdrawalRequested}).Error)

	inv := &models.Investment{InvestorID: investor.ID, ListingID: fixtures.InvestmentListing(t, db, agent, "1000000").ID,
		Plan: models.PlanInstallment, TotalPrice: ledger.MustMoney("1000000"), AmountPaid: ledger.MustMoney("600000"),
		RemainingBalance: ledger.MustMoney("400000"), Status: models.InvestmentActive,
		TxRef: ledger.NewReference(ledger.InvestmentReference), StartedAt: fixtures.Today}
	require.NoError(t, db.Create(inv).Error)
	require.NoError(t, db.Create(&models.InvestmentROI{InvestmentID: inv.ID, Amount: ledger.MustMoney("15000"),
		DatePaid: fixtures.Today}).Error)
	expires := fixtures.Today.Add(24 * time.Hour)
	require.NoError(t, db.Model(investor).Updates(map[string]interface{}{
		"membership_tier": models.TierGold, "membership_expires_at": expires,
	}).Error)

	require.NoError(t, db.Create(&models.Favorite{AccountID: guest.ID, ListingID: l.ID}).Error)
	require.NoError(t, db.Create(&models.Review{AuthorID: guest.ID, AgentID: &agent.ID, Type: models.ReviewAgent,
		Rating: 4, Comment: "Helpful", IsApproved: true}).Error)
	require.NoError(t, db.Create(&models.Review{AuthorID: investor.ID, AgentID: &agent.ID, Type: models.ReviewAgent,
		Rating: 1, Comment: "Late"}).Error)
	require.NoError(t, db.Create(&models.AgentVerification{AgentID: agent.ID, ValidID: "https://f.example.com/1",
		CACCertificate: "https://f.example.com/2", ProofOfLocation: "https://f.example.com/3",
		PropertyOwnershipDoc: "https://f.example.com/4", Status: models.VerificationPending}).Error)

	d, err := svc.For(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, CustomerView{Bookings: 1, Favorites: 1}, d.Details)
	assert.Nil(t, d.Membership)

	d, err = svc.For(ctx, agent.ID)
	require.NoError(t, err)
	agentView, ok := d.Details.(AgentView)
	require.True(t, ok)
	assert.Equal(t, int64(2), agentView.TotalListings)
	assert.Equal(t, "2000.00", agentView.TotalCommission.StringFixed(2))
	assert.Equal(t, int64(1), agentView.PendingWithdrawals)
	require.NotNil(t, agentView.AverageRating)
	assert.Equal(t, 4.0, *agentView.AverageRating)

	d, err = svc.For(ctx, investor.ID)
	require.NoError(t, err)
	investorView, ok := d.Details.(InvestorView)
	require.True(t, ok)
	assert.Equal(t, int64(1), investorView.TotalInvestments)
	assert.Equal(t, "400000.00", investorView.RemainingBalanceTotal.StringFixed(2))
	assert.Equal(t, "15000.00", investorView.TotalEarnings.StringFixed(2))
	assert.Len(t, investorView.ROILogs, 1)
	require.NotNil(t, d.Membership)
	assert.True(t, d.Membership.Active)

	d, err = svc.For(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, AdminView{UnapprovedListings: 0, PendingVerifications: 1, PendingWithdrawals: 1, UnapprovedReviews: 1}, d.Details)
	assert.Equal(t, models.RoleAdmin, d.Details.Role())
}

func TestOverview(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())

	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	fixtures.Account(t, db, "a@example.com", models.RoleCustomer)
	fixtures.Account(t, db, "b@example.com", models.RoleCustomer)
	l := fixtures.Listing(t, db, agent, models.ListingShortlet, "10000")
	require.NoError(t, db.Model(l).Update("is_approved", false).Error)

	o, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.PendingListings)
	assert.Equal(t, int64(2), o.UserCounts[models.RoleCustomer])
	assert.Equal(t, int64(1), o.UserCounts[models.RoleAgent])
	assert.Equal(t, int64(0), o.UserCounts[models.RoleInvestor])
	assert.Empty(t, o.RecentBookings)
	assert.Zero(t, o.PendingVerifications)
	assert.Zero(t, o.UnapprovedReviews)
}
