package favorite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptx/server/internal/apperror"
	"proptx/server/internal/fixtures"
	"proptx/server/internal/models"
)

func TestAdd(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	ctx := context.Background()
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	customer := fixtures.Account(t, db, "guest@example.com", models.RoleCustomer)
	investor := fixtures.Account(t, db, "investor@example.com", models.RoleInvestor)
	shortlet := fixtures.Listing(t, db, agent, models.ListingShortlet, "10000")
	estate := fixtures.InvestmentListing(t, db, agent, "1000000")
	pending := fixtures.Listing(t, db, agent, models.ListingSale, "50000")
	require.NoError(t, db.Model(pending).Update("is_approved", false).Error)

	_, err := svc.Add(ctx, customer.ID, pending.ID)
	assert.ErrorIs(t, err, apperror.ErrListingNotApproved)

	_, err = svc.Add(ctx, customer.ID, estate.ID)
	assert.ErrorIs(t, err, apperror.ErrFavoriteNotAllowed)

	_, err = svc.Add(ctx, investor.ID, estate.ID)
	require.NoError(t, err)

	fav, err := svc.Add(ctx, customer.ID, shortlet.ID)
	require.NoError(t, err)

	_, err = svc.Add(ctx, customer.ID, shortlet.ID)
	assert.ErrorIs(t, err, apperror.ErrDuplicateFavorite)

	mine, err := svc.List(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, shortlet.ID, mine[0].ListingID)

	assert.ErrorIs(t, svc.Remove(ctx, investor.ID, fav.ID), apperror.ErrFavoriteNotFound)
	require.NoError(t, svc.Remove(ctx, customer.ID, fav.ID))

	n, err := Count(db, customer.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
