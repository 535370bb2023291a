package listing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptx/server/internal/apperror"
	"proptx/server/internal/fixtures"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
)

func validInput() Input {
	return Input{
		Title:     "Ocean view flat",
		Location:  "Victoria Island",
		Price:     ledger.MustMoney("10000"),
		Type:      models.ListingShortlet,
		Amenities: []string{"wifi", "pool"},
	}
}

func TestCreateAndApprove(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	ctx := context.Background()
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	customer := fixtures.Account(t, db, "guest@example.com", models.RoleCustomer)

	_, err := svc.Create(ctx, customer.ID, validInput())
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	l, err := svc.Create(ctx, agent.ID, validInput())
	require.NoError(t, err)
	assert.False(t, l.IsApproved)
	assert.True(t, l.IsAvailable)
	assert.JSONEq(t, `["wifi","pool"]`, string(l.Amenities))

	_, err = svc.Get(ctx, customer, l.ID)
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)
	_, err = svc.Get(ctx, agent, l.ID)
	require.NoError(t, err)

	public, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, public)

	_, err = svc.Approve(ctx, l.ID)
	require.NoError(t, err)

	public, err = svc.List(ctx, Filter{Type: models.ListingShortlet})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, l.ID, public[0].ID)
}

func TestCreate_Validation(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)

	in := validInput()
	in.Price = decimal.Zero
	_, err := svc.Create(context.Background(), agent.ID, in)
	assert.ErrorIs(t, err, apperror.ErrInvalidListing)

	in = validInput()
	in.Type = "castle"
	_, err = svc.Create(context.Background(), agent.ID, in)
	assert.ErrorIs(t, err, apperror.ErrInvalidListing)
}

func TestUpdate_ResetsApprovalForAgents(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	ctx := context.Background()
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	other := fixtures.Account(t, db, "other@example.com", models.RoleAgent)
	admin := fixtures.Account(t, db, "admin@example.com", models.RoleAdmin)
	l := fixtures.Listing(t, db, agent, models.ListingShortlet, "10000")

	in := validInput()
	in.Title = "Renamed"
	_, err := svc.Update(ctx, other.ID, l.ID, in)
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)

	updated, err := svc.Update(ctx, agent.ID, l.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.False(t, updated.IsApproved)

	_, err = svc.Approve(ctx, l.ID)
	require.NoError(t, err)
	updated, err = svc.Update(ctx, admin.ID, l.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.IsApproved)
}

func TestReject_DeletesListing(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	ctx := context.Background()
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	l := fixtures.Listing(t, db, agent, models.ListingSale, "500000")

	require.NoError(t, svc.Reject(ctx, l.ID))
	_, err := Load(db, l.ID)
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)
	assert.ErrorIs(t, svc.Reject(ctx, l.ID), apperror.ErrListingNotFound)
}
