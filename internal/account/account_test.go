package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptx/server/internal/apperror"
	"proptx/server/internal/fixtures"
	"proptx/server/internal/models"
)

func newTestService(t *testing.T) *Service {
	svc := NewService(fixtures.DB(t), fixtures.Logger())
	svc.Now = fixtures.Clock()
	return svc
}

func TestCreate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Create(ctx, " Ada@Example.com ", "Ada", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", acc.Email)
	assert.True(t, acc.ShortletCredit.IsZero())

	_, err = svc.Create(ctx, "ada@example.com", "Ada again", models.RoleCustomer)
	assert.ErrorIs(t, err, apperror.ErrDuplicateEmail)

	_, err = svc.Create(ctx, "bob@example.com", "Bob", models.Role("PILOT"))
	assert.ErrorIs(t, err, apperror.ErrInvalidRole)

	found, err := svc.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, acc.ID, found.ID)

	missing, err := svc.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSwitchRole_TracksVerificationHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Create(ctx, "agent@example.com", "Agent", models.RoleAgent)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, acc.ID)
	require.NoError(t, err)

	res, err := svc.SwitchRole(ctx, acc.ID, models.RoleInvestor)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.ReverificationRequired)
	assert.False(t, res.Account.IsVerified)
	assert.True(t, res.Account.WasVerifiedAsAgent)

	res, err = svc.SwitchRole(ctx, acc.ID, models.RoleCustomer)
	require.NoError(t, err)
	assert.False(t, res.ReverificationRequired)
	assert.False(t, res.Account.WasVerifiedAsInvestor)

	res, err = svc.SwitchRole(ctx, acc.ID, models.RoleAgent)
	require.NoError(t, err)
	assert.True(t, res.ReverificationRequired)
	assert.False(t, res.Account.IsVerified)
	assert.True(t, res.Account.WasVerifiedAsAgent)

	res, err = svc.SwitchRole(ctx, acc.ID, models.RoleAgent)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = svc.SwitchRole(ctx, acc.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, apperror.ErrInvalidRole)

	_, err = svc.SwitchRole(ctx, 999, models.RoleCustomer)
	assert.ErrorIs(t, err, apperror.ErrAccountNotFound)
}

func TestPromoteToAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Create(ctx, "staff@example.com", "Staff", models.RoleCustomer)
	require.NoError(t, err)

	acc, err = svc.PromoteToAdmin(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, acc.IsAdmin())

	_, err = svc.SwitchRole(ctx, acc.ID, models.RoleCustomer)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestMembership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := fixtures.Today

	acc, err := svc.Create(ctx, "investor@example.com", "Investor", models.RoleInvestor)
	require.NoError(t, err)
	assert.False(t, HasActiveMembership(acc, now))

	require.NoError(t, GrantMembershipTx(svc.db, acc, models.TierGold, now))

	reloaded, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierGold, reloaded.MembershipTier)
	assert.True(t, HasActiveMembership(reloaded, now))
	assert.True(t, HasActiveMembership(reloaded, now.Add(MembershipTerm)))
	assert.False(t, HasActiveMembership(reloaded, now.Add(MembershipTerm+time.Second)))
}
