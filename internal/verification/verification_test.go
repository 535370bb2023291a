package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptx/server/internal/apperror"
	"proptx/server/internal/fixtures"
	"proptx/server/internal/models"
)

func docs() Documents {
	return Documents{
		ValidID:              "https://files.example.com/id.pdf",
		CACCertificate:       "https://files.example.com/cac.pdf",
		ProofOfLocation:      "https://files.example.com/utility.pdf",
		PropertyOwnershipDoc: "https://files.example.com/deed.pdf",
	}
}

func TestSubmit(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	ctx := context.Background()
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	customer := fixtures.Account(t, db, "guest@example.com", models.RoleCustomer)

	_, err := svc.Submit(ctx, customer.ID, docs())
	assert.ErrorIs(t, err, apperror.ErrNotAgent)

	bad := docs()
	bad.ProofOfLocation = "not a link"
	_, err = svc.Submit(ctx, agent.ID, bad)
	assert.ErrorIs(t, err, apperror.ErrInvalidDocument)

	v, err := svc.Submit(ctx, agent.ID, docs())
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, v.Status)

	_, err = svc.Submit(ctx, agent.ID, docs())
	assert.ErrorIs(t, err, apperror.ErrAlreadySubmitted)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	n, err := CountPending(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestApproveAndReject(t *testing.T) {
	db := fixtures.DB(t)
	svc := NewService(db, fixtures.Logger())
	svc.Now = fixtures.Clock()
	ctx := context.Background()
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	require.NoError(t, db.Model(agent).Update("is_verified", false).Error)

	v, err := svc.Submit(ctx, agent.ID, docs())
	require.NoError(t, err)

	_, err = svc.Reject(ctx, v.ID, " ")
	assert.ErrorIs(t, err, apperror.ErrMissingReason)

	_, err = svc.Approve(ctx, 4242)
	assert.ErrorIs(t, err, apperror.ErrVerificationNotFound)

	approved, err := svc.Approve(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, approved.Status)

	var acc models.Account
	fixtures.Reload(t, db, &acc, agent.ID)
	assert.True(t, acc.IsVerified)

	_, err = svc.Approve(ctx, v.ID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyVerified)

	rejected, err := svc.Reject(ctx, v.ID, "Certificate is expired")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, rejected.Status)
	assert.Equal(t, "Certificate is expired", rejected.RejectionReason)

	fixtures.Reload(t, db, &acc, agent.ID)
	assert.False(t, acc.IsVerified)

	_, err = svc.Reject(ctx, v.ID, "again")
	assert.ErrorIs(t, err, apperror.ErrVerificationNotActive)

	mine, err := svc.ForAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, mine.Status)

	n, err := CountPending(db)
	require.NoError(t, err)
	assert.Zero(t, n)
}
