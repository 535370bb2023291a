package processor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"proptx/server/internal/fixtures"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
	"proptx/server/internal/payment"
	"proptx/server/internal/queue"
	"proptx/server/internal/reconcile"
)

// seedPendingBookings creates count unpaid bookings on one listing and
// returns their references.
func seedPendingBookings(t testing.TB, db *gorm.DB, count int) []string {
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	guest := fixtures.Account(t, db, "guest@example.com", models.RoleCustomer)
	l := fixtures.Listing(t, db, agent, models.ListingShortlet, "10000")

	start := fixtures.Date(t, "2025-06-01")
	refs := make([]string, count)
	for i := range refs {
		r, err := ledger.NewDateRange(start.AddDate(0, 0, 2*i), start.AddDate(0, 0, 2*i+2))
		require.NoError(t, err)
		slot := models.BookingSlot(l.ID, r)
		b := &models.Booking{
			AccountID:  guest.ID,
			ListingID:  l.ID,
			StartDate:  r.Start,
			EndDate:    r.End,
			TotalPrice: ledger.MustMoney("20000"),
			Status:     models.BookingPending,
			ActiveSlot: &slot,
			TxRef:      ledger.NewReference(ledger.BookingReference),
		}
		require.NoError(t, db.Create(b).Error)
		refs[i] = b.TxRef
	}
	return refs
}

func TestSettlementProcessingIntegration(t *testing.T) {
	db := fixtures.DB(t)
	cfg := testConfig()
	logger := fixtures.Logger()

	reconciler := reconcile.NewService(db, nil, logger)
	q := queue.NewSettlementQueue(64, logger)
	processor := NewSettlementProcessor(reconciler, q, cfg, logger)
	processor.Start()

	refs := seedPendingBookings(t, db, 5)
	for _, ref := range refs {
		require.NoError(t, q.Push(payment.Settlement{TxRef: ref, Status: payment.StatusSuccessful}))
		// Redelivery of the same webhook
		require.NoError(t, q.Push(payment.Settlement{TxRef: ref, Status: payment.StatusSuccessful}))
	}
	require.NoError(t, q.Push(payment.Settlement{TxRef: "BKG-missing", Status: payment.StatusSuccessful}))

	processor.Stop()

	var paid int64
	require.NoError(t, db.Model(&models.Booking{}).Where("status = ?", models.BookingPaid).Count(&paid).Error)
	assert.Equal(t, int64(len(refs)), paid)

	var commissions int64
	require.NoError(t, db.Model(&models.Commission{}).Count(&commissions).Error)
	assert.Equal(t, int64(len(refs)), commissions)
}

func BenchmarkSettlementProcessing(b *testing.B) {
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("Workers_%d", workers), func(b *testing.B) {
			db := fixtures.DB(b)
			logger := fixtures.Logger()
			cfg := testConfig()
			cfg.Webhooks.ProcessorCount = workers

			refs := seedPendingBookings(b, db, b.N)
			q := queue.NewSettlementQueue(b.N, logger)
			processor := NewSettlementProcessor(reconcile.NewService(db, nil, logger), q, cfg, logger)

			b.ResetTimer()
			processor.Start()
			for _, ref := range refs {
				if err := q.Push(payment.Settlement{TxRef: ref, Status: payment.StatusSuccessful}); err != nil {
					b.Fatal(err)
				}
			}
			processor.Stop()
		})
	}
}
