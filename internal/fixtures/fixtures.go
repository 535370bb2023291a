// Package fixtures seeds test databases with accounts and listings.
package fixtures

import (
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"proptx/server/internal/database"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
)

// Today is the fixed clock used by service tests.
var Today = time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC)

// Clock returns a clock frozen at Today.
func Clock() func() time.Time {
	return func() time.Time { return Today }
}

// DB returns a fresh migrated database.
func DB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewTestDB()
	require.NoError(t, err)
	return db
}

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Account inserts an account with the given role.
func Account(t testing.TB, db *gorm.DB, email string, role models.Role) *models.Account {
	t.Helper()
	acc := &models.Account{Email: email, FullName: email, Role: role, IsVerified: true}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

// AccountWithCredit inserts a customer holding credit.
func AccountWithCredit(t testing.TB, db *gorm.DB, email, credit string) *models.Account {
	t.Helper()
	acc := Account(t, db, email, models.RoleCustomer)
	acc.ShortletCredit = ledger.MustMoney(credit)
	require.NoError(t, db.Model(acc).Update("shortlet_credit", acc.ShortletCredit).Error)
	return acc
}

// Listing inserts an approved, available listing owned by agent.
func Listing(t testing.TB, db *gorm.DB, agent *models.Account, typ models.ListingType, price string) *models.Listing {
	t.Helper()
	l := &models.Listing{
		AgentID:     agent.ID,
		Title:       "Listing " + string(typ),
		Location:    "Lekki",
		Price:       ledger.MustMoney(price),
		Type:        typ,
		IsAvailable: true,
		IsApproved:  true,
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

// InvestmentListing inserts an approved investment listing with a cost price.
func InvestmentListing(t testing.TB, db *gorm.DB, agent *models.Account, cost string) *models.Listing {
	t.Helper()
	l := Listing(t, db, agent, models.ListingInvestment, cost)
	l.CostPrice = decimal.NewNullDecimal(ledger.MustMoney(cost))
	require.NoError(t, db.Model(l).Update("cost_price", l.CostPrice).Error)
	return l
}

// Reload re-reads dest by primary key. dest is zeroed first so a reused
// struct does not add its old key to the query.
func Reload(t testing.TB, db *gorm.DB, dest interface{}, id uint) {
	t.Helper()
	v := reflect.ValueOf(dest).Elem()
	v.Set(reflect.Zero(v.Type()))
	require.NoError(t, db.First(dest, id).Error)
}

// Date parses a YYYY-MM-DD date.
func Date(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := ledger.ParseDate(s)
	require.NoError(t, err)
	return d
}

// Range parses a date range.
func Range(t testing.TB, start, end string) ledger.DateRange {
	t.Helper()
	r, err := ledger.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}
