package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"proptx/server/internal/fixtures"
	"proptx/server/internal/ledger"
	"proptx/server/internal/models"
	"proptx/server/internal/queue"
)

var testSecret = []byte("test-secret")

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T, opts Options, limiter *RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := fixtures.DB(t)
	router := gin.New()
	h := NewHandler(db, opts, fixtures.Logger())
	SetupRoutes(router, h, AuthMiddleware(db, testSecret), limiter)
	return &testServer{db: db, router: router}
}

func token(t *testing.T, acc *models.Account) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(acc.ID), 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path string, acc *models.Account, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if acc != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, acc))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, Options{}, nil)

	w := s.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	acc := fixtures.Account(t, s.db, "ada@example.com", models.RoleCustomer)
	w = s.do(t, http.MethodGet, "/api/me", acc, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", decode(t, w)["email"])
}

func TestCreateBooking(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	agent := fixtures.Account(t, s.db, "agent@example.com", models.RoleAgent)
	l := fixtures.Listing(t, s.db, agent, models.ListingShortlet, "100000")
	guest := fixtures.AccountWithCredit(t, s.db, "guest@example.com", "500000")
	other := fixtures.AccountWithCredit(t, s.db, "other@example.com", "500000")
	poor := fixtures.AccountWithCredit(t, s.db, "poor@example.com", "1000")

	body := gin.H{"property_id": l.ID, "start_date": "2099-01-10", "end_date": "2099-01-13"}
	w := s.do(t, http.MethodPost, "/api/bookings", guest, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode(t, w)
	assert.Equal(t, "paid", got["status"])
	total, err := decimal.NewFromString(got["total_price"].(string))
	require.NoError(t, err)
	assert.True(t, total.Equal(ledger.MustMoney("300000")), total.String())

	w = s.do(t, http.MethodPost, "/api/bookings", other, gin.H{"property_id": l.ID, "start_date": "2099-01-12", "end_date": "2099-01-14"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "date_conflict", decode(t, w)["code"])

	w = s.do(t, http.MethodPost, "/api/bookings", poor, gin.H{"property_id": l.ID, "start_date": "2099-02-01", "end_date": "2099-02-03"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = s.do(t, http.MethodPost, "/api/bookings", guest, gin.H{"property_id": l.ID, "start_date": "2099-02-03", "end_date": "2099-02-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	customer := fixtures.Account(t, s.db, "c@example.com", models.RoleCustomer)
	admin := fixtures.Account(t, s.db, "admin@example.com", models.RoleAdmin)

	w := s.do(t, http.MethodGet, "/api/admin/dashboard", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListingApprovalFlow(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	agent := fixtures.Account(t, s.db, "agent@example.com", models.RoleAgent)
	admin := fixtures.Account(t, s.db, "admin@example.com", models.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/listings", agent, gin.H{
		"title":         "Ikoyi flat",
		"location":      "Ikoyi",
		"price":         "75000",
		"property_type": "shortlet",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	w = s.do(t, http.MethodGet, "/api/listings", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var public []models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	assert.Empty(t, public)

	w = s.do(t, http.MethodPost, "/api/admin/listings/"+strconv.Itoa(int(id))+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/listings/"+strconv.Itoa(int(id)), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func webhookBody(t *testing.T, txRef, status string) []byte {
	t.Helper()
	b, err := json.Marshal(gin.H{
		"event": "charge.completed",
		"data":  gin.H{"id": 42, "tx_ref": txRef, "status": status, "amount": 200000, "currency": "NGN"},
	})
	require.NoError(t, err)
	return b
}

func postWebhook(s *testServer, body []byte, hash string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if hash != "" {
		req.Header.Set("verif-hash", hash)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func pendingBooking(t *testing.T, db *gorm.DB) *models.Booking {
	t.Helper()
	agent := fixtures.Account(t, db, "agent@example.com", models.RoleAgent)
	guest := fixtures.Account(t, db, "guest@example.com", models.RoleCustomer)
	l := fixtures.Listing(t, db, agent, models.ListingShortlet, "100000")
	r := fixtures.Range(t, "2099-03-01", "2099-03-03")
	slot := models.BookingSlot(l.ID, r)
	b := &models.Booking{
		AccountID:  guest.ID,
		ListingID:  l.ID,
		StartDate:  r.Start,
		EndDate:    r.End,
		TotalPrice: ledger.MustMoney("200000"),
		Status:     models.BookingPending,
		ActiveSlot: &slot,
		TxRef:      "BKG-webhook",
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

func TestWebhook_Synchronous(t *testing.T) {
	s := newTestServer(t, Options{WebhookHash: "s3cret"}, nil)
	b := pendingBooking(t, s.db)

	w := postWebhook(s, webhookBody(t, b.TxRef, "successful"), "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postWebhook(s, webhookBody(t, b.TxRef, "failed"), "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", decode(t, w)["result"])

	w = postWebhook(s, webhookBody(t, b.TxRef, "successful"), "s3cret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "booking_paid", decode(t, w)["result"])

	w = postWebhook(s, webhookBody(t, b.TxRef, "successful"), "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_settled", decode(t, w)["result"])

	var reloaded models.Booking
	fixtures.Reload(t, s.db, &reloaded, b.ID)
	assert.Equal(t, models.BookingPaid, reloaded.Status)

	var commissions int64
	require.NoError(t, s.db.Model(&models.Commission{}).Where("booking_id = ?", b.ID).Count(&commissions).Error)
	assert.Equal(t, int64(1), commissions)

	w = postWebhook(s, webhookBody(t, "BKG-unknown", "successful"), "s3cret")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postWebhook(s, []byte("{not json"), "s3cret")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_Queued(t *testing.T) {
	q := queue.NewSettlementQueue(1, fixtures.Logger())
	s := newTestServer(t, Options{Settlements: q}, nil)

	w := postWebhook(s, webhookBody(t, "BKG-one", "successful"), "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, q.Len())

	w = postWebhook(s, webhookBody(t, "BKG-two", "successful"), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebhook_RateLimited(t *testing.T) {
	s := newTestServer(t, Options{}, NewRateLimiter(0.001, 2))
	body := webhookBody(t, "BKG-none", "failed")

	assert.Equal(t, http.StatusOK, postWebhook(s, body, "").Code)
	assert.Equal(t, http.StatusOK, postWebhook(s, body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, postWebhook(s, body, "").Code)
}

func TestSwitchRole(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	acc := fixtures.Account(t, s.db, "c@example.com", models.RoleCustomer)

	w := s.do(t, http.MethodPost, "/api/account/role", acc, gin.H{"role": "AGENT"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode(t, w)
	assert.Equal(t, "AGENT", got["role"])
	assert.Equal(t, true, got["re_verification_required"])

	w = s.do(t, http.MethodPost, "/api/account/role", acc, gin.H{"role": "ADMIN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, Options{}, nil)

	w := s.do(t, http.MethodPost, "/api/accounts", nil, gin.H{"email": "New@Example.com", "full_name": "New Person"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode(t, w)
	assert.Equal(t, "new@example.com", got["email"])
	assert.Equal(t, "CUSTOMER", got["role"])

	w = s.do(t, http.MethodPost, "/api/accounts", nil, gin.H{"email": "new@example.com", "full_name": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/accounts", nil, gin.H{"email": "boss@example.com", "full_name": "Boss", "role": "ADMIN"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/accounts", nil, gin.H{"email": "x@example.com", "full_name": "X", "role": "pilot"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	admin := fixtures.Account(t, s.db, "admin@example.com", models.RoleAdmin)
	w = s.do(t, http.MethodPost, "/api/admin/accounts", admin, gin.H{"email": "boss@example.com", "full_name": "Boss", "role": "ADMIN"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "ADMIN", decode(t, w)["role"])
}

func TestAgentVerificationFlow(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	agent := fixtures.Account(t, s.db, "agent@example.com", models.RoleAgent)
	require.NoError(t, s.db.Model(agent).Update("is_verified", false).Error)
	admin := fixtures.Account(t, s.db, "admin@example.com", models.RoleAdmin)

	docs := gin.H{
		"valid_id":               "https://files.example.com/id.pdf",
		"cac_certificate":        "https://files.example.com/cac.pdf",
		"proof_of_location":      "https://files.example.com/bill.pdf",
		"property_ownership_doc": "https://files.example.com/deed.pdf",
	}
	w := s.do(t, http.MethodPost, "/api/verification", agent, docs)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := strconv.Itoa(int(decode(t, w)["id"].(float64)))

	w = s.do(t, http.MethodPost, "/api/verification", agent, docs)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/verifications/"+id+"/reject", admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/verifications/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/me", agent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_verified"])
}

func TestReviewsAndFavorites(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	agent := fixtures.Account(t, s.db, "agent@example.com", models.RoleAgent)
	guest := fixtures.Account(t, s.db, "guest@example.com", models.RoleCustomer)
	admin := fixtures.Account(t, s.db, "admin@example.com", models.RoleAdmin)
	l := fixtures.Listing(t, s.db, agent, models.ListingShortlet, "10000")
	estate := fixtures.InvestmentListing(t, s.db, agent, "1000000")

	w := s.do(t, http.MethodPost, "/api/reviews", guest, gin.H{"review_type": "agent", "agent": agent.ID, "rating": 5, "comment": "Great host"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := strconv.Itoa(int(decode(t, w)["id"].(float64)))

	path := "/api/reviews?agent=" + strconv.Itoa(int(agent.ID))
	w = s.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var public []models.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	assert.Empty(t, public)

	w = s.do(t, http.MethodPost, "/api/admin/reviews/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, path, nil, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	assert.Len(t, public, 1)

	w = s.do(t, http.MethodPost, "/api/favorites", guest, gin.H{"property_id": estate.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/favorites", guest, gin.H{"property_id": l.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	favID := strconv.Itoa(int(decode(t, w)["id"].(float64)))

	w = s.do(t, http.MethodDelete, "/api/favorites/"+favID, guest, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
