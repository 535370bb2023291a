package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proptx/server/internal/ledger"
)

type createBookingRequest struct {
	ListingID uint   `json:"property_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	r, err := ledger.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	b, err := h.bookings.Create(c.Request.Context(), currentAccount(c).ID, req.ListingID, r)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.ListForAccount(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), currentAccount(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), id, currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled", "booking": b})
}

func (h *Handler) AdminCancelBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.AdminCancel(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled", "booking": b})
}

func (h *Handler) MarkBookingPaid(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.MarkPaid(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) Wallet(c *gin.Context) {
	w, err := h.commissions.Wallet(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	cm, err := h.commissions.RequestWithdrawal(c.Request.Context(), id, currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal requested", "commission": cm})
}

func (h *Handler) PendingWithdrawals(c *gin.Context) {
	pending, err := h.commissions.PendingWithdrawals(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	cm, err := h.commissions.ApproveWithdrawal(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal approved", "commission": cm})
}
