package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"proptx/server/internal/ledger"
)

type createInvestmentRequest struct {
	ListingID   uint   `json:"property_id" binding:"required"`
	PaymentPlan string `json:"payment_plan" binding:"required"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type recordROIRequest struct {
	InvestmentID uint            `json:"investment" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	DatePaid     string          `json:"date_paid"`
	Note         string          `json:"note"`
}

type issueRefundRequest struct {
	AccountID uint            `json:"user_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (h *Handler) CreateInvestment(c *gin.Context) {
	var req createInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inv, err := h.investments.Create(c.Request.Context(), currentAccount(c).ID, req.ListingID, req.PaymentPlan)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListInvestments(c *gin.Context) {
	investments, err := h.investments.ListForInvestor(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, investments)
}

func (h *Handler) TopUpInvestment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inv, err := h.investments.TopUp(c.Request.Context(), id, currentAccount(c).ID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Top-up successful",
		"new_balance": inv.RemainingBalance.StringFixed(2),
		"status":      inv.Status,
	})
}

func (h *Handler) ListROI(c *gin.Context) {
	acc := currentAccount(c)
	investorID := acc.ID
	if acc.IsAdmin() {
		investorID = 0
	}
	rois, err := h.investments.ListROI(c.Request.Context(), investorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rois)
}

func (h *Handler) RecordROI(c *gin.Context) {
	var req recordROIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var paidOn time.Time
	if req.DatePaid != "" {
		d, err := ledger.ParseDate(req.DatePaid)
		if err != nil {
			h.respondError(c, err)
			return
		}
		paidOn = d
	}
	roi, err := h.investments.RecordROI(c.Request.Context(), req.InvestmentID, req.Amount, paidOn, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, roi)
}

func (h *Handler) ListRefunds(c *gin.Context) {
	acc := currentAccount(c)
	accountID := acc.ID
	if acc.IsAdmin() {
		accountID = 0
	}
	logs, err := h.refunds.List(c.Request.Context(), accountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) IssueRefund(c *gin.Context) {
	var req issueRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.refunds.Issue(c.Request.Context(), currentAccount(c).ID, req.AccountID, req.Amount, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
