package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"proptx/server/internal/apperror"
	"proptx/server/internal/payment"
	"proptx/server/internal/queue"
	"proptx/server/internal/reconcile"
)

type initiatePaymentRequest struct {
	TxRef       string `json:"tx_ref" binding:"required"`
	RedirectURL string `json:"redirect_url" binding:"required"`
}

// InitiatePayment opens a hosted checkout for the amount still owed under
// a booking or investment reference.
func (h *Handler) InitiatePayment(c *gin.Context) {
	if h.payments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments are not configured"})
		return
	}
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	acc := currentAccount(c)
	due, err := h.reconciler.AmountDue(c.Request.Context(), acc.ID, req.TxRef)
	if err != nil {
		h.respondError(c, err)
		return
	}

	link, err := h.payments.Initiate(c.Request.Context(), payment.Checkout{
		TxRef:         due.TxRef,
		Amount:        due.Amount,
		RedirectURL:   req.RedirectURL,
		CustomerEmail: acc.Email,
		CustomerName:  acc.FullName,
	})
	if err != nil {
		h.logger.WithError(err).WithField("tx_ref", req.TxRef).Error("Failed to initiate payment")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to initiate payment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_link": link, "tx_ref": due.TxRef, "amount": due.Amount})
}

// VerifyPayment checks a provider transaction and applies it.
func (h *Handler) VerifyPayment(c *gin.Context) {
	if h.payments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments are not configured"})
		return
	}
	txID := c.Query("transaction_id")
	if txID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No transaction ID provided", "code": "bad_request"})
		return
	}

	out, err := h.reconciler.VerifyAndApply(c.Request.Context(), txID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Webhook accepts provider notifications. Actionable settlements are queued
// for the settlement processor, or applied inline when no queue is set.
func (h *Handler) Webhook(c *gin.Context) {
	if !payment.VerifyWebhookSignature(c.GetHeader(payment.SignatureHeader), h.webhookHash) {
		h.respondError(c, apperror.ErrInvalidSignature)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	event, err := payment.ParseWebhook(body)
	if err != nil {
		badRequest(c, err)
		return
	}
	if !event.Actionable() {
		c.JSON(http.StatusOK, reconcile.Outcome{Result: reconcile.ResultIgnored, TxRef: event.Data.TxRef})
		return
	}

	if h.settlements != nil {
		if err := h.settlements.Push(event.Data); err != nil {
			if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
				h.logger.WithError(err).WithField("tx_ref", event.Data.TxRef).Warn("Settlement queue unavailable")
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "try again later"})
				return
			}
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"result": "queued", "tx_ref": event.Data.TxRef})
		return
	}

	out, err := h.reconciler.Apply(c.Request.Context(), event.Data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusOK
	if out.Result == reconcile.ResultNotFound {
		status = http.StatusNotFound
	}
	c.JSON(status, out)
}
