package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proptx/server/internal/gift"
)

type createGiftRequest struct {
	ListingID      uint   `json:"property_id" binding:"required"`
	RecipientEmail string `json:"recipient_email" binding:"required"`
	Message        string `json:"message"`
}

type reassignGiftRequest struct {
	NewEmail string `json:"new_email" binding:"required"`
}

func (h *Handler) CreateGift(c *gin.Context) {
	var req createGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, err := h.gifts.Create(c.Request.Context(), currentAccount(c).ID, req.ListingID, req.RecipientEmail, req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) ListGifts(c *gin.Context) {
	gifts, err := h.gifts.ListForAccount(c.Request.Context(), currentAccount(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gifts)
}

func (h *Handler) DecideGift(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	g, err := h.gifts.Decide(c.Request.Context(), id, currentAccount(c).ID, gift.Action(c.Param("action")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Gift " + string(g.Status), "gift": g})
}

func (h *Handler) ReassignGift(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req reassignGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, err := h.gifts.Reassign(c.Request.Context(), id, currentAccount(c).ID, req.NewEmail)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Gift successfully reassigned.", "gift": g})
}

func (h *Handler) ExpireGifts(c *gin.Context) {
	result, err := h.gifts.ExpireOldGifts(c.Request.Context(), h.gifts.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
