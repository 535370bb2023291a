package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"proptx/server/internal/review"
	"proptx/server/internal/verification"
)

type favoriteRequest struct {
	ListingID uint `json:"property_id" binding:"required"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) SubmitVerification(c *gin.Context) {
	var docs verification.Documents
	if err := c.ShouldBindJSON(&docs); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.verifications.Submit(c.Request.Context(), currentAccount(c).ID, docs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) MyVerification(c *gin.Context) {
	v, err := h.verifications.ForAgent(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) PendingVerifications(c *gin.Context) {
	pending, err := h.verifications.Pending(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) ApproveVerification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	v, err := h.verifications.Approve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent is now verified", "verification": v})
}

func (h *Handler) RejectVerification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.verifications.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification rejected", "reason": v.RejectionReason, "verification": v})
}

// ListReviews returns approved reviews, optionally for one listing or agent.
func (h *Handler) ListReviews(c *gin.Context) {
	var f review.Filter
	for param, dst := range map[string]*uint{"property": &f.ListingID, "agent": &f.AgentID} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param, "code": "bad_request"})
			return
		}
		*dst = uint(id)
	}
	reviews, err := h.reviews.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) CreateReview(c *gin.Context) {
	var in review.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	r, err := h.reviews.Create(c.Request.Context(), currentAccount(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) PendingReviews(c *gin.Context) {
	pending, err := h.reviews.Pending(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) ApproveReview(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r, err := h.reviews.Approve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review approved", "review": r})
}

func (h *Handler) ListFavorites(c *gin.Context) {
	favs, err := h.favorites.List(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, favs)
}

func (h *Handler) AddFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fav, err := h.favorites.Add(c.Request.Context(), currentAccount(c).ID, req.ListingID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.favorites.Remove(c.Request.Context(), currentAccount(c).ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
