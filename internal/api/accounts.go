package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proptx/server/internal/apperror"
	"proptx/server/internal/listing"
	"proptx/server/internal/models"
)

type createAccountRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"`
}

type switchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Register creates an account. Admin accounts can only be created by an
// admin through CreateAccount.
func (h *Handler) Register(c *gin.Context) {
	h.createAccount(c, false)
}

func (h *Handler) CreateAccount(c *gin.Context) {
	h.createAccount(c, true)
}

func (h *Handler) createAccount(c *gin.Context, allowAdmin bool) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role := models.RoleCustomer
	if req.Role != "" {
		var ok bool
		if role, ok = models.ParseRole(req.Role); !ok {
			h.respondError(c, apperror.ErrInvalidRole)
			return
		}
	}
	if role == models.RoleAdmin && !allowAdmin {
		h.respondError(c, apperror.ErrForbidden.Withf("you are not allowed to create admin users"))
		return
	}

	acc, err := h.accounts.Create(c.Request.Context(), req.Email, req.FullName, role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentAccount(c))
}

func (h *Handler) SwitchRole(c *gin.Context) {
	var req switchRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		h.respondError(c, apperror.ErrInvalidRole)
		return
	}

	res, err := h.accounts.SwitchRole(c.Request.Context(), currentAccount(c).ID, role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changed":                  res.Changed,
		"role":                     res.Account.Role,
		"re_verification_required": res.ReverificationRequired,
	})
}

func (h *Handler) PromoteToAdmin(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	acc, err := h.accounts.PromoteToAdmin(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) VerifyAccount(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	acc, err := h.accounts.Verify(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) ListListings(c *gin.Context) {
	f := listing.Filter{Type: models.ListingType(c.Query("type")), OnlyAvailable: c.Query("available") == "true"}
	listings, err := h.listings.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *Handler) PendingListings(c *gin.Context) {
	listings, err := h.listings.List(c.Request.Context(), listing.Filter{IncludePending: true})
	if err != nil {
		h.respondError(c, err)
		return
	}
	pending := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if !l.IsApproved {
			pending = append(pending, l)
		}
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) GetListing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	l, err := h.listings.Get(c.Request.Context(), currentAccount(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	l, err := h.listings.Create(c.Request.Context(), currentAccount(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *Handler) UpdateListing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	l, err := h.listings.Update(c.Request.Context(), currentAccount(c).ID, id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) ApproveListing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	l, err := h.listings.Approve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) RejectListing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.listings.Reject(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing rejected and deleted"})
}

func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.dashboards.For(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	o, err := h.dashboards.Overview(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
