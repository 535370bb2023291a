package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured frontend origins. An empty list allows all.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func SetupRoutes(router *gin.Engine, h *Handler, auth gin.HandlerFunc, webhookLimiter *RateLimiter) {
	api := router.Group("/api")

	api.GET("/listings", h.ListListings)
	api.GET("/listings/:id", h.GetListing)
	api.GET("/reviews", h.ListReviews)
	api.POST("/accounts", h.Register)

	webhook := []gin.HandlerFunc{h.Webhook}
	if webhookLimiter != nil {
		webhook = append([]gin.HandlerFunc{webhookLimiter.Middleware()}, webhook...)
	}
	api.POST("/payments/webhook", webhook...)

	authed := api.Group("", auth)
	{
		authed.GET("/me", h.Me)
		authed.POST("/account/role", h.SwitchRole)
		authed.GET("/dashboard", h.Dashboard)

		authed.POST("/listings", h.CreateListing)
		authed.PUT("/listings/:id", h.UpdateListing)

		authed.POST("/bookings", h.CreateBooking)
		authed.GET("/bookings", h.ListBookings)
		authed.GET("/bookings/:id", h.GetBooking)
		authed.POST("/bookings/:id/cancel", h.CancelBooking)

		authed.GET("/wallet", h.Wallet)
		authed.POST("/commissions/:id/withdraw", h.RequestWithdrawal)

		authed.POST("/gifts", h.CreateGift)
		authed.GET("/gifts", h.ListGifts)
		authed.POST("/gifts/:id/reassign", h.ReassignGift)
		authed.POST("/gifts/:id/respond/:action", h.DecideGift)

		authed.POST("/investments", h.CreateInvestment)
		authed.GET("/investments", h.ListInvestments)
		authed.POST("/investments/:id/topup", h.TopUpInvestment)

		authed.GET("/roi", h.ListROI)
		authed.GET("/refunds", h.ListRefunds)

		authed.POST("/reviews", h.CreateReview)

		authed.GET("/favorites", h.ListFavorites)
		authed.POST("/favorites", h.AddFavorite)
		authed.DELETE("/favorites/:id", h.RemoveFavorite)

		authed.POST("/verification", h.SubmitVerification)
		authed.GET("/verification", h.MyVerification)

		authed.GET("/payments/verify", h.VerifyPayment)
		authed.POST("/payments/initiate", h.InitiatePayment)
	}

	admin := api.Group("/admin", auth, RequireAdmin())
	{
		admin.GET("/dashboard", h.AdminDashboard)

		admin.GET("/listings/pending", h.PendingListings)
		admin.POST("/listings/:id/approve", h.ApproveListing)
		admin.POST("/listings/:id/reject", h.RejectListing)

		admin.POST("/accounts", h.CreateAccount)
		admin.POST("/accounts/:id/promote", h.PromoteToAdmin)
		admin.POST("/accounts/:id/verify", h.VerifyAccount)

		admin.POST("/bookings/:id/paid", h.MarkBookingPaid)
		admin.POST("/bookings/:id/cancel", h.AdminCancelBooking)

		admin.GET("/withdrawals", h.PendingWithdrawals)
		admin.POST("/withdrawals/:id/approve", h.ApproveWithdrawal)

		admin.GET("/verifications", h.PendingVerifications)
		admin.POST("/verifications/:id/approve", h.ApproveVerification)
		admin.POST("/verifications/:id/reject", h.RejectVerification)

		admin.GET("/reviews/pending", h.PendingReviews)
		admin.POST("/reviews/:id/approve", h.ApproveReview)

		admin.POST("/gifts/expire", h.ExpireGifts)

		admin.POST("/roi", h.RecordROI)
		admin.POST("/refunds", h.IssueRefund)
	}
}
