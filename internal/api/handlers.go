package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proptx/server/internal/account"
	"proptx/server/internal/apperror"
	"proptx/server/internal/booking"
	"proptx/server/internal/commission"
	"proptx/server/internal/dashboard"
	"proptx/server/internal/favorite"
	"proptx/server/internal/gift"
	"proptx/server/internal/investment"
	"proptx/server/internal/listing"
	"proptx/server/internal/models"
	"proptx/server/internal/payment"
	"proptx/server/internal/queue"
	"proptx/server/internal/reconcile"
	"proptx/server/internal/refund"
	"proptx/server/internal/review"
	"proptx/server/internal/verification"
)

const accountKey = "account"

type Handler struct {
	accounts      *account.Service
	listings      *listing.Service
	bookings      *booking.Service
	commissions   *commission.Service
	gifts         *gift.Service
	investments   *investment.Service
	refunds       *refund.Service
	reconciler    *reconcile.Service
	dashboards    *dashboard.Service
	reviews       *review.Service
	favorites     *favorite.Service
	verifications *verification.Service
	payments      *payment.Client
	settlements   *queue.SettlementQueue
	webhookHash   string
	logger        *logrus.Logger
}

// Options wires the payment boundary into the handler. A nil Settlements
// queue makes webhooks reconcile synchronously.
type Options struct {
	Payments    *payment.Client
	Settlements *queue.SettlementQueue
	WebhookHash string
}

func NewHandler(db *gorm.DB, opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	var verifier reconcile.Verifier
	if opts.Payments != nil {
		verifier = opts.Payments
	}

	return &Handler{
		accounts:      account.NewService(db, logger),
		listings:      listing.NewService(db, logger),
		bookings:      booking.NewService(db, logger),
		commissions:   commission.NewService(db, logger),
		gifts:         gift.NewService(db, logger),
		investments:   investment.NewService(db, logger),
		refunds:       refund.NewService(db, logger),
		reconciler:    reconcile.NewService(db, verifier, logger),
		dashboards:    dashboard.NewService(db, logger),
		reviews:       review.NewService(db, logger),
		favorites:     favorite.NewService(db, logger),
		verifications: verification.NewService(db, logger),
		payments:      opts.Payments,
		settlements:   opts.Settlements,
		webhookHash:   opts.WebhookHash,
		logger:        logger,
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidState, apperror.KindConflictDetected:
		return http.StatusConflict
	case apperror.KindValidationFailed:
		return http.StatusBadRequest
	case apperror.KindPermissionDenied:
		return http.StatusForbidden
	case apperror.KindInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
		return
	}

	var appErr *apperror.Error
	errors.As(err, &appErr)
	c.JSON(statusFor(kind), gin.H{"error": appErr.Message, "code": appErr.Code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
}

// idParam reads a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": "bad_request"})
		return 0, false
	}
	return uint(id), true
}

// currentAccount returns the account loaded by AuthMiddleware.
func currentAccount(c *gin.Context) *models.Account {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil
	}
	acc, _ := v.(*models.Account)
	return acc
}
