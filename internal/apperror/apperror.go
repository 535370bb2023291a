package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the boundary layer can pick a transport status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindValidationFailed
	KindPermissionDenied
	KindConflictDetected
	KindInsufficientFunds
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindValidationFailed:
		return "validation_failed"
	case KindPermissionDenied:
		return "permission_denied"
	case KindConflictDetected:
		return "conflict_detected"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "internal"
	}
}

// Error is a classified domain failure. Two errors match under errors.Is
// when their codes are equal, so sentinels survive wrapping and Withf.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Withf returns a copy of e with a more specific message.
func (e *Error) Withf(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Code reports the stable code of err, or "internal".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

var (
	// Booking
	ErrBookingNotFound    = New(KindNotFound, "booking_not_found", "booking not found")
	ErrListingUnavailable = New(KindValidationFailed, "listing_unavailable", "listing not available for short-let booking")
	ErrDateConflict       = New(KindConflictDetected, "date_conflict", "this date range is already booked")
	ErrInvalidRange       = New(KindValidationFailed, "invalid_range", "invalid date range")
	ErrInsufficientCredit = New(KindInsufficientFunds, "insufficient_credit", "insufficient shortlet credit to book this listing")
	ErrAlreadyCancelled   = New(KindInvalidState, "already_cancelled", "booking is already cancelled")
	ErrBookingStarted     = New(KindInvalidState, "booking_started", "cannot cancel a booking that has already started")

	// Commission
	ErrCommissionNotFound         = New(KindNotFound, "commission_not_found", "commission not found")
	ErrNotOwner                   = New(KindNotFound, "not_owner", "not found or not yours")
	ErrAlreadyWithdrawn           = New(KindInvalidState, "already_withdrawn", "commission has already been withdrawn")
	ErrWithdrawalAlreadyRequested = New(KindInvalidState, "withdrawal_already_requested", "withdrawal already requested")
	ErrWithdrawalNotRequested     = New(KindInvalidState, "withdrawal_not_requested", "no such pending withdrawal")
	ErrNoWallet                   = New(KindPermissionDenied, "no_wallet", "only agents have wallets")

	// Gift
	ErrGiftNotFound       = New(KindNotFound, "gift_not_found", "gift not found or already handled")
	ErrListingNotApproved = New(KindValidationFailed, "listing_not_approved", "listing must be approved")
	ErrAlreadyReassigned  = New(KindInvalidState, "already_reassigned", "gift has already been reassigned")
	ErrInvalidAction      = New(KindValidationFailed, "invalid_action", "invalid action")
	ErrInvalidEmail       = New(KindValidationFailed, "invalid_email", "a recipient email is required")

	// Investment
	ErrInvestmentNotFound   = New(KindNotFound, "investment_not_found", "investment not found")
	ErrNotInvestor          = New(KindPermissionDenied, "not_investor", "only investors can invest in listings")
	ErrMissingCostPrice     = New(KindValidationFailed, "missing_cost_price", "listing does not have a cost price set")
	ErrInvalidPlan          = New(KindValidationFailed, "invalid_plan", "invalid payment plan")
	ErrDuplicateInvestment  = New(KindConflictDetected, "duplicate_investment", "investment in this listing already exists")
	ErrInvalidAmount        = New(KindValidationFailed, "invalid_amount", "amount must be greater than zero")
	ErrAlreadyCompleted     = New(KindInvalidState, "already_completed", "investment is already completed")
	ErrAmountExceedsBalance = New(KindValidationFailed, "amount_exceeds_balance", "amount exceeds remaining balance")

	// Accounts and listings
	ErrAccountNotFound = New(KindNotFound, "account_not_found", "account not found")
	ErrListingNotFound = New(KindNotFound, "listing_not_found", "listing not found")
	ErrInvalidRole     = New(KindValidationFailed, "invalid_role", "invalid role")
	ErrInvalidListing  = New(KindValidationFailed, "invalid_listing", "invalid listing")
	ErrDuplicateEmail  = New(KindConflictDetected, "duplicate_email", "an account with this email already exists")
	ErrForbidden       = New(KindPermissionDenied, "forbidden", "permission denied")
	ErrMissingReason   = New(KindValidationFailed, "missing_reason", "a reason is required")

	// Agent verification
	ErrVerificationNotFound  = New(KindNotFound, "verification_not_found", "verification not found")
	ErrNotAgent              = New(KindPermissionDenied, "not_agent", "only agents can submit verification documents")
	ErrAlreadySubmitted      = New(KindConflictDetected, "already_submitted", "verification documents were already submitted")
	ErrInvalidDocument       = New(KindValidationFailed, "invalid_document", "every verification document must be an http(s) URL")
	ErrAlreadyVerified       = New(KindInvalidState, "already_verified", "verification is already approved")
	ErrVerificationNotActive = New(KindInvalidState, "verification_not_active", "verification was already rejected")

	// Reviews and favorites
	ErrReviewNotFound     = New(KindNotFound, "review_not_found", "review not found or already approved")
	ErrInvalidRating      = New(KindValidationFailed, "invalid_rating", "rating must be between 1 and 5")
	ErrInvalidReview      = New(KindValidationFailed, "invalid_review", "invalid review")
	ErrFavoriteNotAllowed = New(KindPermissionDenied, "favorite_not_allowed", "customers cannot favorite investment listings")
	ErrDuplicateFavorite  = New(KindConflictDetected, "duplicate_favorite", "listing is already a favorite")
	ErrFavoriteNotFound   = New(KindNotFound, "favorite_not_found", "favorite not found")

	// Payments
	ErrPaymentNotVerified = New(KindValidationFailed, "payment_not_verified", "payment verification failed")
	ErrInvalidSignature   = New(KindPermissionDenied, "invalid_signature", "invalid webhook signature")
	ErrAlreadySettled     = New(KindInvalidState, "already_settled", "payment has already been settled")
)
