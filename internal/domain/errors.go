package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller-fixable conditions
var (
	// ErrReplyTooLong is returned when a reply body exceeds MaxReplyLength
	ErrReplyTooLong = errors.New("reply exceeds maximum length of 4096 characters")

	// ErrMissingRefreshToken is returned when the provider omits a refresh token
	// during the authorization exchange; the flow must be restarted with consent
	ErrMissingRefreshToken = errors.New("authorization response did not include a refresh token")

	// ErrTenantNotConnected is returned when an operation requires Google
	// credentials and the tenant has none on file
	ErrTenantNotConnected = errors.New("tenant has no google connection")

	// ErrUnauthorized is returned when the upstream API rejects the access token
	ErrUnauthorized = errors.New("upstream rejected access token")

	// ErrUpstreamUnavailable is returned after retries are exhausted on a
	// network or 5xx failure
	ErrUpstreamUnavailable = errors.New("upstream api unavailable")

	// ErrReviewPosted is returned when a reply edit is attempted after the
	// reply has already been posted to Google
	ErrReviewPosted = errors.New("reply already posted, text can no longer be edited")

	// ErrEmptyReply is returned when posting is attempted with no reply text
	ErrEmptyReply = errors.New("review has no reply text to post")

	// ErrReplyNotApproved is returned when posting is attempted before the
	// reply passed the approval workflow
	ErrReplyNotApproved = errors.New("reply has not been approved for posting")

	// ErrReplyNotPosted is returned when a delete is attempted for a reply
	// that was never posted upstream
	ErrReplyNotPosted = errors.New("reply has not been posted to google")
)

// QuotaExceededError indicates the upstream hard-refused a call for quota reasons
type QuotaExceededError struct {
	RetryAfterSeconds int
	Message           string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded, retry after %ds: %s", e.RetryAfterSeconds, e.Message)
}

// CooldownActiveError indicates a call was rejected locally because a prior
// quota failure is still in effect. No network call was made.
type CooldownActiveError struct {
	RemainingSeconds int
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("quota cooldown active, retry in %ds", e.RemainingSeconds)
}

// IsQuotaExceeded reports whether err is a quota-exceeded failure
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsCooldownActive reports whether err is a local cooldown rejection
func IsCooldownActive(err error) bool {
	var ce *CooldownActiveError
	return errors.As(err, &ce)
}
