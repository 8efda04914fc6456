package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/reviewloop/review-service/internal/domain"
)

// ErrReplyNotFound is returned when the upstream reports no reply exists for
// the review (deleting an already-deleted reply). The service layer decides
// whether to treat it as a failure.
var ErrReplyNotFound = errors.New("review has no reply upstream")

// defaultRetryAfterSeconds is used when a 429 response carries no Retry-After
const defaultRetryAfterSeconds = 600

// errorFromResponse maps an upstream non-2xx response to the error taxonomy
func errorFromResponse(status int, header http.Header, payload apiError) error {
	msg := payload.Error.Message

	if status == http.StatusTooManyRequests || isQuotaMessage(msg) {
		return &domain.QuotaExceededError{
			RetryAfterSeconds: retryAfterSeconds(header),
			Message:           msg,
		}
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrReplyNotFound, msg)
	}

	if status >= 500 {
		return fmt.Errorf("%w: upstream returned %d: %s", domain.ErrUpstreamUnavailable, status, msg)
	}

	return fmt.Errorf("upstream returned %d: %s", status, msg)
}

// isQuotaMessage matches the provider's quota-exhaustion error text
func isQuotaMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "quota exceeded")
}

// retryAfterSeconds reads the Retry-After response header, falling back to
// the 600s default the provider implies for quota errors
func retryAfterSeconds(header http.Header) int {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return secs
		}
	}
	return defaultRetryAfterSeconds
}
