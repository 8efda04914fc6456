package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/repository"
)

// respondError maps a service error onto the HTTP response. Quota and
// cooldown failures carry Retry-After so clients can back off correctly.
func respondError(c *gin.Context, err error) {
	var quotaErr *domain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		retryAfter := quotaErr.RetryAfterSeconds
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:             "Quota exceeded",
			Message:           err.Error(),
			RetryAfterSeconds: &retryAfter,
		})
		return
	}

	var cooldownErr *domain.CooldownActiveError
	if errors.As(err, &cooldownErr) {
		retryAfter := cooldownErr.RemainingSeconds
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:             "Cooldown active",
			Message:           err.Error(),
			RetryAfterSeconds: &retryAfter,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrTenantNotConnected):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "Not connected",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrReviewPosted),
		errors.Is(err, domain.ErrReplyNotApproved),
		errors.Is(err, domain.ErrReplyNotPosted):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "Conflict",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrReplyTooLong),
		errors.Is(err, domain.ErrEmptyReply),
		errors.Is(err, domain.ErrMissingRefreshToken):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Upstream unavailable",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}
}
