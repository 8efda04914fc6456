package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/google"
	"github.com/reviewloop/review-service/internal/repository"
	"go.uber.org/zap"
)

// replyService implements ReplyService
type replyService struct {
	tenants   repository.TenantRepository
	locations repository.LocationRepository
	reviews   repository.ReviewRepository
	client    GoogleClient
	gate      CooldownGate
	quota     QuotaChecker
	tokens    TokenSource
	logger    *zap.Logger
}

// NewReplyService creates the reply workflow service
func NewReplyService(
	tenants repository.TenantRepository,
	locations repository.LocationRepository,
	reviews repository.ReviewRepository,
	client GoogleClient,
	gate CooldownGate,
	quotaChecker QuotaChecker,
	tokens TokenSource,
	logger *zap.Logger,
) ReplyService {
	return &replyService{
		tenants:   tenants,
		locations: locations,
		reviews:   reviews,
		client:    client,
		gate:      gate,
		quota:     quotaChecker,
		tokens:    tokens,
		logger:    logger,
	}
}

func (s *replyService) ListReviews(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Review, error) {
	return s.reviews.ListByTenant(ctx, tenantID, limit, offset)
}

// UpdateReply writes the reply text fields present in the request. Posted
// replies are frozen and must be deleted upstream before editing.
func (s *replyService) UpdateReply(ctx context.Context, tenantID, reviewID string, req *dto.UpdateReplyRequest) (*domain.Review, error) {
	review, err := s.tenantReview(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if review.PostedToGoogle {
		return nil, domain.ErrReviewPosted
	}

	for _, text := range []*string{req.DraftReply, req.EditedReply, req.FinalReply} {
		if text != nil && utf8.RuneCountInString(*text) > domain.MaxReplyLength {
			return nil, domain.ErrReplyTooLong
		}
	}

	now := time.Now()
	if req.DraftReply != nil {
		review.DraftReply = req.DraftReply
		review.DraftGeneratedAt = &now
	}
	if req.EditedReply != nil {
		review.EditedReply = req.EditedReply
	}
	if req.FinalReply != nil {
		review.FinalReply = req.FinalReply
	}

	if err := s.reviews.UpdateReplyFields(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to update reply: %w", err)
	}
	return review, nil
}

// Approve freezes the current reply text as final and marks it ready to post
func (s *replyService) Approve(ctx context.Context, tenantID, reviewID, approver string) (*domain.Review, error) {
	review, err := s.tenantReview(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if review.PostedToGoogle {
		return nil, domain.ErrReviewPosted
	}

	text := review.ReplyText()
	if text == "" {
		return nil, domain.ErrEmptyReply
	}

	now := time.Now()
	review.FinalReply = &text
	review.ApprovalStatus = domain.ApprovalApproved
	review.ApprovedBy = &approver
	review.ApprovedAt = &now

	if err := s.reviews.UpdateReplyFields(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to approve reply: %w", err)
	}
	return review, nil
}

func (s *replyService) Reject(ctx context.Context, tenantID, reviewID, approver string) (*domain.Review, error) {
	review, err := s.tenantReview(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if review.PostedToGoogle {
		return nil, domain.ErrReviewPosted
	}

	now := time.Now()
	review.ApprovalStatus = domain.ApprovalRejected
	review.ApprovedBy = &approver
	review.ApprovedAt = &now

	if err := s.reviews.UpdateReplyFields(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to reject reply: %w", err)
	}
	return review, nil
}

// PostReply publishes an approved reply upstream and records the result
func (s *replyService) PostReply(ctx context.Context, tenantID, reviewID string) (*dto.PostReplyResponse, error) {
	review, err := s.tenantReview(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if review.PostedToGoogle {
		return nil, domain.ErrReviewPosted
	}
	if review.ApprovalStatus != domain.ApprovalApproved {
		return nil, domain.ErrReplyNotApproved
	}

	text := review.ReplyText()
	if text == "" {
		return nil, domain.ErrEmptyReply
	}

	location, err := s.locations.GetByID(ctx, review.LocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load location: %w", err)
	}

	result, err := s.callUpstream(ctx, tenantID, func(token string) (*google.ReplyResult, error) {
		return s.client.PostReply(ctx, location.GoogleAccountID, location.GoogleLocationID, review.GoogleReviewID, text, token)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !result.UpdateTime.IsZero() {
		now = result.UpdateTime
	}

	// The upstream reply is a singleton nested under the review resource
	replyID := review.GoogleReviewID + "/reply"

	review.FinalReply = &text
	review.ApprovalStatus = domain.ApprovalPosted
	review.PostedToGoogle = true
	review.PostedAt = &now
	review.GoogleReplyID = &replyID
	review.HasReply = true

	if err := s.reviews.UpdateReplyFields(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to record posted reply: %w", err)
	}
	if err := s.reviews.UpdateUpstreamFields(ctx, review); err != nil {
		s.logger.Error("failed to update has_reply flag",
			zap.String("review_id", review.ID),
			zap.Error(err),
		)
	}

	return &dto.PostReplyResponse{
		ReviewID:      review.ID,
		GoogleReplyID: replyID,
		PostedAt:      now,
	}, nil
}

// DeleteReply removes a posted reply upstream and reopens the local workflow.
// An upstream not-found is treated as already deleted.
func (s *replyService) DeleteReply(ctx context.Context, tenantID, reviewID string) error {
	review, err := s.tenantReview(ctx, tenantID, reviewID)
	if err != nil {
		return err
	}
	if !review.PostedToGoogle {
		return domain.ErrReplyNotPosted
	}

	location, err := s.locations.GetByID(ctx, review.LocationID)
	if err != nil {
		return fmt.Errorf("failed to load location: %w", err)
	}

	_, err = s.callUpstream(ctx, tenantID, func(token string) (*google.ReplyResult, error) {
		return nil, s.client.DeleteReply(ctx, location.GoogleAccountID, location.GoogleLocationID, review.GoogleReviewID, token)
	})
	if err != nil && !errors.Is(err, google.ErrReplyNotFound) {
		return err
	}

	review.ApprovalStatus = domain.ApprovalApproved
	review.PostedToGoogle = false
	review.PostedAt = nil
	review.GoogleReplyID = nil
	review.HasReply = false

	if err := s.reviews.UpdateReplyFields(ctx, review); err != nil {
		return fmt.Errorf("failed to record deleted reply: %w", err)
	}
	if err := s.reviews.UpdateUpstreamFields(ctx, review); err != nil {
		s.logger.Error("failed to update has_reply flag",
			zap.String("review_id", review.ID),
			zap.Error(err),
		)
	}
	return nil
}

// callUpstream runs one mutating Google call under the full admission chain:
// cooldown, then quota, then a valid token, with a single refresh-and-retry
// on a rejected token and cooldown activation on a quota failure.
func (s *replyService) callUpstream(ctx context.Context, tenantID string, fn func(token string) (*google.ReplyResult, error)) (*google.ReplyResult, error) {
	if remaining, err := s.gate.Check(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("failed to check cooldown: %w", err)
	} else if remaining > 0 {
		return nil, &domain.CooldownActiveError{RemainingSeconds: ceilSeconds(remaining)}
	}

	if decision := s.quota.ShouldAllow(); !decision.Allowed {
		return nil, &domain.QuotaExceededError{
			RetryAfterSeconds: decision.RetryAfterSeconds,
			Message:           decision.Reason,
		}
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if !tenant.IsConnected() {
		return nil, domain.ErrTenantNotConnected
	}

	token := ""
	if tenant.AccessToken != nil && !tenant.TokenExpired() {
		token = *tenant.AccessToken
	} else if token, err = s.tokens.Refresh(ctx, tenantID); err != nil {
		return nil, err
	}

	result, err := fn(token)
	if errors.Is(err, domain.ErrUnauthorized) {
		if token, err = s.tokens.Refresh(ctx, tenantID); err != nil {
			return nil, err
		}
		result, err = fn(token)
	}

	if domain.IsQuotaExceeded(err) {
		var quotaErr *domain.QuotaExceededError
		errors.As(err, &quotaErr)
		if gateErr := s.gate.Activate(ctx, tenantID, time.Duration(quotaErr.RetryAfterSeconds)*time.Second); gateErr != nil {
			s.logger.Error("failed to activate cooldown", zap.Error(gateErr))
		}
	}
	return result, err
}

// tenantReview loads a review and verifies it belongs to the tenant
func (s *replyService) tenantReview(ctx context.Context, tenantID, reviewID string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return review, nil
}
