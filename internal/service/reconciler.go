package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/repository"
	"go.uber.org/zap"
)

type fieldOwner int

const (
	ownerUpstream fieldOwner = iota
	ownerLocal
)

// fieldOwnership declares who owns one review field. Upstream-owned entries
// carry an apply function that copies the upstream value and reports whether
// it changed; locally-owned entries carry none and can never be written by
// a sync, whatever the upstream batch contains.
type fieldOwnership struct {
	name  string
	owner fieldOwner
	apply func(local *domain.Review, up domain.UpstreamReview) bool
}

var reviewFieldOwnership = []fieldOwnership{
	{"reviewer_name", ownerUpstream, func(l *domain.Review, u domain.UpstreamReview) bool {
		if l.ReviewerName == u.ReviewerName {
			return false
		}
		l.ReviewerName = u.ReviewerName
		return true
	}},
	{"rating", ownerUpstream, func(l *domain.Review, u domain.UpstreamReview) bool {
		if l.Rating == u.Rating {
			return false
		}
		l.Rating = u.Rating
		return true
	}},
	{"comment", ownerUpstream, func(l *domain.Review, u domain.UpstreamReview) bool {
		if l.Comment == u.Comment {
			return false
		}
		l.Comment = u.Comment
		return true
	}},
	{"reviewed_at", ownerUpstream, func(l *domain.Review, u domain.UpstreamReview) bool {
		if l.ReviewedAt.Equal(u.ReviewedAt) {
			return false
		}
		l.ReviewedAt = u.ReviewedAt
		return true
	}},
	// has_reply is derived: true once a reply exists upstream or was posted
	// locally, so a sync can raise it but never un-set a locally posted reply.
	{"has_reply", ownerUpstream, func(l *domain.Review, u domain.UpstreamReview) bool {
		v := u.HasReply || l.PostedToGoogle
		if l.HasReply == v {
			return false
		}
		l.HasReply = v
		return true
	}},
	{"draft_reply", ownerLocal, nil},
	{"draft_generated_at", ownerLocal, nil},
	{"edited_reply", ownerLocal, nil},
	{"final_reply", ownerLocal, nil},
	{"approved_by", ownerLocal, nil},
	{"approved_at", ownerLocal, nil},
	{"approval_status", ownerLocal, nil},
	{"posted_to_google", ownerLocal, nil},
	{"posted_at", ownerLocal, nil},
	{"google_reply_id", ownerLocal, nil},
}

// mergeUpstream applies every upstream-owned field from the ownership table
// and reports whether anything actually changed
func mergeUpstream(local *domain.Review, up domain.UpstreamReview) bool {
	changed := false
	for _, f := range reviewFieldOwnership {
		if f.owner != ownerUpstream {
			continue
		}
		if f.apply(local, up) {
			changed = true
		}
	}
	return changed
}

// Reconciler merges fetched upstream reviews into local storage without
// touching reply workflow state
type Reconciler struct {
	reviews repository.ReviewRepository
	logger  *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(reviews repository.ReviewRepository, logger *zap.Logger) *Reconciler {
	return &Reconciler{reviews: reviews, logger: logger}
}

// ReconcileLocation upserts one location's upstream batch, keyed by provider
// review id. A review counts as updated only when an upstream-owned field
// actually differs, so re-running the same batch is a no-op.
func (r *Reconciler) ReconcileLocation(ctx context.Context, tenantID, locationID string, batch []domain.UpstreamReview) (created, updated int, err error) {
	for _, up := range batch {
		local, err := r.reviews.GetByGoogleID(ctx, up.GoogleReviewID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return created, updated, fmt.Errorf("failed to load review %s: %w", up.GoogleReviewID, err)
			}

			review := &domain.Review{
				TenantID:       tenantID,
				LocationID:     locationID,
				GoogleReviewID: up.GoogleReviewID,
				ReviewerName:   up.ReviewerName,
				Rating:         up.Rating,
				Comment:        up.Comment,
				ReviewedAt:     up.ReviewedAt,
				HasReply:       up.HasReply,
				ApprovalStatus: domain.ApprovalPending,
			}

			if err := r.reviews.Create(ctx, review); err != nil {
				// A concurrent sync may have inserted the same provider id;
				// fall through to the update path.
				if !errors.Is(err, repository.ErrDuplicateReview) {
					return created, updated, fmt.Errorf("failed to create review %s: %w", up.GoogleReviewID, err)
				}
				local, err = r.reviews.GetByGoogleID(ctx, up.GoogleReviewID)
				if err != nil {
					return created, updated, fmt.Errorf("failed to reload review %s: %w", up.GoogleReviewID, err)
				}
			} else {
				created++
				continue
			}
		}

		if mergeUpstream(local, up) {
			if err := r.reviews.UpdateUpstreamFields(ctx, local); err != nil {
				return created, updated, fmt.Errorf("failed to update review %s: %w", up.GoogleReviewID, err)
			}
			updated++
		}
	}

	r.logger.Debug("location reconciled",
		zap.String("location_id", locationID),
		zap.Int("fetched", len(batch)),
		zap.Int("created", created),
		zap.Int("updated", updated),
	)
	return created, updated, nil
}
