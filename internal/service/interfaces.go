package service

import (
	"context"
	"time"

	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/google"
	"github.com/reviewloop/review-service/internal/quota"
)

// GoogleClient is the upstream API surface the services depend on
type GoogleClient interface {
	ListAccounts(ctx context.Context, accessToken string) ([]google.Account, error)
	ListLocations(ctx context.Context, accountID, accessToken string) ([]google.Location, error)
	ListReviews(ctx context.Context, accountID, locationID, accessToken string, opts google.ListReviewsOptions) (*google.ReviewPage, error)
	PostReply(ctx context.Context, accountID, locationID, reviewID, text, accessToken string) (*google.ReplyResult, error)
	DeleteReply(ctx context.Context, accountID, locationID, reviewID, accessToken string) error
}

// CooldownGate blocks upstream calls for a tenant after a hard quota failure
type CooldownGate interface {
	Activate(ctx context.Context, tenantID string, retryAfter time.Duration) error
	Check(ctx context.Context, tenantID string) (time.Duration, error)
	ClearAll(ctx context.Context) (int, error)
}

// QuotaChecker provides pre-call admission decisions and usage reporting
type QuotaChecker interface {
	ShouldAllow() quota.Decision
	Stats() quota.Stats
	UsageReport(start, end time.Time) (*quota.Report, error)
}

// TokenSource supplies a valid access token for a tenant, refreshing at most
// once concurrently per tenant
type TokenSource interface {
	Refresh(ctx context.Context, tenantID string) (string, error)
}

// OAuthService owns the Google OAuth lifecycle for tenants
type OAuthService interface {
	TokenSource
	BeginAuthorization(ctx context.Context, tenantID string) (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) error
	Disconnect(ctx context.Context, tenantID string) error
	ConnectionStatus(ctx context.Context, tenantID string) (*dto.ConnectionStatusResponse, error)
}

// SyncService reconciles upstream reviews into local storage
type SyncService interface {
	SyncReviews(ctx context.Context, tenantID string) (*dto.SyncResult, error)
}

// ReplyService drives the reply approval workflow
type ReplyService interface {
	ListReviews(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Review, error)
	UpdateReply(ctx context.Context, tenantID, reviewID string, req *dto.UpdateReplyRequest) (*domain.Review, error)
	Approve(ctx context.Context, tenantID, reviewID, approver string) (*domain.Review, error)
	Reject(ctx context.Context, tenantID, reviewID, approver string) (*domain.Review, error)
	PostReply(ctx context.Context, tenantID, reviewID string) (*dto.PostReplyResponse, error)
	DeleteReply(ctx context.Context, tenantID, reviewID string) error
}
