package repository

import (
	"context"
	"time"

	"github.com/reviewloop/review-service/internal/domain"
)

// TenantRepository defines methods for tenant operations
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	UpdateCredentials(ctx context.Context, tenantID string, creds *domain.Credentials) error
	ClearCredentials(ctx context.Context, tenantID string) error
	UpdateSyncState(ctx context.Context, tenantID string, lastSyncAt time.Time, initialSyncDone bool) error
}

// LocationRepository defines methods for location operations
type LocationRepository interface {
	Upsert(ctx context.Context, location *domain.Location) error
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.Location, error)
}

// ReviewRepository defines methods for review operations.
// Upstream-authoritative and locally-owned fields are updated through
// separate methods so a sync can never touch reply workflow state.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	GetByGoogleID(ctx context.Context, googleReviewID string) (*domain.Review, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Review, error)
	UpdateUpstreamFields(ctx context.Context, review *domain.Review) error
	UpdateReplyFields(ctx context.Context, review *domain.Review) error
}
