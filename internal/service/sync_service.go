package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/google"
	"github.com/reviewloop/review-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// syncService implements SyncService
type syncService struct {
	tenants    repository.TenantRepository
	locations  repository.LocationRepository
	reconciler *Reconciler
	client     GoogleClient
	gate       CooldownGate
	quota      QuotaChecker
	tokens     TokenSource
	logger     *zap.Logger

	pageSize int
	orderBy  string

	// syncGroup serializes reconciliation per tenant so concurrent sync
	// requests cannot race on first-insert of a new review
	syncGroup singleflight.Group
}

// NewSyncService creates the review synchronization service
func NewSyncService(
	tenants repository.TenantRepository,
	locations repository.LocationRepository,
	reconciler *Reconciler,
	client GoogleClient,
	gate CooldownGate,
	quotaChecker QuotaChecker,
	tokens TokenSource,
	pageSize int,
	orderBy string,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		tenants:    tenants,
		locations:  locations,
		reconciler: reconciler,
		client:     client,
		gate:       gate,
		quota:      quotaChecker,
		tokens:     tokens,
		pageSize:   pageSize,
		orderBy:    orderBy,
		logger:     logger,
	}
}

// SyncReviews reconciles all active locations of the tenant. Concurrent
// callers for the same tenant share one run.
func (s *syncService) SyncReviews(ctx context.Context, tenantID string) (*dto.SyncResult, error) {
	v, err, _ := s.syncGroup.Do(tenantID, func() (any, error) {
		return s.syncTenant(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.SyncResult), nil
}

func (s *syncService) syncTenant(ctx context.Context, tenantID string) (*dto.SyncResult, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if !tenant.IsConnected() {
		return nil, domain.ErrTenantNotConnected
	}

	// The cooldown check comes before anything that could consume rate-limit
	// budget: during a known-bad window not a single call may go out.
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

	accessToken, err := s.currentToken(ctx, tenant)
	if err != nil {
		return nil, err
	}

	locations, err := s.locations.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	result := &dto.SyncResult{SyncedAt: time.Now()}
	refreshed := false

	for _, loc := range locations {
		locResult := dto.LocationSyncResult{
			LocationID:  loc.ID,
			DisplayName: loc.DisplayName,
		}

		// Re-check quota before each location: a long multi-location run can
		// cross the daily or burst boundary mid-way, and the local budget
		// must stop it before the upstream 429 does.
		if decision := s.quota.ShouldAllow(); !decision.Allowed {
			quotaErr := &domain.QuotaExceededError{
				RetryAfterSeconds: decision.RetryAfterSeconds,
				Message:           decision.Reason,
			}
			msg := quotaErr.Error()
			locResult.Error = &msg
			result.Locations = append(result.Locations, locResult)
			break
		}

		batch, err := s.fetchLocation(ctx, loc.GoogleAccountID, loc.GoogleLocationID, accessToken)

		// One refresh-and-retry per sync run on a rejected token; a second
		// rejection is fatal for the affected locations.
		if errors.Is(err, domain.ErrUnauthorized) && !refreshed {
			refreshed = true
			if fresh, refreshErr := s.tokens.Refresh(ctx, tenantID); refreshErr != nil {
				err = refreshErr
			} else {
				accessToken = fresh
				batch, err = s.fetchLocation(ctx, loc.GoogleAccountID, loc.GoogleLocationID, accessToken)
			}
		}

		if domain.IsQuotaExceeded(err) {
			var quotaErr *domain.QuotaExceededError
			errors.As(err, &quotaErr)
			if gateErr := s.gate.Activate(ctx, tenantID, time.Duration(quotaErr.RetryAfterSeconds)*time.Second); gateErr != nil {
				s.logger.Error("failed to activate cooldown", zap.Error(gateErr))
			}
			msg := err.Error()
			locResult.Error = &msg
			result.Locations = append(result.Locations, locResult)
			// Remaining locations are doomed for the same reason; keep what
			// was already fetched and stop calling out.
			break
		}

		if err != nil {
			msg := err.Error()
			locResult.Error = &msg
			result.Locations = append(result.Locations, locResult)
			continue
		}

		created, updated, err := s.reconciler.ReconcileLocation(ctx, tenantID, loc.ID, batch)
		locResult.NewReviews = created
		locResult.UpdatedReviews = updated
		if err != nil {
			msg := err.Error()
			locResult.Error = &msg
		}

		result.Locations = append(result.Locations, locResult)
		result.NewReviews += created
		result.UpdatedReviews += updated
	}

	if err := s.tenants.UpdateSyncState(ctx, tenantID, result.SyncedAt, true); err != nil {
		s.logger.Error("failed to update sync state",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}

	s.logger.Info("review sync finished",
		zap.String("tenant_id", tenantID),
		zap.Int("locations", len(result.Locations)),
		zap.Int("new_reviews", result.NewReviews),
		zap.Int("updated_reviews", result.UpdatedReviews),
	)
	return result, nil
}

// fetchLocation pulls every review page for one location
func (s *syncService) fetchLocation(ctx context.Context, accountID, locationID, accessToken string) ([]domain.UpstreamReview, error) {
	var reviews []domain.UpstreamReview
	pageToken := ""

	for {
		page, err := s.client.ListReviews(ctx, accountID, locationID, accessToken, google.ListReviewsOptions{
			PageSize:  s.pageSize,
			PageToken: pageToken,
			OrderBy:   s.orderBy,
		})
		if err != nil {
			return nil, err
		}

		reviews = append(reviews, page.Reviews...)
		if page.NextPageToken == "" {
			return reviews, nil
		}
		pageToken = page.NextPageToken
	}
}

// currentToken returns a usable access token, refreshing up front when the
// stored one is already expired
func (s *syncService) currentToken(ctx context.Context, tenant *domain.Tenant) (string, error) {
	if tenant.AccessToken != nil && !tenant.TokenExpired() {
		return *tenant.AccessToken, nil
	}
	return s.tokens.Refresh(ctx, tenant.ID)
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}
