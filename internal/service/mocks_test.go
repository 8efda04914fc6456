package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/google"
	"github.com/reviewloop/review-service/internal/quota"
	"github.com/reviewloop/review-service/internal/repository"
)

// In-memory test doubles for the repository and upstream interfaces.

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: map[string]*domain.Tenant{}}
}

func (r *fakeTenantRepo) addConnected(id string) *domain.Tenant {
	access := "access-" + id
	refresh := "refresh-" + id
	account := "acc-" + id
	expiry := time.Now().Add(time.Hour)
	t := &domain.Tenant{
		ID:              id,
		Slug:            id,
		DisplayName:     "Tenant " + id,
		GoogleAccountID: &account,
		AccessToken:     &access,
		RefreshToken:    &refresh,
		TokenExpiry:     &expiry,
	}
	r.mu.Lock()
	r.tenants[id] = t
	r.mu.Unlock()
	return t
}

func (r *fakeTenantRepo) Create(ctx context.Context, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *fakeTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == slug {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTenantRepo) UpdateCredentials(ctx context.Context, tenantID string, creds *domain.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return repository.ErrNotFound
	}
	t.GoogleAccountID = &creds.GoogleAccountID
	t.AccessToken = &creds.AccessToken
	t.RefreshToken = &creds.RefreshToken
	t.TokenExpiry = &creds.TokenExpiry
	return nil
}

func (r *fakeTenantRepo) ClearCredentials(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return repository.ErrNotFound
	}
	t.GoogleAccountID = nil
	t.AccessToken = nil
	t.RefreshToken = nil
	t.TokenExpiry = nil
	return nil
}

func (r *fakeTenantRepo) UpdateSyncState(ctx context.Context, tenantID string, lastSyncAt time.Time, initialSyncDone bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return repository.ErrNotFound
	}
	t.LastSyncAt = &lastSyncAt
	t.InitialSyncDone = initialSyncDone
	return nil
}

type fakeLocationRepo struct {
	mu        sync.Mutex
	locations map[string]*domain.Location
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{locations: map[string]*domain.Location{}}
}

func (r *fakeLocationRepo) add(tenantID string) *domain.Location {
	loc := &domain.Location{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		GoogleLocationID: "loc-" + uuid.New().String(),
		GoogleAccountID:  "acc-" + tenantID,
		DisplayName:      "Location",
		IsActive:         true,
	}
	r.mu.Lock()
	r.locations[loc.ID] = loc
	r.mu.Unlock()
	return loc
}

func (r *fakeLocationRepo) Upsert(ctx context.Context, location *domain.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if location.ID == "" {
		location.ID = uuid.New().String()
	}
	r.locations[location.ID] = location
	return nil
}

func (r *fakeLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *loc
	return &copied, nil
}

func (r *fakeLocationRepo) ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Location
	for _, loc := range r.locations {
		if loc.TenantID == tenantID && loc.IsActive {
			copied := *loc
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews map[string]*domain.Review

	upstreamUpdates int
	replyUpdates    int
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: map[string]*domain.Review{}}
}

func (r *fakeReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.GoogleReviewID == review.GoogleReviewID {
			return repository.ErrDuplicateReview
		}
	}
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	copied := *review
	r.reviews[review.ID] = &copied
	return nil
}

func (r *fakeReviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *review
	return &copied, nil
}

func (r *fakeReviewRepo) GetByGoogleID(ctx context.Context, googleReviewID string) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, review := range r.reviews {
		if review.GoogleReviewID == googleReviewID {
			copied := *review
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeReviewRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Review
	for _, review := range r.reviews {
		if review.TenantID == tenantID {
			copied := *review
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) UpdateUpstreamFields(ctx context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reviews[review.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.ReviewerName = review.ReviewerName
	stored.Rating = review.Rating
	stored.Comment = review.Comment
	stored.ReviewedAt = review.ReviewedAt
	stored.HasReply = review.HasReply
	r.upstreamUpdates++
	return nil
}

func (r *fakeReviewRepo) UpdateReplyFields(ctx context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reviews[review.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.DraftReply = review.DraftReply
	stored.DraftGeneratedAt = review.DraftGeneratedAt
	stored.EditedReply = review.EditedReply
	stored.FinalReply = review.FinalReply
	stored.ApprovedBy = review.ApprovedBy
	stored.ApprovedAt = review.ApprovedAt
	stored.ApprovalStatus = review.ApprovalStatus
	stored.PostedToGoogle = review.PostedToGoogle
	stored.PostedAt = review.PostedAt
	stored.GoogleReplyID = review.GoogleReplyID
	r.replyUpdates++
	return nil
}

// fakeGoogleClient scripts upstream responses per call
type fakeGoogleClient struct {
	mu sync.Mutex

	listAccountsCalls int
	listReviewsCalls  int
	postReplyCalls    int
	deleteCalls       int

	// per-call overrides, consulted when set
	listAccountsFn func(call int) ([]google.Account, error)
	listReviewsFn  func(call int, accessToken string) (*google.ReviewPage, error)
	postReplyFn    func(call int, accessToken string) (*google.ReplyResult, error)
	deleteReplyFn  func(call int, accessToken string) error
}

func (c *fakeGoogleClient) ListAccounts(ctx context.Context, accessToken string) ([]google.Account, error) {
	c.mu.Lock()
	c.listAccountsCalls++
	call := c.listAccountsCalls
	c.mu.Unlock()
	if c.listAccountsFn != nil {
		return c.listAccountsFn(call)
	}
	return []google.Account{{Name: "accounts/test-acc", AccountName: "Test"}}, nil
}

func (c *fakeGoogleClient) ListLocations(ctx context.Context, accountID, accessToken string) ([]google.Location, error) {
	return nil, nil
}

func (c *fakeGoogleClient) ListReviews(ctx context.Context, accountID, locationID, accessToken string, opts google.ListReviewsOptions) (*google.ReviewPage, error) {
	c.mu.Lock()
	c.listReviewsCalls++
	call := c.listReviewsCalls
	c.mu.Unlock()
	if c.listReviewsFn != nil {
		return c.listReviewsFn(call, accessToken)
	}
	return &google.ReviewPage{}, nil
}

func (c *fakeGoogleClient) PostReply(ctx context.Context, accountID, locationID, reviewID, text, accessToken string) (*google.ReplyResult, error) {
	c.mu.Lock()
	c.postReplyCalls++
	call := c.postReplyCalls
	c.mu.Unlock()
	if c.postReplyFn != nil {
		return c.postReplyFn(call, accessToken)
	}
	return &google.ReplyResult{Comment: text, UpdateTime: time.Now()}, nil
}

func (c *fakeGoogleClient) DeleteReply(ctx context.Context, accountID, locationID, reviewID, accessToken string) error {
	c.mu.Lock()
	c.deleteCalls++
	call := c.deleteCalls
	c.mu.Unlock()
	if c.deleteReplyFn != nil {
		return c.deleteReplyFn(call, accessToken)
	}
	return nil
}

// fakeGate records activations in memory
type fakeGate struct {
	mu        sync.Mutex
	remaining time.Duration
	activated []time.Duration
}

func (g *fakeGate) Activate(ctx context.Context, tenantID string, retryAfter time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activated = append(g.activated, retryAfter)
	g.remaining = retryAfter
	return nil
}

func (g *fakeGate) Check(ctx context.Context, tenantID string) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining, nil
}

func (g *fakeGate) ClearAll(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remaining = 0
	return len(g.activated), nil
}

// fakeQuota returns a fixed decision, or one scripted per call when fn is set
type fakeQuota struct {
	mu       sync.Mutex
	decision quota.Decision
	calls    int
	fn       func(call int) quota.Decision
}

func allowAll() *fakeQuota {
	return &fakeQuota{decision: quota.Decision{Allowed: true, DailyRemaining: 1000, BurstRemaining: 100}}
}

func (q *fakeQuota) ShouldAllow() quota.Decision {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.fn != nil {
		return q.fn(q.calls)
	}
	return q.decision
}

func (q *fakeQuota) Stats() quota.Stats {
	return quota.Stats{}
}

func (q *fakeQuota) UsageReport(start, end time.Time) (*quota.Report, error) {
	return &quota.Report{}, nil
}

// fakeTokens counts refreshes
type fakeTokens struct {
	mu        sync.Mutex
	token     string
	err       error
	refreshes int
}

func (t *fakeTokens) Refresh(ctx context.Context, tenantID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshes++
	if t.err != nil {
		return "", t.err
	}
	if t.token == "" {
		return "refreshed-token", nil
	}
	return t.token, nil
}
