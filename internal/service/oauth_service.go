package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

// businessManageScope grants access to Business Profile accounts, locations,
// reviews and replies
const businessManageScope = "https://www.googleapis.com/auth/business.manage"

// accountCacheTTL bounds how long a resolved account id is reused before the
// account listing call is repeated
const accountCacheTTL = 10 * time.Minute

const locationDiscoveryTimeout = 30 * time.Second

type accountCacheEntry struct {
	accountID string
	expiresAt time.Time
}

// oauthService implements OAuthService
type oauthService struct {
	tenants   repository.TenantRepository
	locations repository.LocationRepository
	client    GoogleClient
	oauth     *oauth2.Config
	logger    *zap.Logger

	// refreshGroup ensures at most one token refresh is in flight per
	// tenant; concurrent callers share the result
	refreshGroup singleflight.Group

	mu           sync.Mutex
	accountCache map[string]accountCacheEntry
}

// NewOAuthService creates the OAuth token manager for Google Business
// connections
func NewOAuthService(
	tenants repository.TenantRepository,
	locations repository.LocationRepository,
	client GoogleClient,
	cfg config.GoogleConfig,
	logger *zap.Logger,
) OAuthService {
	return &oauthService{
		tenants:   tenants,
		locations: locations,
		client:    client,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{businessManageScope},
			Endpoint:     googleoauth.Endpoint,
		},
		logger:       logger,
		accountCache: make(map[string]accountCacheEntry),
	}
}

// BeginAuthorization builds the provider consent URL. Offline access
// guarantees a refresh token; forced consent makes the provider re-issue one
// on reconnect. The tenant id travels in the state parameter because the
// callback is an unauthenticated redirect.
func (s *oauthService) BeginAuthorization(ctx context.Context, tenantID string) (string, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return "", fmt.Errorf("failed to load tenant: %w", err)
	}

	url := s.oauth.AuthCodeURL(tenantID, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return url, nil
}

// CompleteAuthorization exchanges the authorization code, resolves the
// upstream account, persists the credential bundle, and kicks off a
// best-effort location discovery pass.
func (s *oauthService) CompleteAuthorization(ctx context.Context, code, state string) error {
	tenantID := state

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant from state: %w", err)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if token.RefreshToken == "" {
		return domain.ErrMissingRefreshToken
	}

	accountID, err := s.resolveAccountID(ctx, tenantID, token.AccessToken)
	if err != nil {
		return err
	}

	creds := &domain.Credentials{
		GoogleAccountID: accountID,
		AccessToken:     token.AccessToken,
		RefreshToken:    token.RefreshToken,
		TokenExpiry:     token.Expiry,
	}
	if err := s.tenants.UpdateCredentials(ctx, tenantID, creds); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	// Location discovery must not block or fail the connection; a tenant can
	// re-trigger it by reconnecting or syncing.
	go s.discoverLocations(tenant.ID, accountID, token.AccessToken)

	s.logger.Info("tenant connected to google",
		zap.String("tenant_id", tenantID),
		zap.String("google_account_id", accountID),
	)
	return nil
}

// resolveAccountID returns the tenant's Business Profile account id, reusing
// a cached value to avoid a redundant account listing on every reconnect
func (s *oauthService) resolveAccountID(ctx context.Context, tenantID, accessToken string) (string, error) {
	s.mu.Lock()
	if entry, ok := s.accountCache[tenantID]; ok && time.Now().Before(entry.expiresAt) {
		s.mu.Unlock()
		return entry.accountID, nil
	}
	s.mu.Unlock()

	accounts, err := s.client.ListAccounts(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("no business profile accounts visible to this user")
	}

	accountID := accounts[0].ID()

	s.mu.Lock()
	s.accountCache[tenantID] = accountCacheEntry{
		accountID: accountID,
		expiresAt: time.Now().Add(accountCacheTTL),
	}
	s.mu.Unlock()

	return accountID, nil
}

func (s *oauthService) discoverLocations(tenantID, accountID, accessToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), locationDiscoveryTimeout)
	defer cancel()

	upstream, err := s.client.ListLocations(ctx, accountID, accessToken)
	if err != nil {
		s.logger.Warn("location discovery failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return
	}

	for _, loc := range upstream {
		location := &domain.Location{
			TenantID:         tenantID,
			GoogleLocationID: loc.ID(),
			GoogleAccountID:  accountID,
			DisplayName:      loc.Title,
			IsActive:         true,
		}
		if addr := loc.FormattedAddress(); addr != "" {
			location.Address = &addr
		}

		if err := s.locations.Upsert(ctx, location); err != nil {
			s.logger.Warn("failed to store discovered location",
				zap.String("tenant_id", tenantID),
				zap.String("google_location_id", loc.ID()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("location discovery finished",
		zap.String("tenant_id", tenantID),
		zap.Int("locations", len(upstream)),
	)
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the new expiry. Concurrent callers for the same tenant share one
// in-flight refresh.
func (s *oauthService) Refresh(ctx context.Context, tenantID string) (string, error) {
	token, err, _ := s.refreshGroup.Do(tenantID, func() (any, error) {
		tenant, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil {
			return "", fmt.Errorf("failed to load tenant: %w", err)
		}
		if !tenant.IsConnected() {
			return "", domain.ErrTenantNotConnected
		}

		source := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: *tenant.RefreshToken})
		fresh, err := source.Token()
		if err != nil {
			return "", fmt.Errorf("failed to refresh access token: %w", err)
		}

		refreshToken := *tenant.RefreshToken
		if fresh.RefreshToken != "" {
			refreshToken = fresh.RefreshToken
		}

		accountID := ""
		if tenant.GoogleAccountID != nil {
			accountID = *tenant.GoogleAccountID
		}

		creds := &domain.Credentials{
			GoogleAccountID: accountID,
			AccessToken:     fresh.AccessToken,
			RefreshToken:    refreshToken,
			TokenExpiry:     fresh.Expiry,
		}
		if err := s.tenants.UpdateCredentials(ctx, tenantID, creds); err != nil {
			return "", fmt.Errorf("failed to persist refreshed credentials: %w", err)
		}

		s.logger.Debug("access token refreshed", zap.String("tenant_id", tenantID))
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

// Disconnect clears the stored credential fields. Reviews and locations are
// kept.
func (s *oauthService) Disconnect(ctx context.Context, tenantID string) error {
	if err := s.tenants.ClearCredentials(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to disconnect tenant: %w", err)
	}

	s.mu.Lock()
	delete(s.accountCache, tenantID)
	s.mu.Unlock()

	s.logger.Info("tenant disconnected from google", zap.String("tenant_id", tenantID))
	return nil
}

// ConnectionStatus reports whether credentials are present and whether the
// access token is expired, computed from the stored expiry
func (s *oauthService) ConnectionStatus(ctx context.Context, tenantID string) (*dto.ConnectionStatusResponse, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	return &dto.ConnectionStatusResponse{
		Connected:       tenant.IsConnected(),
		TokenExpired:    tenant.TokenExpired(),
		GoogleAccountID: tenant.GoogleAccountID,
		InitialSyncDone: tenant.InitialSyncDone,
		LastSyncAt:      tenant.LastSyncAt,
	}, nil
}
