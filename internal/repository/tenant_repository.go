package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/pkg/database"
)

// tenantRepository implements TenantRepository interface
type tenantRepository struct {
	db *database.Postgres
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.Postgres) TenantRepository {
	return &tenantRepository{db: db}
}

const tenantColumns = `id, slug, display_name, google_account_id, access_token, refresh_token,
	token_expiry, initial_sync_done, last_sync_at, created_at, updated_at`

// Create creates a new tenant in the database
func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, slug, display_name, initial_sync_done, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}

	now := time.Now()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	if tenant.UpdatedAt.IsZero() {
		tenant.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		tenant.ID,
		tenant.Slug,
		tenant.DisplayName,
		tenant.InitialSyncDone,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("tenant with slug %s already exists: %w", tenant.Slug, ErrDuplicateSlug)
			}
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by ID
func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns)
	return r.scanTenant(r.db.DB.QueryRowContext(ctx, query, id), id)
}

// GetBySlug retrieves a tenant by slug
func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE slug = $1`, tenantColumns)
	return r.scanTenant(r.db.DB.QueryRowContext(ctx, query, slug), slug)
}

func (r *tenantRepository) scanTenant(row *sql.Row, key string) (*domain.Tenant, error) {
	tenant := &domain.Tenant{}
	var (
		accountID    sql.NullString
		accessToken  sql.NullString
		refreshToken sql.NullString
		tokenExpiry  sql.NullTime
		lastSyncAt   sql.NullTime
	)

	err := row.Scan(
		&tenant.ID,
		&tenant.Slug,
		&tenant.DisplayName,
		&accountID,
		&accessToken,
		&refreshToken,
		&tokenExpiry,
		&tenant.InitialSyncDone,
		&lastSyncAt,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s not found: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if accountID.Valid {
		tenant.GoogleAccountID = &accountID.String
	}
	if accessToken.Valid {
		tenant.AccessToken = &accessToken.String
	}
	if refreshToken.Valid {
		tenant.RefreshToken = &refreshToken.String
	}
	if tokenExpiry.Valid {
		tenant.TokenExpiry = &tokenExpiry.Time
	}
	if lastSyncAt.Valid {
		tenant.LastSyncAt = &lastSyncAt.Time
	}

	return tenant, nil
}

// UpdateCredentials persists the OAuth credential bundle on the tenant
func (r *tenantRepository) UpdateCredentials(ctx context.Context, tenantID string, creds *domain.Credentials) error {
	query := `
		UPDATE tenants
		SET google_account_id = $2, access_token = $3, refresh_token = $4, token_expiry = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		tenantID,
		creds.GoogleAccountID,
		creds.AccessToken,
		creds.RefreshToken,
		creds.TokenExpiry,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	return r.requireRow(result, tenantID)
}

// ClearCredentials removes all credential fields, keeping the tenant record
func (r *tenantRepository) ClearCredentials(ctx context.Context, tenantID string) error {
	query := `
		UPDATE tenants
		SET google_account_id = NULL, access_token = NULL, refresh_token = NULL, token_expiry = NULL, updated_at = $2
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, tenantID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	return r.requireRow(result, tenantID)
}

// UpdateSyncState records the outcome of a completed sync
func (r *tenantRepository) UpdateSyncState(ctx context.Context, tenantID string, lastSyncAt time.Time, initialSyncDone bool) error {
	query := `
		UPDATE tenants
		SET last_sync_at = $2, initial_sync_done = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, tenantID, lastSyncAt, initialSyncDone, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}

	return r.requireRow(result, tenantID)
}

func (r *tenantRepository) requireRow(result sql.Result, tenantID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tenant with id %s not found: %w", tenantID, ErrNotFound)
	}
	return nil
}
