package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/pkg/database"
)

// locationRepository implements LocationRepository interface
type locationRepository struct {
	db *database.Postgres
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.Postgres) LocationRepository {
	return &locationRepository{db: db}
}

// Upsert creates the location or refreshes its display fields. The provider
// location id is the natural key; discovery may observe the same location on
// every reconnect.
func (r *locationRepository) Upsert(ctx context.Context, location *domain.Location) error {
	query := `
		INSERT INTO locations (id, tenant_id, google_location_id, google_account_id, display_name, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (google_location_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    address = EXCLUDED.address,
		    updated_at = EXCLUDED.updated_at
	`

	if location.ID == "" {
		location.ID = uuid.New().String()
	}

	now := time.Now()
	if location.CreatedAt.IsZero() {
		location.CreatedAt = now
	}
	location.UpdatedAt = now

	_, err := r.db.DB.ExecContext(ctx, query,
		location.ID,
		location.TenantID,
		location.GoogleLocationID,
		location.GoogleAccountID,
		location.DisplayName,
		location.Address,
		location.IsActive,
		location.CreatedAt,
		location.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert location: %w", err)
	}

	return nil
}

// GetByID retrieves a location by ID
func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	query := `
		SELECT id, tenant_id, google_location_id, google_account_id, display_name, address, is_active, created_at, updated_at
		FROM locations
		WHERE id = $1
	`

	location := &domain.Location{}
	var address sql.NullString

	err := r.db.DB.QueryRowContext(ctx, query, id).Scan(
		&location.ID,
		&location.TenantID,
		&location.GoogleLocationID,
		&location.GoogleAccountID,
		&location.DisplayName,
		&address,
		&location.IsActive,
		&location.CreatedAt,
		&location.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("location with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	if address.Valid {
		location.Address = &address.String
	}

	return location, nil
}

// ListActiveByTenant retrieves all active locations for a tenant
func (r *locationRepository) ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.Location, error) {
	query := `
		SELECT id, tenant_id, google_location_id, google_account_id, display_name, address, is_active, created_at, updated_at
		FROM locations
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY created_at
	`

	rows, err := r.db.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []*domain.Location
	for rows.Next() {
		location := &domain.Location{}
		var address sql.NullString

		err := rows.Scan(
			&location.ID,
			&location.TenantID,
			&location.GoogleLocationID,
			&location.GoogleAccountID,
			&location.DisplayName,
			&address,
			&location.IsActive,
			&location.CreatedAt,
			&location.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}

		if address.Valid {
			location.Address = &address.String
		}

		locations = append(locations, location)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locations: %w", err)
	}

	return locations, nil
}
