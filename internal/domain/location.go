package domain

import "time"

// Location represents a Google Business location under a tenant's account
type Location struct {
	ID                string    `json:"id" db:"id"`
	TenantID          string    `json:"tenant_id" db:"tenant_id"`
	GoogleLocationID  string    `json:"google_location_id" db:"google_location_id"`
	GoogleAccountID   string    `json:"google_account_id" db:"google_account_id"`
	DisplayName       string    `json:"display_name" db:"display_name"`
	Address           *string   `json:"address" db:"address"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
