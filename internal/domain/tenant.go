package domain

import "time"

// Tenant represents an onboarded business in the system
type Tenant struct {
	ID              string     `json:"id" db:"id"`
	Slug            string     `json:"slug" db:"slug"`
	DisplayName     string     `json:"display_name" db:"display_name"`
	GoogleAccountID *string    `json:"-" db:"google_account_id"`
	AccessToken     *string    `json:"-" db:"access_token"`
	RefreshToken    *string    `json:"-" db:"refresh_token"`
	TokenExpiry     *time.Time `json:"-" db:"token_expiry"`
	InitialSyncDone bool       `json:"initial_sync_done" db:"initial_sync_done"`
	LastSyncAt      *time.Time `json:"last_sync_at" db:"last_sync_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsConnected reports whether the tenant has a Google connection on file
func (t Tenant) IsConnected() bool {
	return t.RefreshToken != nil && *t.RefreshToken != ""
}

// TokenExpired reports whether the stored access token has expired.
// Computed from the persisted expiry, not re-validated upstream.
func (t Tenant) TokenExpired() bool {
	if t.TokenExpiry == nil {
		return true
	}
	return time.Now().After(*t.TokenExpiry)
}

// Credentials holds the OAuth credential bundle persisted on a tenant
type Credentials struct {
	GoogleAccountID string
	AccessToken     string
	RefreshToken    string
	TokenExpiry     time.Time
}
