package dto

import "time"

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response. RetryAfterSeconds is set on
// quota and cooldown errors so a client can render a countdown.
type ErrorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds *int   `json:"retry_after_seconds,omitempty"`
}

// AuthorizationResponse carries the provider consent URL to redirect to
type AuthorizationResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// ConnectionStatusResponse describes the tenant's Google connection
type ConnectionStatusResponse struct {
	Connected       bool       `json:"connected"`
	TokenExpired    bool       `json:"token_expired"`
	GoogleAccountID *string    `json:"google_account_id,omitempty"`
	InitialSyncDone bool       `json:"initial_sync_done"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
}

// LocationSyncResult reports one location's share of a sync
type LocationSyncResult struct {
	LocationID     string  `json:"location_id"`
	DisplayName    string  `json:"display_name"`
	NewReviews     int     `json:"new_reviews"`
	UpdatedReviews int     `json:"updated_reviews"`
	Error          *string `json:"error,omitempty"`
}

// SyncResult aggregates a full reconciliation run
type SyncResult struct {
	Locations      []LocationSyncResult `json:"locations"`
	NewReviews     int                  `json:"new_reviews"`
	UpdatedReviews int                  `json:"updated_reviews"`
	SyncedAt       time.Time            `json:"synced_at"`
}

// PostReplyResponse reports a successfully posted reply
type PostReplyResponse struct {
	ReviewID      string    `json:"review_id"`
	GoogleReplyID string    `json:"google_reply_id"`
	PostedAt      time.Time `json:"posted_at"`
}

// ClearCooldownsResponse reports how many cooldowns the override removed
type ClearCooldownsResponse struct {
	Cleared int `json:"cleared"`
}
