package domain

import "time"

// Dashboard roles carried in access tokens
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// TenantClaims represents the JWT claims of a dashboard access token
type TenantClaims struct {
	TenantID string `json:"tenant_id"`
	Subject  string `json:"sub"`
	Role     string `json:"role"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

// IsExpired checks if the token claims are expired
func (c *TenantClaims) IsExpired() bool {
	return time.Now().Unix() > c.Exp
}

// IsAdmin reports whether the token grants operational override access
func (c *TenantClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
