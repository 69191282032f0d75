package auth

import (
	"time"
)

// Role is the caller's authority on the ingestion API.
type Role string

// Token roles.
const (
	// RolePublisher may submit batches for its own publisher ID only.
	RolePublisher Role = "publisher"
	// RoleAdmin may submit on behalf of any publisher and manage the taxonomy.
	RoleAdmin Role = "admin"
)

// AccessClaims represents the claims stored in a PASETO access token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type AccessClaims struct {
	Role        Role  `json:"role"`
	PublisherID int64 `json:"publisher_id,omitempty"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// IsAdmin reports whether the token grants admin access.
func (c *AccessClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanActFor reports whether the caller may submit on behalf of publisherID.
func (c *AccessClaims) CanActFor(publisherID int64) bool {
	return c.IsAdmin() || (c.Role == RolePublisher && c.PublisherID == publisherID)
}
