package models

import (
	"time"

	"github.com/google/uuid"
)

// OIDCConfig represents hosted OIDC provider configuration. Authentication
// is delegated to the provider; the API only verifies bearer tokens against
// its JWKS.
type OIDCConfig struct {
	ID          uuid.UUID `json:"id"`
	Provider    string    `json:"provider"`
	Issuer      string    `json:"issuer"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri"`
	JWKSUrl     *string   `json:"jwks_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
