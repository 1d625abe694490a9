package tenants

import (
	"crypto/rsa"
	"time"

	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/keys"
)

// ExternalIDP is the federated issuer a tenant trusts for brokered
// logins. Tokens from any other issuer, or signed by any other key,
// are rejected.
type ExternalIDP struct {
	IssuerType string
	Issuer     oidc.Issuer
	PublicKey  *rsa.PublicKey
}

// Tenant is an isolated identity domain with its own issuer, signing key
// and token policy. The directory service owns this data; the core only
// reads it.
type Tenant struct {
	Name   string
	Issuer oidc.Issuer

	// SigningKeys holds the RSA key pair (and certificate) used to sign
	// every token the tenant issues.
	SigningKeys *keys.KeyPair

	// ExternalIDP is nil when the tenant only authenticates locally.
	ExternalIDP *ExternalIDP

	ClockTolerance time.Duration

	// Maximum token lifetimes. Zero means use the server default.
	BearerTokenLifetime  time.Duration
	HOKTokenLifetime     time.Duration
	IDTokenLifetime      time.Duration
	RefreshTokenLifetime time.Duration
}

// Repo is the narrow read interface the core needs from the directory
// service's tenant registration.
type Repo interface {
	Get(name string) (*Tenant, error)
}
