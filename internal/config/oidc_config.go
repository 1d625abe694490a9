package config

import "time"

// OIDCConfig supplies the server-wide defaults used when a tenant does not
// override a lifetime or tolerance.
type OIDCConfig interface {
	GetAuthorizationCodeTTL() time.Duration
	GetSessionTTL() time.Duration
	GetDefaultClockTolerance() time.Duration
	GetDefaultBearerTokenLifetime() time.Duration
	GetDefaultHOKTokenLifetime() time.Duration
	GetDefaultIDTokenLifetime() time.Duration
	GetDefaultRefreshTokenLifetime() time.Duration
	GetDefaultAssertionLifetime() time.Duration
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

func (OIDC) GetAuthorizationCodeTTL() time.Duration {
	return 2 * time.Minute
}

func (OIDC) GetSessionTTL() time.Duration {
	return 8 * time.Hour
}

func (OIDC) GetDefaultClockTolerance() time.Duration {
	return 10 * time.Minute
}

func (OIDC) GetDefaultBearerTokenLifetime() time.Duration {
	return 5 * time.Minute
}

func (OIDC) GetDefaultHOKTokenLifetime() time.Duration {
	return 30 * time.Minute
}

func (OIDC) GetDefaultIDTokenLifetime() time.Duration {
	return 5 * time.Minute
}

func (OIDC) GetDefaultRefreshTokenLifetime() time.Duration {
	return 8 * time.Hour
}

// GetDefaultAssertionLifetime bounds how long a client or solution user
// assertion is accepted after its issue time.
func (OIDC) GetDefaultAssertionLifetime() time.Duration {
	return 5 * time.Minute
}
