package config

type Config interface {
	EnvConfig
	OIDCConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetIssuerBase() string
	GetEnv() string

	// Federation settings are empty when no external identity provider
	// is configured.
	GetFederationIssuerURL() string
	GetFederationClientID() string
	GetFederationClientSecret() string
	GetFederationRedirectURL() string
}

type mainConfig struct {
	EnvVars
	OIDC
}

func New() Config {
	return mainConfig{}
}
