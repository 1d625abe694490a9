package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	issuerBaseVar = "ISSUER_BASE"

	federationIssuerVar       = "FEDERATION_ISSUER_URL"
	federationClientIDVar     = "FEDERATION_CLIENT_ID"
	federationClientSecretVar = "FEDERATION_CLIENT_SECRET"
	federationRedirectVar     = "FEDERATION_REDIRECT_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go OIDC IdP")
}

// GetIssuerBase is the base URL token issuer values are derived from
// (e.g. "https://sso.example.com").
func (EnvVars) GetIssuerBase() string {
	return GetEnv(issuerBaseVar, "https://localhost:8080")
}

func (EnvVars) GetFederationIssuerURL() string {
	return os.Getenv(federationIssuerVar)
}

func (EnvVars) GetFederationClientID() string {
	return os.Getenv(federationClientIDVar)
}

func (EnvVars) GetFederationClientSecret() string {
	return os.Getenv(federationClientSecretVar)
}

func (EnvVars) GetFederationRedirectURL() string {
	return os.Getenv(federationRedirectVar)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetEnv returns the environment variable value, or the default if unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
