package protocol

import (
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/keys"
)

// ProviderMetadata is the OIDC discovery document.
type ProviderMetadata struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	EndSessionEndpoint               string   `json:"end_session_endpoint"`
	JWKSURI                          string   `json:"jwks_uri"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	ResponseModesSupported           []string `json:"response_modes_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
}

// NewProviderMetadata derives the endpoint URLs from the issuer.
func NewProviderMetadata(issuer oidc.Issuer) (*ProviderMetadata, error) {
	if issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	base := strings.TrimSuffix(string(issuer), "/")
	return &ProviderMetadata{
		Issuer:                           string(issuer),
		AuthorizationEndpoint:            base + EndpointAuthorize,
		TokenEndpoint:                    base + EndpointToken,
		EndSessionEndpoint:               base + EndpointLogout,
		JWKSURI:                          base + EndpointJWKS,
		ResponseTypesSupported:           []string{"code", "id_token", "id_token token"},
		ResponseModesSupported:           []string{"query", "fragment", "form_post"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{keys.RS256},
	}, nil
}

// Validate checks a metadata document received on the wire for required
// fields.
func (m *ProviderMetadata) Validate() error {
	switch {
	case m.Issuer == "":
		return fmt.Errorf("provider metadata: issuer is missing")
	case m.AuthorizationEndpoint == "":
		return fmt.Errorf("provider metadata: authorization_endpoint is missing")
	case m.TokenEndpoint == "":
		return fmt.Errorf("provider metadata: token_endpoint is missing")
	case m.JWKSURI == "":
		return fmt.Errorf("provider metadata: jwks_uri is missing")
	}
	return nil
}

// JWKSDocument is the tenant's public signing key as a JWKS response body.
func JWKSDocument(kp *keys.KeyPair) *jose.JSONWebKeySet {
	return kp.JWKS()
}
