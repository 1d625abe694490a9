package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verisso/go-oidc-idp/protocol"
	"github.com/verisso/go-oidc-idp/token/keys"
)

func TestNewProviderMetadata(t *testing.T) {
	t.Run("endpoints derive from the issuer", func(t *testing.T) {
		m, err := protocol.NewProviderMetadata("https://sso.example.com/tenant1")
		require.NoError(t, err)
		require.Equal(t, "https://sso.example.com/tenant1", m.Issuer)
		require.Equal(t, "https://sso.example.com/tenant1/oauth2/authorize", m.AuthorizationEndpoint)
		require.Equal(t, "https://sso.example.com/tenant1/oauth2/token", m.TokenEndpoint)
		require.Equal(t, "https://sso.example.com/tenant1/oauth2/logout", m.EndSessionEndpoint)
		require.Equal(t, "https://sso.example.com/tenant1/oauth2/jwks", m.JWKSURI)
		require.Equal(t, []string{"RS256"}, m.IDTokenSigningAlgValuesSupported)
		require.NoError(t, m.Validate())
	})

	t.Run("a trailing slash does not double up", func(t *testing.T) {
		m, err := protocol.NewProviderMetadata("https://sso.example.com/")
		require.NoError(t, err)
		require.Equal(t, "https://sso.example.com/oauth2/token", m.TokenEndpoint)
	})

	t.Run("issuer is required", func(t *testing.T) {
		_, err := protocol.NewProviderMetadata("")
		require.Error(t, err)
	})
}

func TestProviderMetadataValidate(t *testing.T) {
	m, err := protocol.NewProviderMetadata("https://sso.example.com")
	require.NoError(t, err)
	m.JWKSURI = ""
	require.ErrorContains(t, m.Validate(), "jwks_uri")
}

func TestJWKSDocument(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("key-1", 2048)
	require.NoError(t, err)

	jwks := protocol.JWKSDocument(kp)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "key-1", jwks.Keys[0].KeyID)
	require.Equal(t, "RS256", jwks.Keys[0].Algorithm)
	require.Equal(t, "sig", jwks.Keys[0].Use)
}
