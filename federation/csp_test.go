package federation_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/verisso/go-oidc-idp/federation"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
	"github.com/verisso/go-oidc-idp/token/keys"
)

var (
	testKey      *rsa.PrivateKey
	testIssuedAt = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
)

func init() {
	var err error
	testKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
}

func cspClaims(class oidc.TokenClass) jwt.MapClaims {
	return jwt.MapClaims{
		claims.KeyTokenClass:  string(class),
		claims.KeyJWTID:       "jti-csp",
		claims.KeyIssuer:      "https://csp.example.com",
		claims.KeySubject:     "csp-user-1",
		claims.KeyAudience:    []string{"vcenter"},
		claims.KeyIssuedAt:    testIssuedAt.Unix(),
		claims.KeyExpiration:  testIssuedAt.Add(30 * time.Minute).Unix(),
		claims.KeyContextName: "org-42",
		claims.KeyUsername:    "jdoe",
		claims.KeyDomain:      "example.com",
		claims.KeyPermissions: []string{"csp:org_member"},
	}
}

func signCSP(t *testing.T, m jwt.MapClaims) string {
	t.Helper()
	raw, err := keys.Sign(m, testKey)
	require.NoError(t, err)
	return raw
}

func TestParseIssuerType(t *testing.T) {
	it, err := federation.ParseIssuerType("csp")
	require.NoError(t, err)
	require.Equal(t, federation.IssuerTypeCSP, it)

	_, err = federation.ParseIssuerType("okta")
	require.Error(t, err)
}

func TestParseCSPToken(t *testing.T) {
	raw := signCSP(t, cspClaims(oidc.TokenClassFederationIDToken))

	parsed, err := federation.ParseToken(federation.IssuerTypeCSP, oidc.TokenClassFederationIDToken, raw)
	require.NoError(t, err)
	require.Equal(t, oidc.TokenClassFederationIDToken, parsed.TokenClass())
	require.Equal(t, oidc.Subject("csp-user-1"), parsed.Subject())
	require.Equal(t, "org-42", parsed.TenantID())
	require.Equal(t, "jdoe", parsed.Username())
	require.Equal(t, "example.com", parsed.Domain())
	require.Equal(t, []string{"csp:org_member"}, parsed.Permissions())
	require.Empty(t, parsed.Email())
	require.Empty(t, parsed.Nonce())
	require.Equal(t, raw, parsed.Serialize())

	require.NoError(t, parsed.Verify(&testKey.PublicKey))
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	require.Error(t, parsed.Verify(&otherKey.PublicKey))

	require.False(t, parsed.Expired(testIssuedAt.Add(30*time.Minute), time.Minute))
	require.True(t, parsed.Expired(testIssuedAt.Add(32*time.Minute), time.Minute))
}

func TestParseCSPTokenOptionalClaims(t *testing.T) {
	m := cspClaims(oidc.TokenClassFederationAccessToken)
	m[claims.KeyEmail] = "jdoe@example.com"
	m[claims.KeyNonce] = "n-fed"

	parsed, err := federation.ParseCSPToken(oidc.TokenClassFederationAccessToken, signCSP(t, m))
	require.NoError(t, err)
	require.Equal(t, "jdoe@example.com", parsed.Email())
	require.Equal(t, oidc.Nonce("n-fed"), parsed.Nonce())
}

func TestParseCSPTokenRejections(t *testing.T) {
	t.Run("non-federation class", func(t *testing.T) {
		_, err := federation.ParseCSPToken(oidc.TokenClassIDToken, signCSP(t, cspClaims(oidc.TokenClassIDToken)))
		require.Error(t, err)
	})

	t.Run("class mismatch", func(t *testing.T) {
		raw := signCSP(t, cspClaims(oidc.TokenClassFederationAccessToken))
		_, err := federation.ParseCSPToken(oidc.TokenClassFederationIDToken, raw)
		require.Error(t, err)
		require.Contains(t, err.Error(), "incorrect token_class claim")
	})

	t.Run("missing context_name", func(t *testing.T) {
		m := cspClaims(oidc.TokenClassFederationIDToken)
		delete(m, claims.KeyContextName)
		_, err := federation.ParseCSPToken(oidc.TokenClassFederationIDToken, signCSP(t, m))
		require.Error(t, err)
		require.Contains(t, err.Error(), "context_name")
	})

	t.Run("unknown issuer type", func(t *testing.T) {
		raw := signCSP(t, cspClaims(oidc.TokenClassFederationIDToken))
		_, err := federation.ParseToken("okta", oidc.TokenClassFederationIDToken, raw)
		require.Error(t, err)
	})
}
