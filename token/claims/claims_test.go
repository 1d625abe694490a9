package claims_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
)

func TestGetString(t *testing.T) {
	m := jwt.MapClaims{"tenant": "vsphere.local", "empty": "", "num": float64(7)}

	t.Run("present", func(t *testing.T) {
		s, err := claims.GetString(m, oidc.TokenClassIDToken, "tenant")
		require.NoError(t, err)
		require.Equal(t, "vsphere.local", s)
	})

	t.Run("missing names class and key", func(t *testing.T) {
		_, err := claims.GetString(m, oidc.TokenClassIDToken, "sub")
		require.Error(t, err)
		require.Equal(t, "id_token: sub claim is missing", err.Error())

		var parseErr *claims.ParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, oidc.TokenClassIDToken, parseErr.TokenClass)
		require.Equal(t, "sub", parseErr.Key)
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := claims.GetString(m, oidc.TokenClassIDToken, "empty")
		require.Error(t, err)
		require.Contains(t, err.Error(), "is empty")
	})

	t.Run("wrong type rejected", func(t *testing.T) {
		_, err := claims.GetString(m, oidc.TokenClassIDToken, "num")
		require.Error(t, err)
		require.Contains(t, err.Error(), "is not a string")
	})
}

func TestGetOptionalString(t *testing.T) {
	m := jwt.MapClaims{"nonce": "n-1", "empty": ""}

	s, ok, err := claims.GetOptionalString(m, oidc.TokenClassIDToken, "nonce")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "n-1", s)

	_, ok, err = claims.GetOptionalString(m, oidc.TokenClassIDToken, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	// Present but empty is still an error, not an absence.
	_, _, err = claims.GetOptionalString(m, oidc.TokenClassIDToken, "empty")
	require.Error(t, err)
}

func TestGetStringArray(t *testing.T) {
	t.Run("bare string accepted as single entry", func(t *testing.T) {
		m := jwt.MapClaims{"aud": "client-1"}
		values, err := claims.GetStringArray(m, oidc.TokenClassAccessToken, "aud")
		require.NoError(t, err)
		require.Equal(t, []string{"client-1"}, values)
	})

	t.Run("decoded JSON array", func(t *testing.T) {
		m := jwt.MapClaims{"aud": []any{"client-1", "rs_vsphere"}}
		values, err := claims.GetStringArray(m, oidc.TokenClassAccessToken, "aud")
		require.NoError(t, err)
		require.Equal(t, []string{"client-1", "rs_vsphere"}, values)
	})

	t.Run("mixed array rejected", func(t *testing.T) {
		m := jwt.MapClaims{"aud": []any{"client-1", 42}}
		_, err := claims.GetStringArray(m, oidc.TokenClassAccessToken, "aud")
		require.Error(t, err)
	})

	t.Run("empty array rejected", func(t *testing.T) {
		m := jwt.MapClaims{"aud": []any{}}
		_, err := claims.GetStringArray(m, oidc.TokenClassAccessToken, "aud")
		require.Error(t, err)
	})
}

func TestGetInt64(t *testing.T) {
	m := jwt.MapClaims{
		"f":   float64(1700000000),
		"i":   int64(1700000000),
		"n":   json.Number("1700000000"),
		"bad": "soon",
	}

	for _, key := range []string{"f", "i", "n"} {
		n, err := claims.GetInt64(m, oidc.TokenClassIDToken, key)
		require.NoError(t, err, "key %q", key)
		require.Equal(t, int64(1700000000), n)
	}

	_, err := claims.GetInt64(m, oidc.TokenClassIDToken, "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not a number")
}

func TestGetIssueAndExpirationTime(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	m := jwt.MapClaims{"iat": float64(issued.Unix()), "exp": float64(issued.Add(time.Hour).Unix())}

	iat, err := claims.GetIssueTime(m, oidc.TokenClassIDToken)
	require.NoError(t, err)
	require.True(t, iat.Equal(issued))

	exp, err := claims.GetExpirationTime(m, oidc.TokenClassIDToken)
	require.NoError(t, err)
	require.True(t, exp.Equal(issued.Add(time.Hour)))
}

func TestBaseAndSetters(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	m := claims.Base(oidc.TokenClassIDToken, oidc.TokenTypeBearer, "jti-1", "https://sso.example.com", "user@example.com", []string{"client-1"}, issued)

	require.Equal(t, "id_token", m[claims.KeyTokenClass])
	require.Equal(t, "Bearer", m[claims.KeyTokenType])
	require.Equal(t, issued.Unix(), m[claims.KeyIssuedAt])

	t.Run("empty values are omitted, never emitted", func(t *testing.T) {
		claims.SetString(m, claims.KeyNonce, "")
		claims.SetStringArray(m, claims.KeyGroups, nil)
		claims.SetTime(m, claims.KeyExpiration, time.Time{})
		require.NotContains(t, m, claims.KeyNonce)
		require.NotContains(t, m, claims.KeyGroups)
		require.NotContains(t, m, claims.KeyExpiration)
	})

	t.Run("present values are emitted", func(t *testing.T) {
		claims.SetString(m, claims.KeyNonce, "n-1")
		claims.SetStringArray(m, claims.KeyGroups, []string{"Administrators"})
		require.Equal(t, "n-1", m[claims.KeyNonce])
		require.Equal(t, []string{"Administrators"}, m[claims.KeyGroups])
	})
}

func TestHolderOfKeyRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	m := jwt.MapClaims{}
	require.NoError(t, claims.SetHolderOfKey(m, &key.PublicKey))
	require.Contains(t, m, claims.KeyHolderOfKey)

	pub, err := claims.GetHolderOfKey(m, oidc.TokenClassAccessToken)
	require.NoError(t, err)
	require.True(t, pub.Equal(&key.PublicKey))
}

func TestHolderOfKeyStrictness(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	setClaim := func(t *testing.T, set jose.JSONWebKeySet) jwt.MapClaims {
		raw, err := json.Marshal(set)
		require.NoError(t, err)
		var obj map[string]any
		require.NoError(t, json.Unmarshal(raw, &obj))
		return jwt.MapClaims{claims.KeyHolderOfKey: obj}
	}

	t.Run("absent claim is not an error", func(t *testing.T) {
		pub, err := claims.GetHolderOfKey(jwt.MapClaims{}, oidc.TokenClassAccessToken)
		require.NoError(t, err)
		require.Nil(t, pub)
	})

	t.Run("rejects two keys", func(t *testing.T) {
		m := setClaim(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &rsaKey.PublicKey, Algorithm: "RS256", Use: "sig"},
			{Key: &rsaKey.PublicKey, Algorithm: "RS256", Use: "sig"},
		}})
		_, err := claims.GetHolderOfKey(m, oidc.TokenClassAccessToken)
		require.Error(t, err)
		require.Contains(t, err.Error(), "exactly one key")
	})

	t.Run("rejects wrong algorithm", func(t *testing.T) {
		m := setClaim(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &rsaKey.PublicKey, Algorithm: "RS512", Use: "sig"},
		}})
		_, err := claims.GetHolderOfKey(m, oidc.TokenClassAccessToken)
		require.Error(t, err)
		require.Contains(t, err.Error(), "algorithm must be RS256")
	})

	t.Run("rejects encryption use", func(t *testing.T) {
		m := setClaim(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &rsaKey.PublicKey, Algorithm: "RS256", Use: "enc"},
		}})
		_, err := claims.GetHolderOfKey(m, oidc.TokenClassAccessToken)
		require.Error(t, err)
		require.Contains(t, err.Error(), "use must be sig")
	})

	t.Run("rejects non-RSA key", func(t *testing.T) {
		ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		m := setClaim(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &ecKey.PublicKey, Algorithm: "RS256", Use: "sig"},
		}})
		_, err = claims.GetHolderOfKey(m, oidc.TokenClassAccessToken)
		require.Error(t, err)
		require.Contains(t, err.Error(), "key type must be RSA")
	})
}
