// Package claims is the codec shared by every token kind: uniform, fail-fast
// extraction of typed claims from an untrusted claim set, and uniform
// construction of a claim set for signing. Every extraction error names the
// owning token class and the offending claim key.
package claims

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verisso/go-oidc-idp/internal/utils"
	"github.com/verisso/go-oidc-idp/oidc"
)

// Claim keys. The registered JWT claims keep their RFC names; the rest are
// server-specific.
const (
	KeyTokenClass = "token_class"
	KeyTokenType  = "token_type"
	KeyJWTID      = "jti"
	KeyIssuer     = "iss"
	KeySubject    = "sub"
	KeyAudience   = "aud"
	KeyIssuedAt   = "iat"
	KeyExpiration = "exp"

	KeyScope           = "scope"
	KeyTenant          = "tenant"
	KeyClientID        = "client_id"
	KeySessionID       = "sid"
	KeyHolderOfKey     = "hotk"
	KeyActAs           = "act_as"
	KeyNonce           = "nonce"
	KeyGroups          = "groups"
	KeyGivenName       = "given_name"
	KeyFamilyName      = "family_name"
	KeyAdminServerRole = "admin_server_role"
	KeyContextName     = "context_name"
	KeyUsername        = "username"
	KeyDomain          = "domain"
	KeyEmail           = "email"
	KeyPermissions     = "perms"
)

// ParseError is a structural claim failure: missing, empty, or wrongly typed.
type ParseError struct {
	TokenClass oidc.TokenClass
	Key        string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s claim %s", e.TokenClass, e.Key, e.Reason)
}

func newParseError(class oidc.TokenClass, key, reason string) *ParseError {
	return &ParseError{TokenClass: class, Key: key, Reason: reason}
}

// GetString extracts a required non-empty string claim.
func GetString(m jwt.MapClaims, class oidc.TokenClass, key string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", newParseError(class, key, "is missing")
	}
	s, ok := raw.(string)
	if !ok {
		return "", newParseError(class, key, "is not a string")
	}
	if s == "" {
		return "", newParseError(class, key, "is empty")
	}
	return s, nil
}

// GetOptionalString extracts a string claim that may be absent. A present
// claim must still be a non-empty string.
func GetOptionalString(m jwt.MapClaims, class oidc.TokenClass, key string) (string, bool, error) {
	if _, ok := m[key]; !ok {
		return "", false, nil
	}
	s, err := GetString(m, class, key)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// GetStringArray extracts a required non-empty string array claim. A bare
// string is accepted for the aud claim, per RFC 7519.
func GetStringArray(m jwt.MapClaims, class oidc.TokenClass, key string) ([]string, error) {
	raw, ok := m[key]
	if !ok {
		return nil, newParseError(class, key, "is missing")
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, newParseError(class, key, "is empty")
		}
		return []string{v}, nil
	case []string:
		if len(v) == 0 {
			return nil, newParseError(class, key, "is empty")
		}
		return v, nil
	case []any:
		out := utils.ToStringSlice(v)
		if len(out) != len(v) || len(out) == 0 {
			return nil, newParseError(class, key, "is not a string array")
		}
		return out, nil
	}
	return nil, newParseError(class, key, "is not a string array")
}

// GetInt64 extracts a required integral numeric claim.
func GetInt64(m jwt.MapClaims, class oidc.TokenClass, key string) (int64, error) {
	raw, ok := m[key]
	if !ok {
		return 0, newParseError(class, key, "is missing")
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, newParseError(class, key, "is not an integer")
		}
		return n, nil
	}
	return 0, newParseError(class, key, "is not a number")
}

// GetURI extracts a required string claim that must parse as an absolute URI.
func GetURI(m jwt.MapClaims, class oidc.TokenClass, key string) (*url.URL, error) {
	s, err := GetString(m, class, key)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return nil, newParseError(class, key, "is not a valid URI")
	}
	return u, nil
}

// GetIssueTime extracts the registered iat claim.
func GetIssueTime(m jwt.MapClaims, class oidc.TokenClass) (time.Time, error) {
	n, err := GetInt64(m, class, KeyIssuedAt)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(n, 0), nil
}

// GetExpirationTime extracts the registered exp claim.
func GetExpirationTime(m jwt.MapClaims, class oidc.TokenClass) (time.Time, error) {
	n, err := GetInt64(m, class, KeyExpiration)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(n, 0), nil
}

// Base assembles the claims every signed token carries.
func Base(class oidc.TokenClass, typ oidc.TokenType, id oidc.JWTID, issuer oidc.Issuer, subject oidc.Subject, audience []string, issuedAt time.Time) jwt.MapClaims {
	aud := make([]string, len(audience))
	copy(aud, audience)
	return jwt.MapClaims{
		KeyTokenClass: string(class),
		KeyTokenType:  string(typ),
		KeyJWTID:      string(id),
		KeyIssuer:     string(issuer),
		KeySubject:    string(subject),
		KeyAudience:   aud,
		KeyIssuedAt:   issuedAt.Unix(),
	}
}

// SetString adds an optional string claim, omitting empty values. Claims are
// never emitted empty or null.
func SetString(m jwt.MapClaims, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// SetStringArray adds an optional string array claim, omitting empty arrays.
func SetStringArray(m jwt.MapClaims, key string, values []string) {
	if len(values) > 0 {
		out := make([]string, len(values))
		copy(out, values)
		m[key] = out
	}
}

// SetTime adds a time claim as Unix seconds.
func SetTime(m jwt.MapClaims, key string, t time.Time) {
	if !t.IsZero() {
		m[key] = t.Unix()
	}
}
