// Package federation handles tokens minted by an external federated
// identity provider and the relying-party configuration used to broker
// logins against it.
package federation

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
	"github.com/verisso/go-oidc-idp/token/keys"
)

// IssuerType discriminates external issuer dialects. Only CSP is
// currently supported; the dispatch exists so further dialects slot in
// without touching callers.
type IssuerType string

const IssuerTypeCSP IssuerType = "csp"

func ParseIssuerType(s string) (IssuerType, error) {
	if IssuerType(s) == IssuerTypeCSP {
		return IssuerTypeCSP, nil
	}
	return "", fmt.Errorf("unknown federation issuer type %q: %w", s, errs.ErrUnsupported)
}

// CSPToken is an ID or access token issued by a CSP-dialect external
// provider. The tenant is carried in the context_name claim.
type CSPToken struct {
	class       oidc.TokenClass
	serialized  string
	id          oidc.JWTID
	issuer      oidc.Issuer
	subject     oidc.Subject
	audience    []string
	issueTime   time.Time
	expiration  time.Time
	tenantID    string
	username    string
	domain      string
	email       string
	permissions []string
	nonce       oidc.Nonce
}

func (t *CSPToken) TokenClass() oidc.TokenClass { return t.class }

func (t *CSPToken) ID() oidc.JWTID { return t.id }

func (t *CSPToken) Issuer() oidc.Issuer { return t.issuer }

func (t *CSPToken) Subject() oidc.Subject { return t.subject }

func (t *CSPToken) IssueTime() time.Time { return t.issueTime }

func (t *CSPToken) ExpirationTime() time.Time { return t.expiration }

func (t *CSPToken) TenantID() string { return t.tenantID }

func (t *CSPToken) Username() string { return t.username }

func (t *CSPToken) Domain() string { return t.domain }

func (t *CSPToken) Email() string { return t.email }

func (t *CSPToken) Permissions() []string { return t.permissions }

func (t *CSPToken) Nonce() oidc.Nonce { return t.nonce }

func (t *CSPToken) Serialize() string { return t.serialized }

func (t *CSPToken) Audience() []string {
	out := make([]string, len(t.audience))
	copy(out, t.audience)
	return out
}

func (t *CSPToken) Verify(key *rsa.PublicKey) error {
	if err := keys.VerifyRS256(t.serialized, key); err != nil {
		return errs.Wrapf(errs.ErrInvalidSignature, "%s verification failed", t.class)
	}
	return nil
}

func (t *CSPToken) Expired(now time.Time, clockTolerance time.Duration) bool {
	return now.After(t.expiration.Add(clockTolerance))
}

// ParseToken dispatches on the issuer type. Only CSP is implemented.
func ParseToken(issuerType IssuerType, class oidc.TokenClass, raw string) (*CSPToken, error) {
	if issuerType != IssuerTypeCSP {
		return nil, fmt.Errorf("federation issuer type %q: %w", issuerType, errs.ErrUnsupported)
	}
	return ParseCSPToken(class, raw)
}

// ParseCSPToken parses a federated ID or access token without
// verifying the signature. The caller verifies against the external
// issuer's published key before trusting any field.
func ParseCSPToken(class oidc.TokenClass, raw string) (*CSPToken, error) {
	if class != oidc.TokenClassFederationIDToken && class != oidc.TokenClassFederationAccessToken {
		return nil, fmt.Errorf("%q is not a federation token class: %w", class, errs.ErrInvalidToken)
	}

	var m jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &m); err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "malformed federation token")
	}

	classValue, err := claims.GetString(m, class, claims.KeyTokenClass)
	if err != nil {
		return nil, err
	}
	if oidc.TokenClass(classValue) != class {
		return nil, fmt.Errorf("%s: incorrect token_class claim %q: %w", class, classValue, errs.ErrInvalidTokenClass)
	}

	id, err := claims.GetString(m, class, claims.KeyJWTID)
	if err != nil {
		return nil, err
	}
	issuer, err := claims.GetString(m, class, claims.KeyIssuer)
	if err != nil {
		return nil, err
	}
	subject, err := claims.GetString(m, class, claims.KeySubject)
	if err != nil {
		return nil, err
	}
	audience, err := claims.GetStringArray(m, class, claims.KeyAudience)
	if err != nil {
		return nil, err
	}
	issueTime, err := claims.GetIssueTime(m, class)
	if err != nil {
		return nil, err
	}
	expiration, err := claims.GetExpirationTime(m, class)
	if err != nil {
		return nil, err
	}
	tenantID, err := claims.GetString(m, class, claims.KeyContextName)
	if err != nil {
		return nil, err
	}
	username, err := claims.GetString(m, class, claims.KeyUsername)
	if err != nil {
		return nil, err
	}
	domain, err := claims.GetString(m, class, claims.KeyDomain)
	if err != nil {
		return nil, err
	}
	email, _, err := claims.GetOptionalString(m, class, claims.KeyEmail)
	if err != nil {
		return nil, err
	}
	permissions, err := claims.GetStringArray(m, class, claims.KeyPermissions)
	if err != nil {
		return nil, err
	}
	nonce, hasNonce, err := claims.GetOptionalString(m, class, claims.KeyNonce)
	if err != nil {
		return nil, err
	}

	t := &CSPToken{
		class:       class,
		serialized:  raw,
		id:          oidc.JWTID(id),
		issuer:      oidc.Issuer(issuer),
		subject:     oidc.Subject(subject),
		audience:    audience,
		issueTime:   issueTime,
		expiration:  expiration,
		tenantID:    tenantID,
		username:    username,
		domain:      domain,
		email:       email,
		permissions: permissions,
	}
	if hasNonce {
		t.nonce = oidc.Nonce(nonce)
	}
	return t, nil
}
