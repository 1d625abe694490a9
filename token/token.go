// Package token implements the signed-token hierarchy: the server-issued
// ID, access and refresh tokens, and the client-issued assertions presented
// by OIDC clients, person users and solution users. Every token is an RS256
// compact JWS; parsing is structural only, trust is established separately
// with Verify.
package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
	"github.com/verisso/go-oidc-idp/token/keys"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Token is the capability set every signed token offers. A token moves
// through three states: parsed (structurally valid, untrusted), verified
// (signature checked against a candidate key), and accepted (business rules
// checked by the caller).
type Token interface {
	TokenClass() oidc.TokenClass
	TokenType() oidc.TokenType
	ID() oidc.JWTID
	Issuer() oidc.Issuer
	Subject() oidc.Subject
	Audience() []string
	IssueTime() time.Time

	// Serialize returns the original compact JWS, byte-for-byte identical to
	// what was signed or received. Tokens are never re-serialized.
	Serialize() string

	// Verify checks the RS256 signature against the candidate public key.
	// Tokens whose header advertises any other algorithm fail here.
	Verify(key *rsa.PublicKey) error
}

// base carries the claims every token kind shares.
type base struct {
	class      oidc.TokenClass
	tokenType  oidc.TokenType
	id         oidc.JWTID
	issuer     oidc.Issuer
	subject    oidc.Subject
	audience   []string
	issueTime  time.Time
	serialized string
	claims     jwt.MapClaims
}

func (t *base) TokenClass() oidc.TokenClass { return t.class }

func (t *base) TokenType() oidc.TokenType { return t.tokenType }

func (t *base) ID() oidc.JWTID { return t.id }

func (t *base) Issuer() oidc.Issuer { return t.issuer }

func (t *base) Subject() oidc.Subject { return t.subject }

func (t *base) IssueTime() time.Time { return t.issueTime }

func (t *base) Serialize() string { return t.serialized }

func (t *base) Audience() []string {
	out := make([]string, len(t.audience))
	copy(out, t.audience)
	return out
}

func (t *base) Verify(key *rsa.PublicKey) error {
	if err := keys.VerifyRS256(t.serialized, key); err != nil {
		return errs.Wrapf(errs.ErrInvalidSignature, "%s", t.class)
	}
	return nil
}

// Claims exposes the raw claim set for kind-specific readers.
func (t *base) Claims() jwt.MapClaims { return t.claims }

// sniffTokenClass reads the token_class claim without verifying the
// signature, for closed-union dispatch.
func sniffTokenClass(raw string) (oidc.TokenClass, error) {
	m, err := decodeClaims(raw)
	if err != nil {
		return "", err
	}
	s, ok := m[claims.KeyTokenClass].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("token_class claim is missing: %w", errs.ErrInvalidToken)
	}
	return oidc.ParseTokenClass(s)
}

func decodeClaims(raw string) (jwt.MapClaims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "malformed JWT")
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "malformed claim set")
	}
	return m, nil
}

// parseBase structurally validates the shared claims, enforcing an exact
// token_class match and a non-empty audience.
func parseBase(raw string, expected oidc.TokenClass) (base, error) {
	m, err := decodeClaims(raw)
	if err != nil {
		return base{}, err
	}

	classValue, err := claims.GetString(m, expected, claims.KeyTokenClass)
	if err != nil {
		return base{}, err
	}
	if classValue != string(expected) {
		return base{}, fmt.Errorf("%s: incorrect token_class claim %q: %w", expected, classValue, errs.ErrInvalidTokenClass)
	}

	typeValue, err := claims.GetString(m, expected, claims.KeyTokenType)
	if err != nil {
		return base{}, err
	}
	tokenType, err := oidc.ParseTokenType(typeValue)
	if err != nil {
		return base{}, fmt.Errorf("%s: %w", expected, err)
	}

	id, err := claims.GetString(m, expected, claims.KeyJWTID)
	if err != nil {
		return base{}, err
	}
	issuer, err := claims.GetString(m, expected, claims.KeyIssuer)
	if err != nil {
		return base{}, err
	}
	subject, err := claims.GetString(m, expected, claims.KeySubject)
	if err != nil {
		return base{}, err
	}
	audience, err := claims.GetStringArray(m, expected, claims.KeyAudience)
	if err != nil {
		return base{}, err
	}
	issueTime, err := claims.GetIssueTime(m, expected)
	if err != nil {
		return base{}, err
	}

	return base{
		class:      expected,
		tokenType:  tokenType,
		id:         oidc.JWTID(id),
		issuer:     oidc.Issuer(issuer),
		subject:    oidc.Subject(subject),
		audience:   audience,
		issueTime:  issueTime,
		serialized: raw,
		claims:     m,
	}, nil
}

// signBase signs the claim set and fills in the serialized form.
func signBase(class oidc.TokenClass, tokenType oidc.TokenType, id oidc.JWTID, issuer oidc.Issuer, subject oidc.Subject, audience []string, issueTime time.Time, m jwt.MapClaims, key *rsa.PrivateKey) (base, error) {
	serialized, err := keys.Sign(m, key)
	if err != nil {
		return base{}, err
	}
	aud := make([]string, len(audience))
	copy(aud, audience)
	return base{
		class:      class,
		tokenType:  tokenType,
		id:         id,
		issuer:     issuer,
		subject:    subject,
		audience:   aud,
		issueTime:  issueTime,
		serialized: serialized,
		claims:     m,
	}, nil
}

func defaultJWTID(id oidc.JWTID) oidc.JWTID {
	if id == "" {
		return oidc.JWTID(uuid.New().String())
	}
	return id
}

func defaultIssuedAt(t time.Time) time.Time {
	if t.IsZero() {
		return NowTimeFunc()
	}
	// Claims carry Unix seconds; truncate so the parsed token matches.
	return t.Truncate(time.Second)
}

// Parse dispatches an opaque signed token to the parser matching its
// token_class claim. Federation tokens have their own claim shape and are
// handled by the federation package.
func Parse(raw string) (Token, error) {
	class, err := sniffTokenClass(raw)
	if err != nil {
		return nil, err
	}
	switch class {
	case oidc.TokenClassIDToken:
		return ParseIDToken(raw)
	case oidc.TokenClassAccessToken:
		return ParseAccessToken(raw)
	case oidc.TokenClassRefreshToken:
		return ParseRefreshToken(raw)
	case oidc.TokenClassClientAssertion:
		return ParseClientAssertion(raw)
	case oidc.TokenClassPersonUserAssertion:
		return ParsePersonUserAssertion(raw)
	case oidc.TokenClassSolutionUserAssertion:
		return ParseSolutionUserAssertion(raw)
	}
	return nil, errs.Wrapf(errs.ErrUnsupported, "token_class %q", class)
}
