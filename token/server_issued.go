package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
)

// serverIssued carries the claims shared by ID, access and refresh tokens:
// tokens produced by signing with the tenant private key.
type serverIssued struct {
	base
	expiration  time.Time
	scope       oidc.Scope
	tenant      string
	clientID    oidc.ClientID
	sessionID   oidc.SessionID
	holderOfKey *rsa.PublicKey
	actAs       oidc.Subject
	nonce       oidc.Nonce
}

func (t *serverIssued) Expiration() time.Time { return t.expiration }

func (t *serverIssued) Scope() oidc.Scope { return t.scope }

func (t *serverIssued) Tenant() string { return t.tenant }

func (t *serverIssued) ClientID() oidc.ClientID { return t.clientID }

func (t *serverIssued) SessionID() oidc.SessionID { return t.sessionID }

func (t *serverIssued) HolderOfKey() *rsa.PublicKey { return t.holderOfKey }

func (t *serverIssued) ActAs() oidc.Subject { return t.actAs }

func (t *serverIssued) Nonce() oidc.Nonce { return t.nonce }

// Lifetime is the issued validity span (exp - iat).
func (t *serverIssued) Lifetime() time.Duration { return t.expiration.Sub(t.issueTime) }

// Expired reports whether the token is past its expiration, allowing the
// given clock tolerance.
func (t *serverIssued) Expired(now time.Time, clockTolerance time.Duration) bool {
	return now.After(t.expiration.Add(clockTolerance))
}

// ServerIssueParams are the fields common to issuing any server token.
type ServerIssueParams struct {
	TokenType oidc.TokenType // defaults to Bearer
	ID        oidc.JWTID     // defaults to a fresh UUID
	Issuer    oidc.Issuer
	Subject   oidc.Subject
	Audience  []string
	IssuedAt  time.Time // defaults to now
	Lifetime  time.Duration
	Scope     oidc.Scope
	Tenant    string

	ClientID    oidc.ClientID  // optional
	SessionID   oidc.SessionID // optional
	HolderOfKey *rsa.PublicKey // optional, required for hotk-pk token type
	ActAs       oidc.Subject   // optional
	Nonce       oidc.Nonce     // optional
}

// buildServerIssued validates the params and assembles the shared claim set.
// Kind-specific claims are appended by the caller before signing.
func buildServerIssued(class oidc.TokenClass, p ServerIssueParams) (serverIssued, jwt.MapClaims, error) {
	tokenType := p.TokenType
	if tokenType == "" {
		tokenType = oidc.TokenTypeBearer
	}
	if tokenType == oidc.TokenTypeHolderOfKey && p.HolderOfKey == nil {
		return serverIssued{}, nil, fmt.Errorf("%s: hotk-pk token requires a holder-of-key public key", class)
	}
	if p.Issuer == "" || p.Subject == "" {
		return serverIssued{}, nil, fmt.Errorf("%s: issuer and subject are required", class)
	}
	if len(p.Audience) == 0 {
		return serverIssued{}, nil, fmt.Errorf("%s: audience must not be empty", class)
	}
	if p.Scope.IsZero() {
		return serverIssued{}, nil, fmt.Errorf("%s: scope is required", class)
	}
	if p.Tenant == "" {
		return serverIssued{}, nil, fmt.Errorf("%s: tenant is required", class)
	}

	id := defaultJWTID(p.ID)
	issuedAt := defaultIssuedAt(p.IssuedAt)
	expiration := issuedAt.Add(p.Lifetime).Truncate(time.Second)
	if !issuedAt.Before(expiration) {
		return serverIssued{}, nil, fmt.Errorf("%s: iat must be before exp", class)
	}

	m := claims.Base(class, tokenType, id, p.Issuer, p.Subject, p.Audience, issuedAt)
	claims.SetTime(m, claims.KeyExpiration, expiration)
	claims.SetString(m, claims.KeyScope, p.Scope.String())
	claims.SetString(m, claims.KeyTenant, p.Tenant)
	claims.SetString(m, claims.KeyClientID, string(p.ClientID))
	claims.SetString(m, claims.KeySessionID, string(p.SessionID))
	claims.SetString(m, claims.KeyActAs, string(p.ActAs))
	claims.SetString(m, claims.KeyNonce, string(p.Nonce))
	if err := claims.SetHolderOfKey(m, p.HolderOfKey); err != nil {
		return serverIssued{}, nil, errs.Wrapf(err, "%s: encoding hotk claim", class)
	}

	aud := make([]string, len(p.Audience))
	copy(aud, p.Audience)
	return serverIssued{
		base: base{
			class:     class,
			tokenType: tokenType,
			id:        id,
			issuer:    p.Issuer,
			subject:   p.Subject,
			audience:  aud,
			issueTime: issuedAt,
		},
		expiration:  expiration,
		scope:       p.Scope,
		tenant:      p.Tenant,
		clientID:    p.ClientID,
		sessionID:   p.SessionID,
		holderOfKey: p.HolderOfKey,
		actAs:       p.ActAs,
		nonce:       p.Nonce,
	}, m, nil
}

// parseServerIssued structurally validates the claims shared by server
// tokens, enforcing iat strictly before exp.
func parseServerIssued(raw string, class oidc.TokenClass) (serverIssued, error) {
	b, err := parseBase(raw, class)
	if err != nil {
		return serverIssued{}, err
	}
	m := b.claims

	expiration, err := claims.GetExpirationTime(m, class)
	if err != nil {
		return serverIssued{}, err
	}
	if !b.issueTime.Before(expiration) {
		return serverIssued{}, fmt.Errorf("%s: iat must be before exp: %w", class, errs.ErrInvalidToken)
	}

	scopeValue, err := claims.GetString(m, class, claims.KeyScope)
	if err != nil {
		return serverIssued{}, err
	}
	scope, err := oidc.ParseScope(scopeValue)
	if err != nil {
		return serverIssued{}, fmt.Errorf("%s: %w", class, err)
	}

	tenant, err := claims.GetString(m, class, claims.KeyTenant)
	if err != nil {
		return serverIssued{}, err
	}

	clientID, _, err := claims.GetOptionalString(m, class, claims.KeyClientID)
	if err != nil {
		return serverIssued{}, err
	}
	sessionID, _, err := claims.GetOptionalString(m, class, claims.KeySessionID)
	if err != nil {
		return serverIssued{}, err
	}
	actAs, _, err := claims.GetOptionalString(m, class, claims.KeyActAs)
	if err != nil {
		return serverIssued{}, err
	}
	nonce, _, err := claims.GetOptionalString(m, class, claims.KeyNonce)
	if err != nil {
		return serverIssued{}, err
	}
	holderOfKey, err := claims.GetHolderOfKey(m, class)
	if err != nil {
		return serverIssued{}, err
	}
	if b.tokenType == oidc.TokenTypeHolderOfKey && holderOfKey == nil {
		return serverIssued{}, fmt.Errorf("%s: hotk-pk token is missing the hotk claim: %w", class, errs.ErrInvalidToken)
	}

	return serverIssued{
		base:        b,
		expiration:  expiration,
		scope:       scope,
		tenant:      tenant,
		clientID:    oidc.ClientID(clientID),
		sessionID:   oidc.SessionID(sessionID),
		holderOfKey: holderOfKey,
		actAs:       oidc.Subject(actAs),
		nonce:       oidc.Nonce(nonce),
	}, nil
}
