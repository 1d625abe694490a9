// Package oidc defines the primitive value types shared across the protocol
// core: identifiers, scopes, token classes, grant and response types, and the
// wire-level error object.
package oidc

import (
	"fmt"
	"strings"
)

// Issuer is the token issuer URL for a tenant.
type Issuer string

// Subject is the principal a token was issued to (user UPN or solution user name).
type Subject string

// ClientID identifies a registered OIDC client.
type ClientID string

// SessionID identifies a browser SSO session.
type SessionID string

// State is the opaque CSRF value a client round-trips through the authorization flow.
type State string

// Nonce binds a client session to the ID token issued for it.
type Nonce string

// JWTID is the unique id (jti) of a signed token.
type JWTID string

// CorrelationID tags a request for cross-service diagnostics.
type CorrelationID string

// AuthorizationCode is a one-time code exchanged for tokens at the token endpoint.
type AuthorizationCode string

// htmlUnfriendly lists the characters that would require escaping when a value
// is echoed into an HTML page (form_post response, logout page).
const htmlUnfriendly = `<>&"'`

func nonEmpty(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	return nil
}

func htmlFriendly(kind, value string) error {
	if err := nonEmpty(kind, value); err != nil {
		return err
	}
	if strings.ContainsAny(value, htmlUnfriendly) {
		return fmt.Errorf("%s must not contain characters requiring HTML escaping", kind)
	}
	return nil
}

func NewIssuer(value string) (Issuer, error) {
	return Issuer(value), nonEmpty("issuer", value)
}

func NewSubject(value string) (Subject, error) {
	return Subject(value), nonEmpty("subject", value)
}

func NewClientID(value string) (ClientID, error) {
	return ClientID(value), nonEmpty("client id", value)
}

func NewSessionID(value string) (SessionID, error) {
	return SessionID(value), nonEmpty("session id", value)
}

// NewState validates that the value is safe to embed in HTML responses.
func NewState(value string) (State, error) {
	return State(value), htmlFriendly("state", value)
}

// NewNonce validates that the value is safe to embed in HTML responses.
func NewNonce(value string) (Nonce, error) {
	return Nonce(value), htmlFriendly("nonce", value)
}

func NewJWTID(value string) (JWTID, error) {
	return JWTID(value), nonEmpty("jwt id", value)
}

func NewCorrelationID(value string) (CorrelationID, error) {
	return CorrelationID(value), nonEmpty("correlation id", value)
}

func NewAuthorizationCode(value string) (AuthorizationCode, error) {
	return AuthorizationCode(value), nonEmpty("authorization code", value)
}

func (i Issuer) String() string { return string(i) }

func (s Subject) String() string { return string(s) }

func (c ClientID) String() string { return string(c) }

func (s SessionID) String() string { return string(s) }

func (s State) String() string { return string(s) }

func (n Nonce) String() string { return string(n) }

func (j JWTID) String() string { return string(j) }

func (c CorrelationID) String() string { return string(c) }

func (a AuthorizationCode) String() string { return string(a) }
