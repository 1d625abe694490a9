package token

import (
	"crypto/rsa"

	"github.com/verisso/go-oidc-idp/oidc"
)

// RefreshToken lets a client obtain fresh ID and access tokens without
// re-authenticating. It carries no claims beyond the server-issued set.
type RefreshToken struct {
	serverIssued
}

// RefreshTokenParams are the fields for issuing a refresh token.
type RefreshTokenParams struct {
	ServerIssueParams
}

// IssueRefreshToken builds, signs and returns a refresh token. The scope
// must include offline_access; a refresh token outside that scope is a
// construction bug, not a runtime condition.
func IssueRefreshToken(p RefreshTokenParams, key *rsa.PrivateKey) (*RefreshToken, error) {
	st, m, err := buildServerIssued(oidc.TokenClassRefreshToken, p.ServerIssueParams)
	if err != nil {
		return nil, err
	}
	st.base, err = signBase(st.class, st.tokenType, st.id, st.issuer, st.subject, st.audience, st.issueTime, m, key)
	if err != nil {
		return nil, err
	}
	return &RefreshToken{serverIssued: st}, nil
}

// ParseRefreshToken structurally validates an opaque signed refresh token.
func ParseRefreshToken(raw string) (*RefreshToken, error) {
	st, err := parseServerIssued(raw, oidc.TokenClassRefreshToken)
	if err != nil {
		return nil, err
	}
	return &RefreshToken{serverIssued: st}, nil
}
