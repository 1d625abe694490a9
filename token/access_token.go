package token

import (
	"crypto/rsa"

	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
)

// AccessToken is the resource-server-facing token. Groups and the admin
// server role are present only when the corresponding scope was requested.
type AccessToken struct {
	serverIssued
	groups          []string
	adminServerRole string
}

// AccessTokenParams are the fields for issuing an access token.
type AccessTokenParams struct {
	ServerIssueParams
	Groups          []string
	AdminServerRole string
}

func (t *AccessToken) Groups() []string {
	out := make([]string, len(t.groups))
	copy(out, t.groups)
	return out
}

func (t *AccessToken) AdminServerRole() string { return t.adminServerRole }

// IssueAccessToken builds, signs and returns an access token.
func IssueAccessToken(p AccessTokenParams, key *rsa.PrivateKey) (*AccessToken, error) {
	st, m, err := buildServerIssued(oidc.TokenClassAccessToken, p.ServerIssueParams)
	if err != nil {
		return nil, err
	}
	claims.SetStringArray(m, claims.KeyGroups, p.Groups)
	claims.SetString(m, claims.KeyAdminServerRole, p.AdminServerRole)

	st.base, err = signBase(st.class, st.tokenType, st.id, st.issuer, st.subject, st.audience, st.issueTime, m, key)
	if err != nil {
		return nil, err
	}
	return &AccessToken{
		serverIssued:    st,
		groups:          append([]string(nil), p.Groups...),
		adminServerRole: p.AdminServerRole,
	}, nil
}

// ParseAccessToken structurally validates an opaque signed access token.
func ParseAccessToken(raw string) (*AccessToken, error) {
	st, err := parseServerIssued(raw, oidc.TokenClassAccessToken)
	if err != nil {
		return nil, err
	}
	m := st.claims

	var groups []string
	if _, ok := m[claims.KeyGroups]; ok {
		groups, err = claims.GetStringArray(m, oidc.TokenClassAccessToken, claims.KeyGroups)
		if err != nil {
			return nil, err
		}
	}
	adminServerRole, _, err := claims.GetOptionalString(m, oidc.TokenClassAccessToken, claims.KeyAdminServerRole)
	if err != nil {
		return nil, err
	}

	return &AccessToken{
		serverIssued:    st,
		groups:          groups,
		adminServerRole: adminServerRole,
	}, nil
}
