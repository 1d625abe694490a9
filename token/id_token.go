package token

import (
	"crypto/rsa"

	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
)

// IDToken is the OpenID Connect identity token. Groups and name claims are
// present only when the corresponding scope was requested.
type IDToken struct {
	serverIssued
	groups     []string
	givenName  string
	familyName string
}

// IDTokenParams are the fields for issuing an ID token.
type IDTokenParams struct {
	ServerIssueParams
	Groups     []string
	GivenName  string
	FamilyName string
}

func (t *IDToken) Groups() []string {
	out := make([]string, len(t.groups))
	copy(out, t.groups)
	return out
}

func (t *IDToken) GivenName() string  { return t.givenName }
func (t *IDToken) FamilyName() string { return t.familyName }

// IssueIDToken builds, signs and returns an ID token.
func IssueIDToken(p IDTokenParams, key *rsa.PrivateKey) (*IDToken, error) {
	st, m, err := buildServerIssued(oidc.TokenClassIDToken, p.ServerIssueParams)
	if err != nil {
		return nil, err
	}
	claims.SetStringArray(m, claims.KeyGroups, p.Groups)
	claims.SetString(m, claims.KeyGivenName, p.GivenName)
	claims.SetString(m, claims.KeyFamilyName, p.FamilyName)

	st.base, err = signBase(st.class, st.tokenType, st.id, st.issuer, st.subject, st.audience, st.issueTime, m, key)
	if err != nil {
		return nil, err
	}
	return &IDToken{
		serverIssued: st,
		groups:       append([]string(nil), p.Groups...),
		givenName:    p.GivenName,
		familyName:   p.FamilyName,
	}, nil
}

// ParseIDToken structurally validates an opaque signed ID token. The result
// is untrusted until Verify succeeds.
func ParseIDToken(raw string) (*IDToken, error) {
	st, err := parseServerIssued(raw, oidc.TokenClassIDToken)
	if err != nil {
		return nil, err
	}
	m := st.claims

	var groups []string
	if _, ok := m[claims.KeyGroups]; ok {
		groups, err = claims.GetStringArray(m, oidc.TokenClassIDToken, claims.KeyGroups)
		if err != nil {
			return nil, err
		}
	}
	givenName, _, err := claims.GetOptionalString(m, oidc.TokenClassIDToken, claims.KeyGivenName)
	if err != nil {
		return nil, err
	}
	familyName, _, err := claims.GetOptionalString(m, oidc.TokenClassIDToken, claims.KeyFamilyName)
	if err != nil {
		return nil, err
	}

	return &IDToken{
		serverIssued: st,
		groups:       groups,
		givenName:    givenName,
		familyName:   familyName,
	}, nil
}
