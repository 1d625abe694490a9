package auth

import (
	"crypto/rsa"

	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/protocol"
	"github.com/verisso/go-oidc-idp/tenants"
	"github.com/verisso/go-oidc-idp/token"
)

const administratorsGroup = "Administrators"

// issueParams collects everything needed to mint the token set for one
// successful grant.
type issueParams struct {
	tenant      *tenants.Tenant
	pol         policy
	subject     oidc.Subject
	clientID    oidc.ClientID  // empty for client-less grants
	scope       oidc.Scope
	sessionID   oidc.SessionID // empty outside the code flow
	nonce       oidc.Nonce
	actAs       oidc.Subject
	holderOfKey *rsa.PublicKey
	person      bool // person users get group claims resolved
	withRefresh bool
}

// groupClaims resolves the group membership and splits it into the
// unfiltered and resource-server-filtered variants. The filtered variant
// is the union of each requested resource server's filter applied to the
// membership; with no resource server in scope it stays empty.
func (s *Service) groupClaims(p issueParams) (unfiltered, filtered []string, adminRole string, eo *oidc.ErrorObject) {
	wantsGroups := p.scope.Contains(oidc.ScopeIDGroups) || p.scope.Contains(oidc.ScopeATGroups) ||
		p.scope.Contains(oidc.ScopeIDGroupsFiltered) || p.scope.Contains(oidc.ScopeATGroupsFiltered)
	wantsRole := p.scope.Contains(oidc.ScopeAdminServer)
	if !p.person || (!wantsGroups && !wantsRole) {
		return nil, nil, "", nil
	}

	membership, err := s.repos.Identity.GetGroupMembership(p.tenant.Name, p.subject)
	if err != nil {
		return nil, nil, "", oidc.ErrServerError("failed to resolve group membership for %q", p.subject)
	}
	unfiltered = membership

	if p.scope.Contains(oidc.ScopeIDGroupsFiltered) || p.scope.Contains(oidc.ScopeATGroupsFiltered) {
		seen := make(map[string]bool)
		for _, rsScope := range p.scope.ResourceServers() {
			rs, err := s.repos.Clients.GetResourceServer(p.tenant.Name, rsScope.String())
			if err != nil {
				return nil, nil, "", oidc.ErrInvalidScope("unregistered resource server %q", rsScope)
			}
			for _, g := range rs.FilterGroups(membership) {
				if !seen[g] {
					seen[g] = true
					filtered = append(filtered, g)
				}
			}
		}
	}

	if wantsRole {
		adminRole = "RegularUser"
		for _, g := range membership {
			if g == administratorsGroup {
				adminRole = "Administrator"
				break
			}
		}
	}
	return unfiltered, filtered, adminRole, nil
}

// issueTokens signs the ID token, access token and, when requested, the
// refresh token for one accepted grant.
func (s *Service) issueTokens(p issueParams) (*protocol.TokenSuccessResponse, *oidc.ErrorObject) {
	unfiltered, filtered, adminRole, eo := s.groupClaims(p)
	if eo != nil {
		return nil, eo
	}

	idGroups := unfiltered
	if p.scope.Contains(oidc.ScopeIDGroupsFiltered) {
		idGroups = filtered
	} else if !p.scope.Contains(oidc.ScopeIDGroups) {
		idGroups = nil
	}
	atGroups := unfiltered
	if p.scope.Contains(oidc.ScopeATGroupsFiltered) {
		atGroups = filtered
	} else if !p.scope.Contains(oidc.ScopeATGroups) {
		atGroups = nil
	}

	tokenType := oidc.TokenTypeBearer
	accessLifetime := p.pol.bearerLifetime
	if p.holderOfKey != nil {
		tokenType = oidc.TokenTypeHolderOfKey
		accessLifetime = p.pol.hokLifetime
	}

	idAudience := []string{string(p.clientID)}
	if p.clientID == "" {
		idAudience = []string{string(p.subject)}
	}
	accessAudience := append([]string(nil), idAudience...)
	for _, rsScope := range p.scope.ResourceServers() {
		accessAudience = append(accessAudience, rsScope.String())
	}

	now := s.nowTime()
	base := token.ServerIssueParams{
		TokenType:   tokenType,
		Issuer:      p.tenant.Issuer,
		Subject:     p.subject,
		IssuedAt:    now,
		Scope:       p.scope,
		Tenant:      p.tenant.Name,
		ClientID:    p.clientID,
		SessionID:   p.sessionID,
		HolderOfKey: p.holderOfKey,
		ActAs:       p.actAs,
		Nonce:       p.nonce,
	}
	signingKey := p.tenant.SigningKeys.PrivateKey

	idParams := base
	idParams.Audience = idAudience
	idParams.Lifetime = p.pol.idLifetime
	var givenName, familyName string
	if p.person {
		if user, err := s.repos.Identity.GetPersonUser(p.tenant.Name, p.subject); err == nil {
			givenName = user.GivenName
			familyName = user.FamilyName
		}
	}
	idToken, err := token.IssueIDToken(token.IDTokenParams{
		ServerIssueParams: idParams,
		Groups:            idGroups,
		GivenName:         givenName,
		FamilyName:        familyName,
	}, signingKey)
	if err != nil {
		return nil, oidc.ErrServerError("failed to issue id token: %s", err)
	}

	atParams := base
	atParams.Audience = accessAudience
	atParams.Lifetime = accessLifetime
	accessToken, err := token.IssueAccessToken(token.AccessTokenParams{
		ServerIssueParams: atParams,
		Groups:            atGroups,
		AdminServerRole:   adminRole,
	}, signingKey)
	if err != nil {
		return nil, oidc.ErrServerError("failed to issue access token: %s", err)
	}

	response := &protocol.TokenSuccessResponse{
		IDToken:     idToken,
		AccessToken: accessToken,
	}

	if p.withRefresh && p.scope.Contains(oidc.ScopeOfflineAccess) {
		rtParams := base
		rtParams.Audience = idAudience
		rtParams.Lifetime = p.pol.refreshLifetime
		refreshToken, err := token.IssueRefreshToken(token.RefreshTokenParams{ServerIssueParams: rtParams}, signingKey)
		if err != nil {
			return nil, oidc.ErrServerError("failed to issue refresh token: %s", err)
		}
		response.RefreshToken = refreshToken
	}
	return response, nil
}
