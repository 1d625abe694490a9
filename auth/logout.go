package auth

import (
	"net/url"

	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/protocol"
)

// Logout executes the end-session semantics: it verifies the ID token
// hint against the tenant signing key, tears down the browser session and
// fans the logout out to every participating client's logout URI.
func (s *Service) Logout(tenantName string, req *protocol.LogoutRequest, requestURI *url.URL) (*protocol.LogoutSuccessResponse, *oidc.ErrorObject) {
	tenant, eo := s.tenant(tenantName)
	if eo != nil {
		return nil, eo
	}
	pol := s.policyFor(tenant)

	hint := req.IDTokenHint
	if err := hint.Verify(tenant.SigningKeys.PublicKey); err != nil {
		return nil, oidc.ErrInvalidRequest("id_token_hint signature verification failed")
	}
	if hint.Tenant() != tenantName {
		return nil, oidc.ErrInvalidRequest("id_token_hint was issued for another tenant")
	}

	client, eo := s.client(tenantName, req.ClientID)
	if eo != nil {
		return nil, eo
	}
	if !client.HasPostLogoutRedirectURI(req.PostLogoutRedirectURI.String()) {
		return nil, oidc.ErrInvalidRequest("unregistered post_logout_redirect_uri %q", req.PostLogoutRedirectURI)
	}
	if req.ClientAssertion != nil {
		if eo := s.verifyClientAssertion(client, req.ClientAssertion, pol, requestURI); eo != nil {
			return nil, eo
		}
	}

	response := &protocol.LogoutSuccessResponse{
		RedirectTarget: req.PostLogoutRedirectURI,
		State:          req.State,
	}

	sessionID := hint.SessionID()
	if sessionID == "" {
		return response, nil
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		// Session already gone; nothing to fan out.
		return response, nil
	}

	var logoutURIs []*url.URL
	for _, participantID := range session.ClientIDs {
		participant, err := s.repos.Clients.GetClient(tenantName, participantID)
		if err != nil || participant.LogoutURI == "" {
			continue
		}
		u, err := url.Parse(participant.LogoutURI)
		if err != nil {
			continue
		}
		logoutURIs = append(logoutURIs, u)
	}

	if err := s.sessions.Remove(sessionID); err != nil {
		return nil, oidc.ErrServerError("failed to remove session: %s", err)
	}

	response.SessionID = sessionID
	response.LogoutURIs = logoutURIs
	return response, nil
}
