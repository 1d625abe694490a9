package auth

import (
	"net/url"

	"github.com/verisso/go-oidc-idp/idm"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/protocol"
	"github.com/verisso/go-oidc-idp/store"
)

// Login authenticates a person user with the given credentials and
// establishes a new browser session on success. The server's login
// handler calls this before Authorize when no session cookie is present.
func (s *Service) Login(tenantName string, method store.LoginMethod, authenticate func(idm.Backend) (*idm.PersonUser, error)) (oidc.SessionID, oidc.Subject, *oidc.ErrorObject) {
	if _, eo := s.tenant(tenantName); eo != nil {
		return "", "", eo
	}
	user, err := authenticate(s.repos.Identity)
	if err != nil {
		return "", "", oidc.ErrAccessDenied("authentication failed: %s", err)
	}
	if user.Disabled {
		return "", "", oidc.ErrAccessDenied("user %q is disabled", user.Subject)
	}

	sessionID := s.sessions.NewSessionID()
	s.sessions.Add(sessionID, tenantName, user.Subject, method, "")
	return sessionID, user.Subject, nil
}

// Authorize executes the authorization endpoint semantics for an already
// authenticated browser session: it validates the client and redirect
// URI, then either binds a one-time authorization code (code flow) or
// issues the tokens directly (implicit flow).
func (s *Service) Authorize(tenantName string, req *protocol.AuthenticationRequest, sessionID oidc.SessionID, requestURI *url.URL) (*protocol.AuthenticationSuccessResponse, *oidc.ErrorObject) {
	tenant, eo := s.tenant(tenantName)
	if eo != nil {
		return nil, eo
	}
	pol := s.policyFor(tenant)

	client, eo := s.client(tenantName, req.ClientID)
	if eo != nil {
		return nil, eo
	}
	if !client.HasRedirectURI(req.RedirectURI.String()) {
		return nil, oidc.ErrInvalidRequest("unregistered redirect_uri %q", req.RedirectURI)
	}
	if req.ClientAssertion != nil {
		if eo := s.verifyClientAssertion(client, req.ClientAssertion, pol, requestURI); eo != nil {
			return nil, eo
		}
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, oidc.ErrAccessDenied("no valid session, login is required")
	}
	if session.Tenant != tenantName {
		return nil, oidc.ErrAccessDenied("session does not belong to tenant %q", tenantName)
	}
	active, err := s.repos.Identity.IsActive(tenantName, session.Subject)
	if err != nil || !active {
		return nil, oidc.ErrAccessDenied("user %q is not active", session.Subject)
	}
	if err := s.sessions.Associate(sessionID, req.ClientID); err != nil {
		return nil, oidc.ErrServerError("failed to associate session: %s", err)
	}

	response := &protocol.AuthenticationSuccessResponse{
		ResponseMode: req.ResponseMode,
		RedirectURI:  req.RedirectURI,
		State:        req.State,
	}

	if req.ResponseType.IsAuthorizationCodeFlow() {
		code := s.codes.NewCode()
		s.codes.Add(code, store.CodeEntry{
			Tenant:       tenantName,
			Subject:      session.Subject,
			SessionID:    sessionID,
			AuthnRequest: req,
		})
		response.Code = code
		return response, nil
	}

	// Implicit flow: tokens come straight back on the redirect.
	tokens, eo := s.issueTokens(issueParams{
		tenant:    tenant,
		pol:       pol,
		subject:   session.Subject,
		clientID:  req.ClientID,
		scope:     req.Scope,
		sessionID: sessionID,
		nonce:     req.Nonce,
		person:    true,
	})
	if eo != nil {
		return nil, eo
	}
	response.IDToken = tokens.IDToken
	if req.ResponseType.Contains(oidc.ResponseTypeValueToken) {
		response.AccessToken = tokens.AccessToken
	}
	return response, nil
}
