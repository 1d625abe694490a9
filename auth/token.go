package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"net/url"

	"github.com/verisso/go-oidc-idp/clients"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/protocol"
	"github.com/verisso/go-oidc-idp/tenants"
	"github.com/verisso/go-oidc-idp/token"
)

// Token executes the token endpoint semantics: it authenticates the
// caller per the grant's rules and returns the issued token set.
// requestURI is the endpoint URI as observed by this server, used for
// assertion audience matching; certChain is the TLS client certificate
// chain, consumed by the person_user_certificate grant.
func (s *Service) Token(tenantName string, req *protocol.TokenRequest, requestURI *url.URL, certChain []*x509.Certificate) (*protocol.TokenSuccessResponse, *oidc.ErrorObject) {
	tenant, eo := s.tenant(tenantName)
	if eo != nil {
		return nil, eo
	}
	pol := s.policyFor(tenant)

	// The parse layer already enforced which grants require which
	// assertion; here a present client assertion is always verified
	// against the registered client certificate, and the client's
	// registered token endpoint auth method is enforced either way.
	var client *clients.Client
	if req.ClientAssertion != nil {
		client, eo = s.client(tenantName, req.EffectiveClientID())
		if eo != nil {
			return nil, eo
		}
		if client.TokenEndpointAuthMethod == clients.AuthMethodNone {
			return nil, oidc.ErrInvalidClient("public client %q must not present a client_assertion", client.ID)
		}
		if eo = s.verifyClientAssertion(client, req.ClientAssertion, pol, requestURI); eo != nil {
			return nil, eo
		}
	} else if req.ClientID != "" {
		client, eo = s.client(tenantName, req.ClientID)
		if eo != nil {
			return nil, eo
		}
		if client.TokenEndpointAuthMethod == clients.AuthMethodPrivateKeyJWT {
			return nil, oidc.ErrInvalidClient("client %q requires a client_assertion", client.ID)
		}
	}

	var clientID oidc.ClientID
	if client != nil {
		clientID = client.ID
	}

	switch grant := req.Grant.(type) {
	case protocol.AuthorizationCodeGrant:
		return s.redeemAuthorizationCode(tenant, pol, client, grant)

	case protocol.PasswordGrant:
		user, err := s.repos.Identity.AuthenticatePassword(tenantName, grant.Username, grant.Password)
		if err != nil {
			return nil, oidc.ErrInvalidGrant("password authentication failed for %q", grant.Username)
		}
		return s.issuePersonTokens(tenant, pol, user.Subject, clientID, req.Scope)

	case protocol.GSSTicketGrant:
		user, err := s.repos.Identity.AuthenticateGSS(tenantName, grant.ContextID, grant.Ticket)
		if err != nil {
			return nil, oidc.ErrInvalidGrant("gss authentication failed: %s", err)
		}
		return s.issuePersonTokens(tenant, pol, user.Subject, clientID, req.Scope)

	case protocol.SecurIDGrant:
		user, err := s.repos.Identity.AuthenticateSecurID(tenantName, grant.Username, grant.Passcode, grant.SessionID)
		if err != nil {
			return nil, oidc.ErrInvalidGrant("securid authentication failed for %q", grant.Username)
		}
		return s.issuePersonTokens(tenant, pol, user.Subject, clientID, req.Scope)

	case protocol.PersonUserCertificateGrant:
		user, err := s.repos.Identity.AuthenticateCertificate(tenantName, certChain)
		if err != nil {
			return nil, oidc.ErrInvalidGrant("certificate authentication failed: %s", err)
		}
		return s.issuePersonTokens(tenant, pol, user.Subject, clientID, req.Scope)

	case protocol.SolutionUserCredentialsGrant:
		user, eo := s.verifySolutionUserAssertion(tenantName, req.SolutionUserAssertion, pol, requestURI)
		if eo != nil {
			return nil, eo
		}
		// A TLS client certificate, when presented, must belong to the
		// same solution user the assertion names.
		if len(certChain) > 0 {
			chainUser, err := s.repos.Identity.GetSolutionUserByCertSubject(tenantName, certChain[0].Subject.String())
			if err != nil || chainUser.Subject != user.Subject {
				return nil, oidc.ErrInvalidGrant("client certificate does not belong to solution user %q", user.Subject)
			}
		}
		// Solution user tokens are bound to the registered certificate
		// key; redemption requires proof of possession.
		publicKey, _ := user.Certificate.PublicKey.(*rsa.PublicKey)
		return s.issueTokens(issueParams{
			tenant:      tenant,
			pol:         pol,
			subject:     user.Subject,
			scope:       req.Scope,
			holderOfKey: publicKey,
		})

	case protocol.ClientCredentialsGrant:
		// A TLS client certificate, when presented, must carry the
		// client's registered certificate subject.
		if len(certChain) > 0 && client.CertSubjectDN != "" &&
			certChain[0].Subject.String() != client.CertSubjectDN {
			return nil, oidc.ErrInvalidClient("client certificate does not match the registered subject for %q", client.ID)
		}
		return s.issueTokens(issueParams{
			tenant:   tenant,
			pol:      pol,
			subject:  oidc.Subject(client.ID),
			clientID: client.ID,
			scope:    req.Scope,
		})

	case protocol.RefreshTokenGrant:
		return s.redeemRefreshToken(tenant, pol, clientID, grant.RefreshToken)

	default:
		return nil, oidc.ErrUnsupportedGrantType("unsupported grant type %q", req.Grant.Type())
	}
}

// issuePersonTokens is the shared tail of the direct-credential grants.
func (s *Service) issuePersonTokens(tenant *tenants.Tenant, pol policy, subject oidc.Subject, clientID oidc.ClientID, scope oidc.Scope) (*protocol.TokenSuccessResponse, *oidc.ErrorObject) {
	active, err := s.repos.Identity.IsActive(tenant.Name, subject)
	if err != nil || !active {
		return nil, oidc.ErrAccessDenied("user %q is not active", subject)
	}
	return s.issueTokens(issueParams{
		tenant:      tenant,
		pol:         pol,
		subject:     subject,
		clientID:    clientID,
		scope:       scope,
		person:      true,
		withRefresh: true,
	})
}

// redeemAuthorizationCode consumes the one-time code and issues the token
// set fixed by the original authentication request. A second redemption
// of the same code fails as if the code never existed.
func (s *Service) redeemAuthorizationCode(tenant *tenants.Tenant, pol policy, client *clients.Client, grant protocol.AuthorizationCodeGrant) (*protocol.TokenSuccessResponse, *oidc.ErrorObject) {
	entry, err := s.codes.Consume(grant.Code)
	if err != nil {
		return nil, oidc.ErrInvalidGrant("invalid authorization code")
	}
	if entry.Tenant != tenant.Name {
		return nil, oidc.ErrInvalidGrant("authorization code was issued for another tenant")
	}
	if entry.AuthnRequest.ClientID != client.ID {
		return nil, oidc.ErrInvalidGrant("authorization code was issued to another client")
	}
	if grant.RedirectURI == nil || grant.RedirectURI.String() != entry.AuthnRequest.RedirectURI.String() {
		return nil, oidc.ErrInvalidGrant("redirect_uri does not match the authorization request")
	}
	active, err := s.repos.Identity.IsActive(tenant.Name, entry.Subject)
	if err != nil || !active {
		return nil, oidc.ErrAccessDenied("user %q is not active", entry.Subject)
	}

	// Scope, nonce and session were fixed at the authorization endpoint.
	return s.issueTokens(issueParams{
		tenant:      tenant,
		pol:         pol,
		subject:     entry.Subject,
		clientID:    client.ID,
		scope:       entry.AuthnRequest.Scope,
		sessionID:   entry.SessionID,
		nonce:       entry.AuthnRequest.Nonce,
		person:      true,
		withRefresh: true,
	})
}

// redeemRefreshToken verifies the presented refresh token against the
// tenant signing key and issues a fresh ID and access token pair. No new
// refresh token is returned; redemption is repeatable until expiry.
func (s *Service) redeemRefreshToken(tenant *tenants.Tenant, pol policy, clientID oidc.ClientID, refreshToken *token.RefreshToken) (*protocol.TokenSuccessResponse, *oidc.ErrorObject) {
	if err := refreshToken.Verify(tenant.SigningKeys.PublicKey); err != nil {
		return nil, oidc.ErrInvalidGrant("refresh token signature verification failed")
	}
	if refreshToken.Tenant() != tenant.Name {
		return nil, oidc.ErrInvalidGrant("refresh token was issued for another tenant")
	}
	if string(refreshToken.Issuer()) != string(tenant.Issuer) {
		return nil, oidc.ErrInvalidGrant("refresh token was issued by another issuer")
	}
	if refreshToken.Expired(s.nowTime(), pol.clockTolerance) {
		return nil, oidc.ErrInvalidGrant("refresh token has expired")
	}
	if clientID != "" && refreshToken.ClientID() != "" && clientID != refreshToken.ClientID() {
		return nil, oidc.ErrInvalidGrant("refresh token was issued to another client")
	}
	if clientID == "" {
		clientID = refreshToken.ClientID()
	}

	active, err := s.repos.Identity.IsActive(tenant.Name, refreshToken.Subject())
	if err != nil || !active {
		return nil, oidc.ErrAccessDenied("user %q is not active", refreshToken.Subject())
	}

	return s.issueTokens(issueParams{
		tenant:      tenant,
		pol:         pol,
		subject:     refreshToken.Subject(),
		clientID:    clientID,
		scope:       refreshToken.Scope(),
		sessionID:   refreshToken.SessionID(),
		actAs:       refreshToken.ActAs(),
		holderOfKey: refreshToken.HolderOfKey(),
		person:      true,
	})
}
