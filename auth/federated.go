package auth

import (
	"github.com/verisso/go-oidc-idp/federation"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/store"
)

// FederatedLogin establishes a browser session from an ID token minted
// by the tenant's trusted external identity provider. The token must
// carry the tenant in its context, be signed by the registered external
// key and name an already provisioned, active person user.
func (s *Service) FederatedLogin(tenantName, rawIDToken string) (oidc.SessionID, oidc.Subject, *oidc.ErrorObject) {
	tenant, eo := s.tenant(tenantName)
	if eo != nil {
		return "", "", eo
	}
	if tenant.ExternalIDP == nil {
		return "", "", oidc.ErrInvalidRequest("tenant %q has no external identity provider", tenantName)
	}
	pol := s.policyFor(tenant)

	issuerType, err := federation.ParseIssuerType(tenant.ExternalIDP.IssuerType)
	if err != nil {
		return "", "", oidc.ErrServerError("misconfigured external identity provider: %s", err)
	}
	external, err := federation.ParseToken(issuerType, oidc.TokenClassFederationIDToken, rawIDToken)
	if err != nil {
		return "", "", oidc.ErrInvalidRequest("malformed federation id token: %s", err)
	}
	if external.Issuer() != tenant.ExternalIDP.Issuer {
		return "", "", oidc.ErrAccessDenied("federation id token issuer %q is not trusted", external.Issuer())
	}
	if err := external.Verify(tenant.ExternalIDP.PublicKey); err != nil {
		return "", "", oidc.ErrAccessDenied("federation id token signature verification failed")
	}
	if external.Expired(s.nowTime(), pol.clockTolerance) {
		return "", "", oidc.ErrAccessDenied("federation id token has expired")
	}
	if external.TenantID() != tenantName {
		return "", "", oidc.ErrAccessDenied("federation id token belongs to tenant %q", external.TenantID())
	}

	user, err := s.repos.Identity.GetPersonUser(tenantName, external.Subject())
	if err != nil {
		return "", "", oidc.ErrAccessDenied("federated user %q is not provisioned", external.Subject())
	}
	if user.Disabled {
		return "", "", oidc.ErrAccessDenied("user %q is disabled", user.Subject)
	}

	sessionID := s.sessions.NewSessionID()
	s.sessions.Add(sessionID, tenantName, user.Subject, store.LoginMethodFederated, "")
	return sessionID, user.Subject, nil
}
