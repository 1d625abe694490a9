// Package auth orchestrates the authorization, token and logout endpoint
// semantics over the protocol core: it resolves tenants and clients,
// verifies presented assertions, dispatches authorization grants and
// issues signed tokens.
package auth

import (
	"crypto/rsa"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/verisso/go-oidc-idp/clients"
	"github.com/verisso/go-oidc-idp/idm"
	"github.com/verisso/go-oidc-idp/internal/config"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/store"
	"github.com/verisso/go-oidc-idp/tenants"
	"github.com/verisso/go-oidc-idp/token"
)

// Repos holds the external collaborator interfaces the service reads.
type Repos struct {
	Tenants  tenants.Repo
	Clients  clients.Repo
	Identity idm.Backend
}

// Service implements the endpoint semantics. It is safe for concurrent
// use; the only mutable state lives in the two stores, which synchronize
// internally.
type Service struct {
	repos    Repos
	config   config.OIDCConfig
	codes    *store.AuthCodeManager
	sessions *store.SessionManager
	nowTime  func() time.Time
}

// ServiceOption modifies the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes the authorization service with its required
// dependencies.
func NewService(repos Repos, cfg config.OIDCConfig, codes *store.AuthCodeManager, sessions *store.SessionManager, options ...ServiceOption) (*Service, error) {
	if repos.Tenants == nil {
		return nil, errors.New("[NewService] Tenants repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewService] Clients repo is required")
	}
	if repos.Identity == nil {
		return nil, errors.New("[NewService] Identity backend is required")
	}
	if codes == nil || sessions == nil {
		return nil, errors.New("[NewService] code and session stores are required")
	}

	s := &Service{
		repos:    repos,
		config:   cfg,
		codes:    codes,
		sessions: sessions,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Sessions exposes the session store for the login and logout handlers.
func (s *Service) Sessions() *store.SessionManager {
	return s.sessions
}

// policy is the effective token policy for one tenant: the tenant's
// overrides where set, the server defaults otherwise.
type policy struct {
	clockTolerance    time.Duration
	bearerLifetime    time.Duration
	hokLifetime       time.Duration
	idLifetime        time.Duration
	refreshLifetime   time.Duration
	assertionLifetime time.Duration
}

func (s *Service) policyFor(tenant *tenants.Tenant) policy {
	p := policy{
		clockTolerance:    tenant.ClockTolerance,
		bearerLifetime:    tenant.BearerTokenLifetime,
		hokLifetime:       tenant.HOKTokenLifetime,
		idLifetime:        tenant.IDTokenLifetime,
		refreshLifetime:   tenant.RefreshTokenLifetime,
		assertionLifetime: s.config.GetDefaultAssertionLifetime(),
	}
	if p.clockTolerance == 0 {
		p.clockTolerance = s.config.GetDefaultClockTolerance()
	}
	if p.bearerLifetime == 0 {
		p.bearerLifetime = s.config.GetDefaultBearerTokenLifetime()
	}
	if p.hokLifetime == 0 {
		p.hokLifetime = s.config.GetDefaultHOKTokenLifetime()
	}
	if p.idLifetime == 0 {
		p.idLifetime = s.config.GetDefaultIDTokenLifetime()
	}
	if p.refreshLifetime == 0 {
		p.refreshLifetime = s.config.GetDefaultRefreshTokenLifetime()
	}
	return p
}

func (s *Service) tenant(name string) (*tenants.Tenant, *oidc.ErrorObject) {
	tenant, err := s.repos.Tenants.Get(name)
	if err != nil {
		return nil, oidc.ErrInvalidRequest("unknown tenant %q", name)
	}
	return tenant, nil
}

func (s *Service) client(tenant string, id oidc.ClientID) (*clients.Client, *oidc.ErrorObject) {
	client, err := s.repos.Clients.GetClient(tenant, id)
	if err != nil {
		return nil, oidc.ErrInvalidClient("unregistered client %q", id)
	}
	return client, nil
}

// verifyClientAssertion checks the assertion signature against the
// client's registered certificate key and validates its audience and
// lifetime against the endpoint that received it.
func (s *Service) verifyClientAssertion(client *clients.Client, assertion *token.ClientAssertion, pol policy, requestURI *url.URL) *oidc.ErrorObject {
	if client.Certificate == nil {
		return oidc.ErrInvalidClient("client %q has no registered certificate", client.ID)
	}
	publicKey, ok := client.Certificate.PublicKey.(*rsa.PublicKey)
	if !ok {
		return oidc.ErrInvalidClient("client %q certificate does not hold an RSA key", client.ID)
	}
	if err := assertion.Verify(publicKey); err != nil {
		return oidc.ErrInvalidClient("client_assertion signature verification failed")
	}
	if reason := assertion.Validate(pol.assertionLifetime, requestURI, pol.clockTolerance, s.nowTime()); reason != "" {
		return oidc.ErrInvalidClient("invalid client_assertion: %s", reason)
	}
	return nil
}

// verifySolutionUserAssertion resolves the solution user named by the
// assertion subject and checks signature, audience and lifetime.
func (s *Service) verifySolutionUserAssertion(tenant string, assertion *token.SolutionUserAssertion, pol policy, requestURI *url.URL) (*idm.SolutionUser, *oidc.ErrorObject) {
	user, err := s.repos.Identity.GetSolutionUser(tenant, assertion.Subject())
	if err != nil {
		return nil, oidc.ErrInvalidGrant("unknown solution user %q", assertion.Subject())
	}
	if user.Disabled {
		return nil, oidc.ErrAccessDenied("solution user %q is disabled", user.Subject)
	}
	if user.Certificate == nil {
		return nil, oidc.ErrInvalidGrant("solution user %q has no registered certificate", user.Subject)
	}
	publicKey, ok := user.Certificate.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, oidc.ErrInvalidGrant("solution user %q certificate does not hold an RSA key", user.Subject)
	}
	if err := assertion.Verify(publicKey); err != nil {
		return nil, oidc.ErrInvalidGrant("solution_user_assertion signature verification failed")
	}
	if reason := assertion.Validate(pol.assertionLifetime, requestURI, pol.clockTolerance, s.nowTime()); reason != "" {
		return nil, oidc.ErrInvalidGrant("invalid solution_user_assertion: %s", reason)
	}
	return user, nil
}
