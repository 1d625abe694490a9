// Package server wires the protocol endpoints onto an HTTP mux.
package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/verisso/go-oidc-idp/auth"
	"github.com/verisso/go-oidc-idp/internal/config"
	"github.com/verisso/go-oidc-idp/protocol"
	"github.com/verisso/go-oidc-idp/tenants"
)

// sessionCookieName carries the browser SSO session id.
const sessionCookieName = "oidc_session_id"

type Server struct {
	mux    *http.ServeMux
	routes []string
	config config.Config
	auth   *auth.Service

	tenants       tenants.Repo
	defaultTenant string

	federation *federationBroker
}

// ServerOption modifies the Server instance.
type ServerOption func(*Server)

// New creates the server and registers the endpoint routes.
// defaultTenant is used when a request carries no tenant parameter.
func New(cfg config.Config, authService *auth.Service, tenantRepo tenants.Repo, defaultTenant string, options ...ServerOption) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] authorization service is required")
	}
	if tenantRepo == nil {
		return nil, errors.New("[Server New] tenant repo is required")
	}
	if defaultTenant == "" {
		return nil, errors.New("[Server New] default tenant is required")
	}

	s := &Server{
		mux:           http.NewServeMux(),
		config:        cfg,
		auth:          authService,
		tenants:       tenantRepo,
		defaultTenant: defaultTenant,
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+protocol.EndpointAuthorize, ChainMiddleware(s.Authorize(), s.StandardMiddleware()...))
	s.RegisterRouteFunc("POST "+protocol.EndpointToken, ChainMiddleware(s.Token(), s.StandardMiddleware()...))
	s.RegisterRouteFunc("GET "+protocol.EndpointLogout, ChainMiddleware(s.Logout(), s.StandardMiddleware()...))
	s.RegisterRouteFunc("GET "+protocol.EndpointMetadata, ChainMiddleware(s.WellKnownOpenIDConfig(), s.StandardMiddleware()...))
	s.RegisterRouteFunc("GET "+protocol.EndpointJWKS, ChainMiddleware(s.JWKS(), s.StandardMiddleware()...))
	if s.federation != nil {
		s.RegisterRouteFunc("GET "+endpointFederationLogin, ChainMiddleware(s.FederationLogin(), s.StandardMiddleware()...))
		s.RegisterRouteFunc("GET "+endpointFederationCallback, ChainMiddleware(s.FederationCallback(), s.StandardMiddleware()...))
	}
}
