package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/verisso/go-oidc-idp/federation"
	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/store"
)

const (
	endpointFederationLogin    = "/federation/login"
	endpointFederationCallback = "/federation/callback"

	// A brokered login that takes longer than this has been abandoned.
	federationStateTTL = 10 * time.Minute
)

// federationLoginState correlates the callback with the login that
// started it.
type federationLoginState struct {
	auth     federation.AuthState
	tenant   string
	returnTo string
}

type federationBroker struct {
	rp     *federation.RelyingParty
	states *store.SlidingWindow[string, federationLoginState]
}

// WithFederation enables brokered logins against the external identity
// provider the relying party was configured for.
func WithFederation(rp *federation.RelyingParty) ServerOption {
	return func(s *Server) {
		s.federation = &federationBroker{
			rp:     rp,
			states: store.NewSlidingWindow[string, federationLoginState](federationStateTTL, nil),
		}
	}
}

// FederationLogin starts a brokered login by redirecting the browser to
// the external provider's authorization endpoint. An optional return_to
// parameter names the local path to resume after the callback.
func (s *Server) FederationLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope, err := httpmsg.FromHTTP(r)
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("%s", err))
			return
		}

		returnTo := envelope.Param("return_to")
		if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
			returnTo = "/"
		}

		state := federation.NewAuthState()
		s.federation.states.Add(state.State, federationLoginState{
			auth:     state,
			tenant:   s.tenantName(envelope),
			returnTo: returnTo,
		})

		target, err := url.Parse(s.federation.rp.AuthCodeURL(state))
		if err != nil {
			writeErrorJSON(w, oidc.ErrServerError("failed to build federation authorization url"))
			return
		}
		writeResponse(w, httpmsg.NewRedirectResponse(target), nil)
	}
}

// FederationCallback completes a brokered login: it redeems the code at
// the external provider, runs the returned ID token through the tenant's
// trust checks and establishes the local session.
func (s *Server) FederationCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope, err := httpmsg.FromHTTP(r)
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("%s", err))
			return
		}

		loginState, ok := s.federation.states.Remove(envelope.Param("state"))
		if !ok {
			writeErrorJSON(w, oidc.ErrInvalidRequest("unknown or expired federation login state"))
			return
		}
		code := envelope.Param("code")
		if code == "" {
			writeErrorJSON(w, oidc.ErrInvalidRequest("missing code parameter"))
			return
		}

		rawIDToken, _, err := s.federation.rp.Exchange(r.Context(), code, loginState.auth)
		if err != nil {
			log.Err(err).Msg("federation code exchange failed")
			writeErrorJSON(w, oidc.ErrAccessDenied("federation login failed"))
			return
		}

		sessionID, _, eo := s.auth.FederatedLogin(loginState.tenant, rawIDToken)
		if eo != nil {
			writeErrorJSON(w, eo)
			return
		}

		target, err := url.Parse(loginState.returnTo)
		if err != nil {
			target = &url.URL{Path: "/"}
		}
		resp := httpmsg.NewRedirectResponse(target)
		resp.AddCookie(sessionCookie(sessionID, int(s.config.GetSessionTTL().Seconds())))
		writeResponse(w, resp, nil)
	}
}
