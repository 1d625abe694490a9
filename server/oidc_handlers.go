package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/idm"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/protocol"
	"github.com/verisso/go-oidc-idp/store"
)

// tenantName resolves the tenant a request addresses; requests without a
// tenant parameter go to the default tenant.
func (s *Server) tenantName(req *httpmsg.Request) string {
	if req.HasParam("tenant") {
		return req.Param("tenant")
	}
	return s.defaultTenant
}

func (s *Server) sessionFromCookie(r *http.Request) oidc.SessionID {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return oidc.SessionID(cookie.Value)
}

func sessionCookie(sessionID oidc.SessionID, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    string(sessionID),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func writeResponse(w http.ResponseWriter, resp *httpmsg.Response, err error) {
	if err != nil {
		log.Err(err).Msg("failed to build response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err := resp.Write(w); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}

// writeErrorJSON answers with a bare JSON error when no redirect context
// was recovered.
func writeErrorJSON(w http.ResponseWriter, eo *oidc.ErrorObject) {
	resp, err := httpmsg.NewJSONResponse(eo.StatusCode, protocol.ErrorObjectToJSON(eo))
	writeResponse(w, resp, err)
}

// Authorize serves the authorization endpoint. A request without a valid
// session cookie may authenticate inline with username/password
// parameters; otherwise it is answered with an access_denied error.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope, err := httpmsg.FromHTTP(r)
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("%s", err))
			return
		}

		authnReq, reqErr := protocol.ParseAuthenticationRequest(envelope)
		if reqErr != nil {
			if reqErr.CanRedirect() {
				resp, err := (&protocol.AuthenticationErrorResponse{
					ResponseMode: reqErr.ResponseMode,
					RedirectURI:  reqErr.RedirectURI,
					State:        reqErr.State,
					ErrorObject:  reqErr.ErrorObject,
				}).Response()
				writeResponse(w, resp, err)
				return
			}
			writeErrorJSON(w, reqErr.ErrorObject)
			return
		}

		redirectError := func(eo *oidc.ErrorObject) {
			resp, err := (&protocol.AuthenticationErrorResponse{
				ResponseMode: authnReq.ResponseMode,
				RedirectURI:  authnReq.RedirectURI,
				State:        authnReq.State,
				ErrorObject:  eo,
			}).Response()
			writeResponse(w, resp, err)
		}

		tenant := s.tenantName(envelope)
		sessionID := s.sessionFromCookie(r)
		freshLogin := false
		if sessionID == "" && envelope.HasParam(protocol.ParamUsername) {
			username := envelope.Param(protocol.ParamUsername)
			password := envelope.Param(protocol.ParamPassword)
			var eo *oidc.ErrorObject
			sessionID, _, eo = s.auth.Login(tenant, store.LoginMethodPassword, func(backend idm.Backend) (*idm.PersonUser, error) {
				return backend.AuthenticatePassword(tenant, username, password)
			})
			if eo != nil {
				redirectError(eo)
				return
			}
			freshLogin = true
		}

		success, eo := s.auth.Authorize(tenant, authnReq, sessionID, envelope.Endpoint())
		if eo != nil {
			redirectError(eo)
			return
		}

		resp, err := success.Response()
		if err == nil && freshLogin {
			resp.AddCookie(sessionCookie(sessionID, int(s.config.GetSessionTTL().Seconds())))
		}
		writeResponse(w, resp, err)
	}
}

// Token serves the token endpoint.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope, err := httpmsg.FromHTTP(r)
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("%s", err))
			return
		}

		tokenReq, eo := protocol.ParseTokenRequest(envelope)
		if eo != nil {
			resp, err := (&protocol.TokenErrorResponse{ErrorObject: eo}).Response()
			writeResponse(w, resp, err)
			return
		}

		success, eo := s.auth.Token(s.tenantName(envelope), tokenReq, envelope.Endpoint(), envelope.CertChain)
		if eo != nil {
			log.Debug().Str("grant_type", string(tokenReq.Grant.Type())).Str("error", string(eo.Code)).Msg("token request rejected")
			resp, err := (&protocol.TokenErrorResponse{ErrorObject: eo}).Response()
			writeResponse(w, resp, err)
			return
		}
		resp, err := success.Response()
		writeResponse(w, resp, err)
	}
}

// Logout serves the end-session endpoint.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope, err := httpmsg.FromHTTP(r)
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("%s", err))
			return
		}

		logoutReq, reqErr := protocol.ParseLogoutRequest(envelope)
		if reqErr != nil {
			if reqErr.CanRedirect() {
				resp, err := (&protocol.LogoutErrorResponse{
					RedirectURI: reqErr.RedirectURI,
					State:       reqErr.State,
					ErrorObject: reqErr.ErrorObject,
				}).Response()
				writeResponse(w, resp, err)
				return
			}
			writeErrorJSON(w, reqErr.ErrorObject)
			return
		}

		success, eo := s.auth.Logout(s.tenantName(envelope), logoutReq, envelope.Endpoint())
		if eo != nil {
			resp, err := (&protocol.LogoutErrorResponse{
				RedirectURI: logoutReq.PostLogoutRedirectURI,
				State:       logoutReq.State,
				ErrorObject: eo,
			}).Response()
			writeResponse(w, resp, err)
			return
		}

		resp, err := success.Response()
		if err == nil {
			resp.AddCookie(sessionCookie("", -1))
		}
		writeResponse(w, resp, err)
	}
}

// WellKnownOpenIDConfig serves the OIDC discovery document.
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope, err := httpmsg.FromHTTP(r)
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("%s", err))
			return
		}

		tenant, err := s.tenants.Get(s.tenantName(envelope))
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("unknown tenant"))
			return
		}
		metadata, err := protocol.NewProviderMetadata(tenant.Issuer)
		if err != nil {
			writeErrorJSON(w, oidc.ErrServerError("failed to build provider metadata"))
			return
		}
		resp, err := httpmsg.NewJSONResponse(http.StatusOK, metadata)
		writeResponse(w, resp, err)
	}
}

// JWKS serves the tenant's public signing key set.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope, err := httpmsg.FromHTTP(r)
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("%s", err))
			return
		}

		tenant, err := s.tenants.Get(s.tenantName(envelope))
		if err != nil {
			writeErrorJSON(w, oidc.ErrInvalidRequest("unknown tenant"))
			return
		}
		resp, err := httpmsg.NewJSONResponse(http.StatusOK, protocol.JWKSDocument(tenant.SigningKeys))
		writeResponse(w, resp, err)
	}
}
