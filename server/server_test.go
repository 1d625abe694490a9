package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verisso/go-oidc-idp/auth"
	"github.com/verisso/go-oidc-idp/clients"
	"github.com/verisso/go-oidc-idp/clients/fakerepo"
	"github.com/verisso/go-oidc-idp/idm"
	"github.com/verisso/go-oidc-idp/idm/idmfake"
	"github.com/verisso/go-oidc-idp/internal/config"
	"github.com/verisso/go-oidc-idp/server"
	"github.com/verisso/go-oidc-idp/store"
	"github.com/verisso/go-oidc-idp/tenants"
	"github.com/verisso/go-oidc-idp/tenants/repofakes"
	"github.com/verisso/go-oidc-idp/token/keys"
)

const (
	testTenant   = "system"
	testIssuer   = "https://sso.example.com"
	testClientID = "client-1"
	testRedirect = "https://app.example.com/callback"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := config.New()

	kp, err := keys.GenerateRSAKeyPair("tenant-key", 2048)
	require.NoError(t, err)
	tenantRepo := repofakes.NewFakeTenantRepo()
	tenantRepo.Upsert(&tenants.Tenant{Name: testTenant, Issuer: testIssuer, SigningKeys: kp})

	clientRepo := fakerepo.NewFakeClientRepo()
	clientRepo.UpsertClient(testTenant, &clients.Client{
		ID:           testClientID,
		RedirectURIs: []string{testRedirect},
	})

	identity := idmfake.NewFakeBackend()
	hash, err := idmfake.HashPassword("hunter2")
	require.NoError(t, err)
	identity.AddPersonUser(testTenant, &idm.PersonUser{Subject: "user@example.com"}, hash, nil)

	service, err := auth.NewService(auth.Repos{
		Tenants:  tenantRepo,
		Clients:  clientRepo,
		Identity: identity,
	}, cfg,
		store.NewAuthCodeManager(cfg.GetAuthorizationCodeTTL(), nil),
		store.NewSessionManager(cfg.GetSessionTTL(), nil))
	require.NoError(t, err)

	srv, err := server.New(cfg, service, tenantRepo, testTenant)
	require.NoError(t, err)
	return srv
}

func postForm(t *testing.T, srv *server.Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, testIssuer+path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestDiscoveryDocument(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, testIssuer+"/.well-known/openid-configuration", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Equal(t, testIssuer, doc["issuer"])
	require.Equal(t, testIssuer+"/oauth2/token", doc["token_endpoint"])
}

func TestJWKSEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, testIssuer+"/oauth2/jwks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"RS256"`)
}

func TestTokenEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("password grant issues tokens", func(t *testing.T) {
		w := postForm(t, srv, "/oauth2/token", url.Values{
			"grant_type": {"password"},
			"username":   {"user@example.com"},
			"password":   {"hunter2"},
			"scope":      {"openid"},
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.NotEmpty(t, body["id_token"])
		require.NotEmpty(t, body["access_token"])
		require.Equal(t, "Bearer", body["token_type"])
	})

	t.Run("wrong password is an invalid_grant", func(t *testing.T) {
		w := postForm(t, srv, "/oauth2/token", url.Values{
			"grant_type": {"password"},
			"username":   {"user@example.com"},
			"password":   {"wrong"},
			"scope":      {"openid"},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), `"error":"invalid_grant"`)
	})

	t.Run("duplicated parameter is rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, testIssuer+"/oauth2/token",
			strings.NewReader("grant_type=password&grant_type=password"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), `"error":"invalid_request"`)
	})
}

func TestAuthorizeEndpointInlineLogin(t *testing.T) {
	srv := newTestServer(t)

	query := url.Values{
		"response_type": {"code"},
		"client_id":     {testClientID},
		"redirect_uri":  {testRedirect},
		"scope":         {"openid"},
		"state":         {"st-1"},
		"username":      {"user@example.com"},
		"password":      {"hunter2"},
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, testIssuer+"/oauth2/authorize?"+query.Encode(), nil))
	require.Equal(t, http.StatusFound, w.Code)

	target, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.NotEmpty(t, target.Query().Get("code"))
	require.Equal(t, "st-1", target.Query().Get("state"))

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "oidc_session_id" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	require.True(t, sessionCookie.HttpOnly)

	t.Run("the session cookie reauthorizes without credentials", func(t *testing.T) {
		query := url.Values{
			"response_type": {"code"},
			"client_id":     {testClientID},
			"redirect_uri":  {testRedirect},
			"scope":         {"openid"},
		}
		r := httptest.NewRequest(http.MethodGet, testIssuer+"/oauth2/authorize?"+query.Encode(), nil)
		r.AddCookie(sessionCookie)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)
		require.Equal(t, http.StatusFound, w.Code)

		target, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		require.NotEmpty(t, target.Query().Get("code"))
	})

	t.Run("no session and no credentials is denied on the redirect", func(t *testing.T) {
		query := url.Values{
			"response_type": {"code"},
			"client_id":     {testClientID},
			"redirect_uri":  {testRedirect},
			"scope":         {"openid"},
		}
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, testIssuer+"/oauth2/authorize?"+query.Encode(), nil))
		require.Equal(t, http.StatusFound, w.Code)

		target, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "access_denied", target.Query().Get("error"))
	})
}
