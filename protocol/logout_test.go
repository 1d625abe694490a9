package protocol_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/protocol"
	"github.com/verisso/go-oidc-idp/token"
)

func issueLogoutHint(t *testing.T, audience []string) *token.IDToken {
	t.Helper()
	idToken, err := token.IssueIDToken(token.IDTokenParams{ServerIssueParams: token.ServerIssueParams{
		Issuer:    "https://sso.example.com",
		Subject:   "user@example.com",
		Audience:  audience,
		IssuedAt:  testIssuedAt,
		Lifetime:  5 * time.Minute,
		Scope:     mustScope(t, "openid"),
		Tenant:    "vsphere.local",
		ClientID:  "client-1",
		SessionID: "sid-1",
	}}, testKey)
	require.NoError(t, err)
	return idToken
}

func newLogoutRequest(t *testing.T, params map[string]string) *httpmsg.Request {
	t.Helper()
	u, err := url.Parse("https://sso.example.com" + protocol.EndpointLogout)
	require.NoError(t, err)
	return httpmsg.NewRequest(http.MethodGet, u, params)
}

func TestParseLogoutRequest(t *testing.T) {
	hint := issueLogoutHint(t, []string{"client-1"})

	t.Run("client id comes from the hint audience", func(t *testing.T) {
		parsed, reqErr := protocol.ParseLogoutRequest(newLogoutRequest(t, map[string]string{
			protocol.ParamIDTokenHint:           hint.Serialize(),
			protocol.ParamPostLogoutRedirectURI: "https://app.example.com/loggedout",
			protocol.ParamState:                 "st-1",
		}))
		require.Nil(t, reqErr)
		require.Equal(t, oidc.ClientID("client-1"), parsed.ClientID)
		require.Equal(t, "https://app.example.com/loggedout", parsed.PostLogoutRedirectURI.String())
		require.Equal(t, oidc.State("st-1"), parsed.State)
	})

	t.Run("hint must have exactly one audience entry", func(t *testing.T) {
		wide := issueLogoutHint(t, []string{"client-1", "client-2"})
		_, reqErr := protocol.ParseLogoutRequest(newLogoutRequest(t, map[string]string{
			protocol.ParamIDTokenHint:           wide.Serialize(),
			protocol.ParamPostLogoutRedirectURI: "https://app.example.com/loggedout",
			protocol.ParamState:                 "st-1",
		}))
		require.NotNil(t, reqErr)
		require.True(t, reqErr.CanRedirect())
		require.Equal(t, oidc.ErrorCodeInvalidRequest, reqErr.ErrorObject.Code)
	})

	t.Run("assertion issuer must match the hint audience", func(t *testing.T) {
		_, reqErr := protocol.ParseLogoutRequest(newLogoutRequest(t, map[string]string{
			protocol.ParamIDTokenHint:           hint.Serialize(),
			protocol.ParamPostLogoutRedirectURI: "https://app.example.com/loggedout",
			protocol.ParamState:                 "st-1",
			protocol.ParamClientAssertion: clientAssertionFor(t, "other-client",
				"https://sso.example.com"+protocol.EndpointLogout),
		}))
		require.NotNil(t, reqErr)
		require.Equal(t, oidc.ErrorCodeInvalidClient, reqErr.ErrorObject.Code)
	})

	t.Run("state is required", func(t *testing.T) {
		_, reqErr := protocol.ParseLogoutRequest(newLogoutRequest(t, map[string]string{
			protocol.ParamIDTokenHint:           hint.Serialize(),
			protocol.ParamPostLogoutRedirectURI: "https://app.example.com/loggedout",
		}))
		require.NotNil(t, reqErr)
		require.True(t, reqErr.CanRedirect())
		require.Equal(t, oidc.ErrorCodeInvalidRequest, reqErr.ErrorObject.Code)
		require.Contains(t, reqErr.ErrorObject.Description, "state")
	})

	t.Run("missing redirect uri cannot redirect", func(t *testing.T) {
		_, reqErr := protocol.ParseLogoutRequest(newLogoutRequest(t, map[string]string{
			protocol.ParamIDTokenHint: hint.Serialize(),
		}))
		require.NotNil(t, reqErr)
		require.False(t, reqErr.CanRedirect())
	})
}

func TestLogoutSuccessResponse(t *testing.T) {
	t.Run("renders the fan-out page", func(t *testing.T) {
		resp, err := (&protocol.LogoutSuccessResponse{
			RedirectTarget: redirectTarget(t, "https://app.example.com/loggedout"),
			State:          "st-1",
			SessionID:      "sid-1",
			LogoutURIs: []*url.URL{
				redirectTarget(t, "https://app.example.com/logout"),
				redirectTarget(t, "https://other.example.com/logout"),
			},
		}).Response()
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := string(resp.Body)
		require.Contains(t, body, "https://app.example.com/loggedout?state=st-1")
		require.Contains(t, body, `<iframe src="https://app.example.com/logout?sid=sid-1"`)
		require.Contains(t, body, `<iframe src="https://other.example.com/logout?sid=sid-1"`)
	})

	t.Run("session id is required for fan-out", func(t *testing.T) {
		_, err := (&protocol.LogoutSuccessResponse{
			RedirectTarget: redirectTarget(t, "https://app.example.com/loggedout"),
			LogoutURIs:     []*url.URL{redirectTarget(t, "https://app.example.com/logout")},
		}).Response()
		require.Error(t, err)
	})

	t.Run("no participating clients renders no iframes", func(t *testing.T) {
		resp, err := (&protocol.LogoutSuccessResponse{
			RedirectTarget: redirectTarget(t, "https://app.example.com/loggedout"),
		}).Response()
		require.NoError(t, err)
		require.NotContains(t, string(resp.Body), "<iframe")
	})
}

func TestLogoutErrorResponse(t *testing.T) {
	resp, err := (&protocol.LogoutErrorResponse{
		RedirectURI: redirectTarget(t, "https://app.example.com/loggedout"),
		State:       "st-1",
		ErrorObject: oidc.ErrInvalidRequest("stale id_token_hint"),
	}).Response()
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	query := redirectTarget(t, resp.Location).Query()
	require.Equal(t, "invalid_request", query.Get(protocol.ParamError))
	require.Equal(t, "st-1", query.Get(protocol.ParamState))
}
