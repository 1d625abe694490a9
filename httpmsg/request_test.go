package httpmsg

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromHTTP(t *testing.T) {
	t.Run("merges query and form parameters", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "https://sso.example.com/oauth2/token?tenant=t1",
			strings.NewReader("grant_type=password&username=jdoe"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		req, err := FromHTTP(r)
		require.NoError(t, err)
		require.Equal(t, "t1", req.Param("tenant"))
		require.Equal(t, "password", req.Param("grant_type"))
		require.True(t, req.HasParam("username"))
		require.False(t, req.HasParam("password"))
		require.Empty(t, req.Param("password"))
	})

	t.Run("rejects a duplicated parameter", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "https://sso.example.com/oauth2/token",
			strings.NewReader("scope=openid&scope=openid"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		_, err := FromHTTP(r)
		require.ErrorContains(t, err, "more than once")
	})

	t.Run("fills in scheme and host from the container", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "https://sso.example.com/oauth2/authorize?scope=openid", nil)
		req, err := FromHTTP(r)
		require.NoError(t, err)
		require.Equal(t, "https", req.URL.Scheme)
		require.Equal(t, "sso.example.com", req.URL.Host)
	})
}

func TestEndpointStripsQueryAndFragment(t *testing.T) {
	u, err := url.Parse("https://sso.example.com/oauth2/token?tenant=t1#frag")
	require.NoError(t, err)
	req := NewRequest(http.MethodPost, u, nil)
	require.Equal(t, "https://sso.example.com/oauth2/token", req.Endpoint().String())
}
