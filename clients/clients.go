package clients

import (
	"crypto/x509"

	"github.com/verisso/go-oidc-idp/oidc"
)

// TokenEndpointAuthMethod says how a client authenticates at the token
// endpoint.
type TokenEndpointAuthMethod string

const (
	// AuthMethodPrivateKeyJWT requires a client_assertion signed with the
	// client's registered certificate key.
	AuthMethodPrivateKeyJWT TokenEndpointAuthMethod = "private_key_jwt"

	// AuthMethodNone marks a public client.
	AuthMethodNone TokenEndpointAuthMethod = "none"
)

// Client is a registered OIDC relying party.
type Client struct {
	ID                     oidc.ClientID
	RedirectURIs           []string
	PostLogoutRedirectURIs []string

	// LogoutURI, when set, receives the single-logout iframe callback.
	LogoutURI string

	// CertSubjectDN names the client's registered certificate;
	// Certificate is its public half, used to verify client assertions.
	CertSubjectDN string
	Certificate   *x509.Certificate

	TokenEndpointAuthMethod TokenEndpointAuthMethod
}

// HasRedirectURI checks the URI against the registered whitelist. Matching
// is exact to prevent open redirects.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if uri == registered {
			return true
		}
	}
	return false
}

// HasPostLogoutRedirectURI checks the post-logout URI whitelist.
func (c *Client) HasPostLogoutRedirectURI(uri string) bool {
	for _, registered := range c.PostLogoutRedirectURIs {
		if uri == registered {
			return true
		}
	}
	return false
}

// ResourceServer is a registered audience for access tokens. The group
// filter limits which group memberships the filtered scopes expose to it.
type ResourceServer struct {
	Name        string
	GroupFilter []string
}

// FilterGroups returns the intersection of the user's groups with the
// resource server's filter. An empty filter passes everything through.
func (rs *ResourceServer) FilterGroups(groups []string) []string {
	if len(rs.GroupFilter) == 0 {
		out := make([]string, len(groups))
		copy(out, groups)
		return out
	}
	allowed := make(map[string]bool, len(rs.GroupFilter))
	for _, g := range rs.GroupFilter {
		allowed[g] = true
	}
	var out []string
	for _, g := range groups {
		if allowed[g] {
			out = append(out, g)
		}
	}
	return out
}

// Repo is the narrow read interface the core needs from the directory
// service's client and resource server registrations.
type Repo interface {
	GetClient(tenant string, id oidc.ClientID) (*Client, error)
	GetResourceServer(tenant, name string) (*ResourceServer, error)
}
