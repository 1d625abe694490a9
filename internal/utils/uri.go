package utils

import "net/url"

// NormalizeSchemePort canonicalizes a URI for audience/endpoint comparison.
// The scheme is forced to https and a missing or default port becomes 443, so
// an assertion audience of "https://host:443/token" still matches a request
// observed as "http://host/token" after a reverse proxy rewrote the scheme.
// Non-default ports are preserved.
func NormalizeSchemePort(u *url.URL) string {
	c := *u
	c.Scheme = "https"
	host := c.Hostname()
	port := c.Port()
	if port == "" || port == "80" {
		port = "443"
	}
	c.Host = host + ":" + port
	c.RawQuery = ""
	c.Fragment = ""
	return c.String()
}

// URIEqual compares two URIs after scheme/port normalization.
func URIEqual(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return NormalizeSchemePort(a) == NormalizeSchemePort(b)
}
