// Package httpmsg is the thin transport envelope the protocol parsers and
// serializers work against, keeping them independent of the HTTP container.
package httpmsg

import (
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
)

// Request is an inbound message: method, URI, a flattened single-valued
// parameter map, headers, cookies and the TLS client certificate chain.
type Request struct {
	Method    string
	URL       *url.URL
	Params    map[string]string
	Header    http.Header
	Cookies   []*http.Cookie
	CertChain []*x509.Certificate
}

// FromHTTP wraps a container request. Query and form parameters are merged
// into a single-valued map; a parameter supplied more than once is rejected
// rather than silently collapsed.
func FromHTTP(r *http.Request) (*Request, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("malformed request parameters: %w", err)
	}

	params := make(map[string]string, len(r.Form))
	for name, values := range r.Form {
		if len(values) > 1 {
			return nil, fmt.Errorf("parameter %q appears more than once", name)
		}
		params[name] = values[0]
	}

	var certChain []*x509.Certificate
	if r.TLS != nil {
		certChain = r.TLS.PeerCertificates
	}

	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		if r.TLS != nil {
			u.Scheme = "https"
		} else {
			u.Scheme = "http"
		}
	}

	return &Request{
		Method:    r.Method,
		URL:       &u,
		Params:    params,
		Header:    r.Header,
		Cookies:   r.Cookies(),
		CertChain: certChain,
	}, nil
}

// NewRequest builds a request directly, for callers outside an HTTP
// container (tests, internal dispatch).
func NewRequest(method string, u *url.URL, params map[string]string) *Request {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &Request{Method: method, URL: u, Params: p, Header: http.Header{}}
}

// Param returns the named parameter, or "" when absent.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// HasParam reports whether the parameter was supplied at all.
func (r *Request) HasParam(name string) bool {
	_, ok := r.Params[name]
	return ok
}

// Endpoint is the request URI stripped of query and fragment, as used for
// assertion audience matching.
func (r *Request) Endpoint() *url.URL {
	u := *r.URL
	u.RawQuery = ""
	u.Fragment = ""
	return &u
}
