package token

import (
	"crypto/rsa"
	"fmt"
	"net/url"
	"time"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/internal/utils"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token/claims"
)

// clientIssued carries the shape shared by assertions a caller signs with its
// own key: issuer equals subject, and the audience is exactly one entry
// naming the target endpoint URI.
type clientIssued struct {
	base
	targetEndpoint *url.URL
}

// TargetEndpoint is the endpoint URI the assertion was minted for.
func (a *clientIssued) TargetEndpoint() *url.URL {
	c := *a.targetEndpoint
	return &c
}

// Validate checks the assertion against the receiving endpoint and the
// caller-supplied lifetime bounds. Both URIs are normalized to scheme https
// and port 443 before comparison, so TLS-terminating reverse proxies that
// rewrite the scheme do not break audience matching. The assertion is
// accepted while now is within [iat - tolerance, iat + lifetime + tolerance],
// boundaries included.
//
// A non-empty return value describes the failure; the caller decides
// severity.
func (a *clientIssued) Validate(lifetime time.Duration, requestURI *url.URL, clockTolerance time.Duration, now time.Time) string {
	if !utils.URIEqual(a.targetEndpoint, requestURI) {
		return fmt.Sprintf("%s audience %q does not match request endpoint %q",
			a.class, a.targetEndpoint.String(), requestURI.String())
	}
	notBefore := a.issueTime.Add(-clockTolerance)
	notAfter := a.issueTime.Add(lifetime + clockTolerance)
	if now.Before(notBefore) {
		return fmt.Sprintf("%s is issued in the future (iat %s)", a.class, a.issueTime.UTC().Format(time.RFC3339))
	}
	if now.After(notAfter) {
		return fmt.Sprintf("%s has expired (iat %s, lifetime %s)", a.class, a.issueTime.UTC().Format(time.RFC3339), lifetime)
	}
	return ""
}

// AssertionParams are the fields for issuing a client-signed assertion. The
// subject is always the issuer.
type AssertionParams struct {
	ID             oidc.JWTID // defaults to a fresh UUID
	Issuer         oidc.Issuer
	TargetEndpoint *url.URL
	IssuedAt       time.Time // defaults to now
}

func issueClientIssued(class oidc.TokenClass, p AssertionParams, key *rsa.PrivateKey) (clientIssued, error) {
	if p.Issuer == "" {
		return clientIssued{}, fmt.Errorf("%s: issuer is required", class)
	}
	if p.TargetEndpoint == nil || !p.TargetEndpoint.IsAbs() {
		return clientIssued{}, fmt.Errorf("%s: target endpoint must be an absolute URI", class)
	}

	id := defaultJWTID(p.ID)
	issuedAt := defaultIssuedAt(p.IssuedAt)
	subject := oidc.Subject(p.Issuer)
	audience := []string{p.TargetEndpoint.String()}

	m := claims.Base(class, oidc.TokenTypeBearer, id, p.Issuer, subject, audience, issuedAt)
	b, err := signBase(class, oidc.TokenTypeBearer, id, p.Issuer, subject, audience, issuedAt, m, key)
	if err != nil {
		return clientIssued{}, err
	}

	endpoint := *p.TargetEndpoint
	return clientIssued{base: b, targetEndpoint: &endpoint}, nil
}

func parseClientIssued(raw string, class oidc.TokenClass) (clientIssued, error) {
	b, err := parseBase(raw, class)
	if err != nil {
		return clientIssued{}, err
	}
	if string(b.issuer) != string(b.subject) {
		return clientIssued{}, fmt.Errorf("%s: iss must equal sub: %w", class, errs.ErrInvalidToken)
	}
	if len(b.audience) != 1 {
		return clientIssued{}, fmt.Errorf("%s: aud must have exactly one entry: %w", class, errs.ErrInvalidToken)
	}
	endpoint, err := url.Parse(b.audience[0])
	if err != nil || !endpoint.IsAbs() {
		return clientIssued{}, fmt.Errorf("%s: aud entry is not a valid URI: %w", class, errs.ErrInvalidToken)
	}
	return clientIssued{base: b, targetEndpoint: endpoint}, nil
}

// ClientAssertion authenticates a registered OIDC client at the token,
// authorization and logout endpoints.
type ClientAssertion struct {
	clientIssued
}

// PersonUserAssertion authenticates a person user by proof of possession of
// a registered certificate's private key.
type PersonUserAssertion struct {
	clientIssued
}

// SolutionUserAssertion authenticates a solution user (service principal).
type SolutionUserAssertion struct {
	clientIssued
}

func IssueClientAssertion(p AssertionParams, key *rsa.PrivateKey) (*ClientAssertion, error) {
	ci, err := issueClientIssued(oidc.TokenClassClientAssertion, p, key)
	if err != nil {
		return nil, err
	}
	return &ClientAssertion{clientIssued: ci}, nil
}

func IssuePersonUserAssertion(p AssertionParams, key *rsa.PrivateKey) (*PersonUserAssertion, error) {
	ci, err := issueClientIssued(oidc.TokenClassPersonUserAssertion, p, key)
	if err != nil {
		return nil, err
	}
	return &PersonUserAssertion{clientIssued: ci}, nil
}

func IssueSolutionUserAssertion(p AssertionParams, key *rsa.PrivateKey) (*SolutionUserAssertion, error) {
	ci, err := issueClientIssued(oidc.TokenClassSolutionUserAssertion, p, key)
	if err != nil {
		return nil, err
	}
	return &SolutionUserAssertion{clientIssued: ci}, nil
}

func ParseClientAssertion(raw string) (*ClientAssertion, error) {
	ci, err := parseClientIssued(raw, oidc.TokenClassClientAssertion)
	if err != nil {
		return nil, err
	}
	return &ClientAssertion{clientIssued: ci}, nil
}

func ParsePersonUserAssertion(raw string) (*PersonUserAssertion, error) {
	ci, err := parseClientIssued(raw, oidc.TokenClassPersonUserAssertion)
	if err != nil {
		return nil, err
	}
	return &PersonUserAssertion{clientIssued: ci}, nil
}

func ParseSolutionUserAssertion(raw string) (*SolutionUserAssertion, error) {
	ci, err := parseClientIssued(raw, oidc.TokenClassSolutionUserAssertion)
	if err != nil {
		return nil, err
	}
	return &SolutionUserAssertion{clientIssued: ci}, nil
}
