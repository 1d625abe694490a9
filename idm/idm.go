// Package idm defines the identity backend interface the token and
// authorization layers call to authenticate principals and resolve
// their attributes. Implementations wrap a directory service; the
// idmfake subpackage provides an in-memory backend for tests.
package idm

import (
	"crypto/x509"

	"github.com/verisso/go-oidc-idp/oidc"
)

// PersonUser is a human principal resolved from the directory.
type PersonUser struct {
	Subject    oidc.Subject
	GivenName  string
	FamilyName string
	Disabled   bool
}

// SolutionUser is a non-human service principal authenticated by
// possession of a registered certificate key pair.
type SolutionUser struct {
	Subject       oidc.Subject
	CertSubjectDN string
	Certificate   *x509.Certificate
	Disabled      bool
}

// Backend is the directory interface consumed by the authorization
// service. Authenticate* methods return the resolved person user or an
// error when the credentials are rejected.
type Backend interface {
	AuthenticatePassword(tenant, username, password string) (*PersonUser, error)
	AuthenticateGSS(tenant, contextID string, ticket []byte) (*PersonUser, error)
	AuthenticateSecurID(tenant, username, passcode string, sessionID []byte) (*PersonUser, error)
	AuthenticateCertificate(tenant string, chain []*x509.Certificate) (*PersonUser, error)

	GetPersonUser(tenant string, subject oidc.Subject) (*PersonUser, error)
	GetSolutionUser(tenant string, subject oidc.Subject) (*SolutionUser, error)
	GetSolutionUserByCertSubject(tenant, certSubjectDN string) (*SolutionUser, error)

	IsActive(tenant string, subject oidc.Subject) (bool, error)
	GetGroupMembership(tenant string, subject oidc.Subject) ([]string, error)
}
