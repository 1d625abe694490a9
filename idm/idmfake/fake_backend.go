package idmfake

import (
	"bytes"
	"crypto/x509"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/verisso/go-oidc-idp/idm"
	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
)

var _ idm.Backend = (*FakeBackend)(nil)

type personRecord struct {
	user         *idm.PersonUser
	passwordHash string
	gssTicket    []byte
	securIDCode  string
	certificate  *x509.Certificate
	groups       []string
}

// FakeBackend is an in-memory identity backend. Passwords are stored
// bcrypt-hashed; GSS tickets and SecurID passcodes are compared
// byte-for-byte against the registered values.
type FakeBackend struct {
	lock          sync.RWMutex
	persons       map[string]map[oidc.Subject]*personRecord
	solutionUsers map[string]map[oidc.Subject]*idm.SolutionUser
	usernames     map[string]map[string]oidc.Subject
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		persons:       make(map[string]map[oidc.Subject]*personRecord),
		solutionUsers: make(map[string]map[oidc.Subject]*idm.SolutionUser),
		usernames:     make(map[string]map[string]oidc.Subject),
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// AddPersonUser registers a person under a tenant. The username used
// for password login is the subject's string form.
func (b *FakeBackend) AddPersonUser(tenant string, user *idm.PersonUser, passwordHash string, groups []string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.persons[tenant] == nil {
		b.persons[tenant] = make(map[oidc.Subject]*personRecord)
		b.usernames[tenant] = make(map[string]oidc.Subject)
	}
	b.persons[tenant][user.Subject] = &personRecord{
		user:         user,
		passwordHash: passwordHash,
		groups:       groups,
	}
	b.usernames[tenant][user.Subject.String()] = user.Subject
}

// SetGSSTicket registers the ticket bytes accepted for a person.
func (b *FakeBackend) SetGSSTicket(tenant string, subject oidc.Subject, ticket []byte) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if rec, ok := b.persons[tenant][subject]; ok {
		rec.gssTicket = ticket
	}
}

// SetSecurIDCode registers the passcode accepted for a person.
func (b *FakeBackend) SetSecurIDCode(tenant string, subject oidc.Subject, passcode string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if rec, ok := b.persons[tenant][subject]; ok {
		rec.securIDCode = passcode
	}
}

// SetCertificate registers the login certificate for a person.
func (b *FakeBackend) SetCertificate(tenant string, subject oidc.Subject, cert *x509.Certificate) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if rec, ok := b.persons[tenant][subject]; ok {
		rec.certificate = cert
	}
}

func (b *FakeBackend) AddSolutionUser(tenant string, user *idm.SolutionUser) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.solutionUsers[tenant] == nil {
		b.solutionUsers[tenant] = make(map[oidc.Subject]*idm.SolutionUser)
	}
	b.solutionUsers[tenant][user.Subject] = user
}

func (b *FakeBackend) AuthenticatePassword(tenant, username, password string) (*idm.PersonUser, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	subject, ok := b.usernames[tenant][username]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	rec := b.persons[tenant][subject]
	if err := bcrypt.CompareHashAndPassword([]byte(rec.passwordHash), []byte(password)); err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidGrant, "password check failed for %q", username)
	}
	return rec.user, nil
}

func (b *FakeBackend) AuthenticateGSS(tenant, contextID string, ticket []byte) (*idm.PersonUser, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	for _, rec := range b.persons[tenant] {
		if len(rec.gssTicket) > 0 && bytes.Equal(rec.gssTicket, ticket) {
			return rec.user, nil
		}
	}
	return nil, errs.Wrapf(errs.ErrInvalidGrant, "gss ticket not accepted for context %q", contextID)
}

func (b *FakeBackend) AuthenticateSecurID(tenant, username, passcode string, sessionID []byte) (*idm.PersonUser, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	subject, ok := b.usernames[tenant][username]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	rec := b.persons[tenant][subject]
	if rec.securIDCode == "" || rec.securIDCode != passcode {
		return nil, errs.Wrapf(errs.ErrInvalidGrant, "securid passcode rejected for %q", username)
	}
	return rec.user, nil
}

func (b *FakeBackend) AuthenticateCertificate(tenant string, chain []*x509.Certificate) (*idm.PersonUser, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if len(chain) == 0 {
		return nil, errs.Wrapf(errs.ErrInvalidGrant, "empty certificate chain")
	}
	leaf := chain[0]
	for _, rec := range b.persons[tenant] {
		if rec.certificate != nil && bytes.Equal(rec.certificate.Raw, leaf.Raw) {
			return rec.user, nil
		}
	}
	return nil, errs.Wrapf(errs.ErrInvalidGrant, "certificate %q not registered", leaf.Subject.String())
}

func (b *FakeBackend) GetPersonUser(tenant string, subject oidc.Subject) (*idm.PersonUser, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	rec, ok := b.persons[tenant][subject]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return rec.user, nil
}

func (b *FakeBackend) GetSolutionUser(tenant string, subject oidc.Subject) (*idm.SolutionUser, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	user, ok := b.solutionUsers[tenant][subject]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return user, nil
}

func (b *FakeBackend) GetSolutionUserByCertSubject(tenant, certSubjectDN string) (*idm.SolutionUser, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	for _, user := range b.solutionUsers[tenant] {
		if user.CertSubjectDN == certSubjectDN {
			return user, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (b *FakeBackend) IsActive(tenant string, subject oidc.Subject) (bool, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if rec, ok := b.persons[tenant][subject]; ok {
		return !rec.user.Disabled, nil
	}
	if user, ok := b.solutionUsers[tenant][subject]; ok {
		return !user.Disabled, nil
	}
	return false, errs.ErrUserNotFound
}

func (b *FakeBackend) GetGroupMembership(tenant string, subject oidc.Subject) ([]string, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	rec, ok := b.persons[tenant][subject]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	groups := make([]string, len(rec.groups))
	copy(groups, rec.groups)
	return groups, nil
}
