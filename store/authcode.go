package store

import (
	"time"

	"github.com/google/uuid"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/protocol"
)

// CodeEntry binds an authorization code to the pending login it was issued
// for.
type CodeEntry struct {
	Tenant       string
	Subject      oidc.Subject
	SessionID    oidc.SessionID
	AuthnRequest *protocol.AuthenticationRequest
}

// AuthCodeManager hands out one-time authorization codes. Consume is
// remove-on-read: a code redeemed once is gone, and the second redemption
// fails as if the code never existed. Abandoned codes age out of the
// sliding window without explicit cleanup.
type AuthCodeManager struct {
	codes *SlidingWindow[oidc.AuthorizationCode, CodeEntry]
}

// NewAuthCodeManager creates a code manager whose codes live between ttl
// and 2*ttl.
func NewAuthCodeManager(ttl time.Duration, now Clock) *AuthCodeManager {
	return &AuthCodeManager{
		codes: NewSlidingWindow[oidc.AuthorizationCode, CodeEntry](ttl, now),
	}
}

// NewCode generates a fresh authorization code value.
func (m *AuthCodeManager) NewCode() oidc.AuthorizationCode {
	return oidc.AuthorizationCode(uuid.New().String())
}

// Add binds a code to its pending login.
func (m *AuthCodeManager) Add(code oidc.AuthorizationCode, entry CodeEntry) {
	m.codes.Add(code, entry)
}

// Consume redeems a code exactly once.
func (m *AuthCodeManager) Consume(code oidc.AuthorizationCode) (CodeEntry, error) {
	entry, ok := m.codes.Remove(code)
	if !ok {
		return CodeEntry{}, errs.ErrInvalidAuthorizationCode
	}
	return entry, nil
}
