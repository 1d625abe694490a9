package store

import (
	"time"

	"github.com/google/uuid"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
)

// LoginMethod records how the session's user authenticated.
type LoginMethod string

const (
	LoginMethodPassword    LoginMethod = "password"
	LoginMethodGSS         LoginMethod = "gss"
	LoginMethodSecurID     LoginMethod = "securid"
	LoginMethodCertificate LoginMethod = "certificate"
	LoginMethodFederated   LoginMethod = "federated"
)

// Session binds a browser SSO session to the authenticated user and the
// clients participating in it.
type Session struct {
	Tenant      string
	Subject     oidc.Subject
	LoginMethod LoginMethod
	ClientIDs   []oidc.ClientID
}

func (s Session) hasClient(clientID oidc.ClientID) bool {
	for _, id := range s.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// SessionManager tracks SSO sessions. Get is non-destructive so a session
// can be reused across clients; expiry comes from the sliding window, which
// models the maximum session lifetime rather than one-time use.
type SessionManager struct {
	sessions *SlidingWindow[oidc.SessionID, Session]
}

// NewSessionManager creates a session manager whose sessions live between
// ttl and 2*ttl.
func NewSessionManager(ttl time.Duration, now Clock) *SessionManager {
	return &SessionManager{
		sessions: NewSlidingWindow[oidc.SessionID, Session](ttl, now),
	}
}

// NewSessionID generates a fresh session identifier.
func (m *SessionManager) NewSessionID() oidc.SessionID {
	return oidc.SessionID(uuid.New().String())
}

// Add registers a session for the user and, when given, its first
// participating client.
func (m *SessionManager) Add(id oidc.SessionID, tenant string, subject oidc.Subject, method LoginMethod, clientID oidc.ClientID) {
	session := Session{
		Tenant:      tenant,
		Subject:     subject,
		LoginMethod: method,
	}
	if clientID != "" {
		session.ClientIDs = []oidc.ClientID{clientID}
	}
	m.sessions.Add(id, session)
}

// Get returns the session without consuming it.
func (m *SessionManager) Get(id oidc.SessionID) (Session, error) {
	session, ok := m.sessions.Get(id)
	if !ok {
		return Session{}, errs.ErrSessionNotFound
	}
	return session, nil
}

// Associate adds a client to an existing session (SSO reuse). Re-adding
// also refreshes the session's generation, sliding its expiry forward.
func (m *SessionManager) Associate(id oidc.SessionID, clientID oidc.ClientID) error {
	ok := m.sessions.Update(id, func(session Session) Session {
		if !session.hasClient(clientID) {
			clientIDs := make([]oidc.ClientID, 0, len(session.ClientIDs)+1)
			clientIDs = append(clientIDs, session.ClientIDs...)
			session.ClientIDs = append(clientIDs, clientID)
		}
		return session
	})
	if !ok {
		return errs.ErrSessionNotFound
	}
	return nil
}

// Remove deletes the session on logout.
func (m *SessionManager) Remove(id oidc.SessionID) error {
	if _, ok := m.sessions.Remove(id); !ok {
		return errs.ErrSessionNotFound
	}
	return nil
}
