package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
)

func TestSessionLifecycle(t *testing.T) {
	clock := newFakeClock()
	m := NewSessionManager(8*time.Hour, clock.Now)

	id := m.NewSessionID()
	m.Add(id, "vsphere.local", "user@example.com", LoginMethodPassword, "client-1")

	t.Run("get is non-destructive", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			session, err := m.Get(id)
			require.NoError(t, err)
			require.Equal(t, "vsphere.local", session.Tenant)
			require.Equal(t, oidc.Subject("user@example.com"), session.Subject)
			require.Equal(t, LoginMethodPassword, session.LoginMethod)
			require.Equal(t, []oidc.ClientID{"client-1"}, session.ClientIDs)
		}
	})

	t.Run("associate adds a client once", func(t *testing.T) {
		require.NoError(t, m.Associate(id, "client-2"))
		require.NoError(t, m.Associate(id, "client-2"))

		session, err := m.Get(id)
		require.NoError(t, err)
		require.Equal(t, []oidc.ClientID{"client-1", "client-2"}, session.ClientIDs)
	})

	t.Run("remove ends the session", func(t *testing.T) {
		require.NoError(t, m.Remove(id))
		_, err := m.Get(id)
		require.ErrorIs(t, err, errs.ErrSessionNotFound)
		require.ErrorIs(t, m.Remove(id), errs.ErrSessionNotFound)
		require.ErrorIs(t, m.Associate(id, "client-3"), errs.ErrSessionNotFound)
	})
}

func TestSessionWithoutInitialClient(t *testing.T) {
	m := NewSessionManager(8*time.Hour, nil)

	id := m.NewSessionID()
	m.Add(id, "vsphere.local", "user@example.com", LoginMethodGSS, "")

	session, err := m.Get(id)
	require.NoError(t, err)
	require.Empty(t, session.ClientIDs)
}

func TestSessionAssociateSlidesExpiry(t *testing.T) {
	const ttl = time.Hour
	clock := newFakeClock()
	m := NewSessionManager(ttl, clock.Now)

	id := m.NewSessionID()
	m.Add(id, "vsphere.local", "user@example.com", LoginMethodPassword, "client-1")

	// Re-associating inside each window keeps the session alive well past
	// the original 2*ttl bound.
	for i := 0; i < 4; i++ {
		clock.Advance(ttl / 2)
		require.NoError(t, m.Associate(id, "client-1"))
	}

	session, err := m.Get(id)
	require.NoError(t, err)
	require.Equal(t, []oidc.ClientID{"client-1"}, session.ClientIDs)
}

func TestSessionConcurrentAssociate(t *testing.T) {
	m := NewSessionManager(8*time.Hour, nil)
	id := m.NewSessionID()
	m.Add(id, "vsphere.local", "user@example.com", LoginMethodPassword, "")

	// Every client associating with the same session concurrently must end
	// up in the fan-out list.
	const clients = 8
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		clientID := oidc.ClientID(fmt.Sprintf("client-%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.Associate(id, clientID))
		}()
	}
	wg.Wait()

	session, err := m.Get(id)
	require.NoError(t, err)
	require.Len(t, session.ClientIDs, clients)
}
