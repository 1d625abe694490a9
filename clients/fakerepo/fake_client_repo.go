package fakerepo

import (
	"sync"

	"github.com/verisso/go-oidc-idp/clients"
	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/oidc"
)

// FakeClientRepo is a thread-safe in-memory client/resource-server registry
// for tests and single-node deployments.
type FakeClientRepo struct {
	mu              sync.RWMutex
	clients         map[string]map[oidc.ClientID]*clients.Client
	resourceServers map[string]map[string]*clients.ResourceServer
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients:         make(map[string]map[oidc.ClientID]*clients.Client),
		resourceServers: make(map[string]map[string]*clients.ResourceServer),
	}
}

func (r *FakeClientRepo) UpsertClient(tenant string, client *clients.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[tenant] == nil {
		r.clients[tenant] = make(map[oidc.ClientID]*clients.Client)
	}
	r.clients[tenant][client.ID] = client
}

func (r *FakeClientRepo) UpsertResourceServer(tenant string, rs *clients.ResourceServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resourceServers[tenant] == nil {
		r.resourceServers[tenant] = make(map[string]*clients.ResourceServer)
	}
	r.resourceServers[tenant][rs.Name] = rs
}

func (r *FakeClientRepo) GetClient(tenant string, id oidc.ClientID) (*clients.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[tenant][id]
	if !ok {
		return nil, errs.ErrInvalidClient
	}
	return client, nil
}

func (r *FakeClientRepo) GetResourceServer(tenant, name string) (*clients.ResourceServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.resourceServers[tenant][name]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return rs, nil
}
