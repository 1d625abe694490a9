package repofakes

import (
	"sync"

	errs "github.com/verisso/go-oidc-idp/internal/errors"
	"github.com/verisso/go-oidc-idp/tenants"
)

// FakeTenantRepo is a thread-safe in-memory tenant registry for tests and
// single-node deployments.
type FakeTenantRepo struct {
	mu      sync.RWMutex
	tenants map[string]*tenants.Tenant
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]*tenants.Tenant),
	}
}

func (r *FakeTenantRepo) Upsert(tenant *tenants.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[tenant.Name] = tenant
}

func (r *FakeTenantRepo) Get(name string) (*tenants.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tenant, ok := r.tenants[name]
	if !ok {
		return nil, errs.ErrTenantNotFound
	}
	return tenant, nil
}
