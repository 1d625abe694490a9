package oidc

import (
	"fmt"
	"strings"
)

// ScopeValue is a single entry of a space-delimited scope parameter.
type ScopeValue string

const (
	// ScopeOpenID is mandatory in every scope; it selects OIDC semantics.
	ScopeOpenID ScopeValue = "openid"

	// ScopeOfflineAccess requests a refresh token.
	ScopeOfflineAccess ScopeValue = "offline_access"

	// ScopeIDGroups / ScopeATGroups request the full group membership in the
	// ID token / access token; the filtered variants apply the resource
	// server's group filter instead.
	ScopeIDGroups         ScopeValue = "id_groups"
	ScopeIDGroupsFiltered ScopeValue = "id_groups_filtered"
	ScopeATGroups         ScopeValue = "at_groups"
	ScopeATGroupsFiltered ScopeValue = "at_groups_filtered"

	// ScopeAdminServer targets the built-in admin resource server and adds
	// the admin_server_role claim to access tokens.
	ScopeAdminServer ScopeValue = "rs_admin_server"
)

// ResourceServerPrefix marks free-form resource server scope values (rs_<name>).
const ResourceServerPrefix = "rs_"

var reservedScopeValues = map[ScopeValue]bool{
	ScopeOpenID:           true,
	ScopeOfflineAccess:    true,
	ScopeIDGroups:         true,
	ScopeIDGroupsFiltered: true,
	ScopeATGroups:         true,
	ScopeATGroupsFiltered: true,
}

// Valid reports whether the value is a recognized reserved value or a
// resource server name.
func (v ScopeValue) Valid() bool {
	if reservedScopeValues[v] {
		return true
	}
	return strings.HasPrefix(string(v), ResourceServerPrefix) && len(v) > len(ResourceServerPrefix)
}

// IsResourceServer reports whether the value names a resource server
// (rs_admin_server included).
func (v ScopeValue) IsResourceServer() bool {
	return strings.HasPrefix(string(v), ResourceServerPrefix) && len(v) > len(ResourceServerPrefix)
}

func (v ScopeValue) String() string { return string(v) }

// Scope is an ordered, deduplicated set of scope values. A valid scope always
// contains openid.
type Scope struct {
	values []ScopeValue
}

// NewScope builds a scope from already-typed values.
func NewScope(values ...ScopeValue) (Scope, error) {
	scope := Scope{}
	seen := map[ScopeValue]bool{}
	for _, v := range values {
		if !v.Valid() {
			return Scope{}, fmt.Errorf("invalid scope value %q", string(v))
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		scope.values = append(scope.values, v)
	}
	if !seen[ScopeOpenID] {
		return Scope{}, fmt.Errorf("scope must contain %q", string(ScopeOpenID))
	}
	return scope, nil
}

// ParseScope parses a space-delimited scope parameter.
func ParseScope(s string) (Scope, error) {
	if strings.TrimSpace(s) == "" {
		return Scope{}, fmt.Errorf("scope must not be empty")
	}
	var values []ScopeValue
	for _, field := range strings.Fields(s) {
		values = append(values, ScopeValue(field))
	}
	return NewScope(values...)
}

// IsZero reports whether the scope is unset (as opposed to parsed and valid).
func (s Scope) IsZero() bool { return len(s.values) == 0 }

// Contains reports whether the scope includes the given value.
func (s Scope) Contains(v ScopeValue) bool {
	for _, sv := range s.values {
		if sv == v {
			return true
		}
	}
	return false
}

// Values returns a copy of the scope values in request order.
func (s Scope) Values() []ScopeValue {
	out := make([]ScopeValue, len(s.values))
	copy(out, s.values)
	return out
}

// ResourceServers returns the resource server scope values in request order.
func (s Scope) ResourceServers() []ScopeValue {
	var out []ScopeValue
	for _, v := range s.values {
		if v.IsResourceServer() {
			out = append(out, v)
		}
	}
	return out
}

// String renders the scope back to its space-delimited wire form.
func (s Scope) String() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = string(v)
	}
	return strings.Join(parts, " ")
}
