/*

This file contains the access-gate collaborator. Role checks are explicit
arguments to mutating treasury calls rather than ambient middleware, so every
gated operation names the capability it requires at the call site.

*/

package auth

import (
	"errors"
	"fmt"
	"sync"
)

// Role identifies a capability required by a mutating operation.
type Role string

const (
	// RoleGovernance may tune protocol parameters, move capital and unfreeze.
	RoleGovernance Role = "governance"
	// RoleReporter may submit managed-balance reports.
	RoleReporter Role = "reporter"
)

var ErrUnauthorized = errors.New("caller does not hold the required role")

// Gate answers whether a caller holds a role. A failed check aborts the
// whole triggering operation.
type Gate interface {
	RequireRole(caller string, role Role) error
}

// StaticGate is an in-memory role registry configured at startup.
type StaticGate struct {
	mu     sync.RWMutex
	grants map[string]map[Role]bool
}

// NewStaticGate creates an empty gate; nobody holds any role.
func NewStaticGate() *StaticGate {
	return &StaticGate{grants: make(map[string]map[Role]bool)}
}

// Grant gives a caller a role.
func (g *StaticGate) Grant(caller string, role Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grants[caller] == nil {
		g.grants[caller] = make(map[Role]bool)
	}
	g.grants[caller][role] = true
}

// RequireRole returns ErrUnauthorized unless the caller holds the role.
func (g *StaticGate) RequireRole(caller string, role Role) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.grants[caller][role] {
		return nil
	}
	return fmt.Errorf("%w: caller %q, role %q", ErrUnauthorized, caller, role)
}
