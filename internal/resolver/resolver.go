// Package resolver maps participant identifiers to hourly rates through the
// role and wage tables, registering unknown identifiers as it goes.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

// Resolver resolves identifiers to roles and rates.
// It is safe for concurrent use.
type Resolver struct {
	roles storage.RoleTable
	wages storage.WageTable

	// mu serializes resolve-or-register so two lookups of a new identifier
	// cannot both report AutoRegistered.
	mu sync.Mutex
}

// New creates a Resolver over the given tables.
func New(roles storage.RoleTable, wages storage.WageTable) *Resolver {
	return &Resolver{roles: roles, wages: wages}
}

// Resolve returns the role and hourly rate for identifier.
//
// Identifiers are matched lowercase. An identifier missing from the role
// table is registered with models.RoleUndefined and reported as
// models.AutoRegistered. A role missing from the wage table resolves to
// rate 0 with RateDefined=false. Only storage failures return an error.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (models.Resolution, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	res := models.Resolution{Identifier: id, Status: models.Known}

	r.mu.Lock()
	role, inserted, err := r.roles.GetOrInsert(ctx, id, models.RoleUndefined)
	r.mu.Unlock()
	if err != nil {
		return res, fmt.Errorf("failed to resolve role for %s: %w", id, err)
	}
	res.Role = role
	if inserted {
		res.Status = models.AutoRegistered
	}

	rate, ok, err := r.wages.Get(ctx, role)
	if err != nil {
		return res, fmt.Errorf("failed to resolve wage for role %s: %w", role, err)
	}
	res.HourlyRate = rate
	res.RateDefined = ok

	return res, nil
}

// Refresh reloads any table that caches its backing data.
func (r *Resolver) Refresh(ctx context.Context) error {
	for _, t := range []any{r.roles, r.wages} {
		if rf, ok := t.(storage.Refresher); ok {
			if err := rf.Reload(ctx); err != nil {
				return fmt.Errorf("failed to reload lookup table: %w", err)
			}
		}
	}
	return nil
}
