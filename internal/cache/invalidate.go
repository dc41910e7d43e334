package cache

import "context"

// OwnerParam is the placeholder invalidation patterns use for the owner id.
const OwnerParam = "owner_id"

// Invalidator evicts every cached entry scoped to one owner. Call it after a
// write has committed, never before.
type Invalidator struct {
	m        *Manager
	patterns []string
}

// NewInvalidator takes glob patterns containing {owner_id}, relative to the
// manager's namespace, e.g. "metrics:*:owner:{owner_id}:*".
func NewInvalidator(m *Manager, patterns ...string) *Invalidator {
	return &Invalidator{m, patterns}
}

// Invalidate deletes the owner's keys and returns how many were removed.
// Failures are logged by the manager; TTL expiry is the backstop.
func (inv *Invalidator) Invalidate(ctx context.Context, ownerID string) int {
	if inv == nil || inv.m == nil {
		return 0
	}

	args := Args{OwnerParam: EscapeGlob(ownerID)}

	total := 0
	for _, p := range inv.patterns {
		glob, err := FormatKey(p, args)
		if err != nil {
			inv.m.logger.Warn().Err(err).Str("pattern", p).Msg("skipping invalidation pattern")
			continue
		}
		total += inv.m.DeletePattern(ctx, glob)
	}

	inv.m.logger.Debug().Str("owner", ownerID).Int("deleted", total).Msg("owner cache invalidated")
	return total
}
