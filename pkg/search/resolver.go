package search

import (
	"context"

	"github.com/xhad/sage/internal/types"
)

// DefaultMaxDistance is the cosine-distance ceiling for accepting a catalog
// match as "the" course a fuzzy name refers to.
const DefaultMaxDistance = 0.75

// Resolver maps fuzzy course-name strings to canonical catalog titles with
// a single top-1 catalog query. Best effort only: no edit-distance
// fallback, no multi-candidate disambiguation.
type Resolver struct {
	index       types.VectorIndex
	maxDistance float32
}

func NewResolver(index types.VectorIndex, maxDistance float32) *Resolver {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Resolver{
		index:       index,
		maxDistance: maxDistance,
	}
}

// Resolve returns the canonical title for fuzzyName, or ok=false when the
// catalog has no close-enough match. The error is reserved for index
// failures.
func (r *Resolver) Resolve(ctx context.Context, fuzzyName string) (string, bool, error) {
	match, err := r.index.QueryCatalog(ctx, fuzzyName)
	if err != nil {
		return "", false, err
	}
	if match == nil || match.Distance > r.maxDistance {
		return "", false, nil
	}
	return match.Title, true, nil
}
