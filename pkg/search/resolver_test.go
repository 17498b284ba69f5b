package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
	"github.com/xhad/sage/pkg/search"
)

func TestResolverAcceptsCloseMatch(t *testing.T) {
	index := newFakeIndex()
	index.catalogMatches["AI basics"] = &types.CatalogMatch{Title: "Introduction to AI", Distance: 0.4}
	index.catalogMatches["intro ai"] = &types.CatalogMatch{Title: "Introduction to AI", Distance: 0.2}

	r := search.NewResolver(index, 0.75)

	title, ok, err := r.Resolve(context.Background(), "AI basics")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Introduction to AI", title)

	title, ok, err = r.Resolve(context.Background(), "intro ai")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Introduction to AI", title)
}

func TestResolverRejectsDistantMatch(t *testing.T) {
	index := newFakeIndex()
	index.catalogMatches["Quantum Cooking"] = &types.CatalogMatch{Title: "Introduction to AI", Distance: 0.95}

	r := search.NewResolver(index, 0.75)

	_, ok, err := r.Resolve(context.Background(), "Quantum Cooking")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolverThresholdBoundary(t *testing.T) {
	index := newFakeIndex()
	index.catalogMatches["exact"] = &types.CatalogMatch{Title: "Introduction to AI", Distance: 0.5}
	index.catalogMatches["just past"] = &types.CatalogMatch{Title: "Introduction to AI", Distance: 0.5001}

	r := search.NewResolver(index, 0.5)

	// A match exactly at the threshold is accepted.
	_, ok, err := r.Resolve(context.Background(), "exact")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = r.Resolve(context.Background(), "just past")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolverEmptyCatalog(t *testing.T) {
	r := search.NewResolver(newFakeIndex(), 0.75)

	_, ok, err := r.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolverSingleRoundTrip(t *testing.T) {
	index := newFakeIndex()
	r := search.NewResolver(index, 0.75)

	_, _, err := r.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 1, index.catalogQueries)
}

func TestResolverPropagatesIndexError(t *testing.T) {
	index := newFakeIndex()
	index.err = models.ErrIndexUnavailable

	r := search.NewResolver(index, 0.75)

	_, _, err := r.Resolve(context.Background(), "anything")
	assert.True(t, errors.Is(err, models.ErrIndexUnavailable))
}
