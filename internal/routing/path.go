// Package routing acquires a travel path between two addresses. It prefers a
// cached or provider-computed route and falls back to a procedurally
// generated one, so acquisition itself never fails.
package routing

import (
	"context"
	"errors"

	"delivery_tracker/internal/models"
)

// ErrProviderDisabled is returned by providers that lack credentials.
var ErrProviderDisabled = errors.New("routing: provider disabled")

// Path is an ordered coordinate sequence with its nominal totals.
type Path struct {
	Coordinates     []models.Coordinate
	DistanceMeters  int
	DurationSeconds int
}

// Usable reports whether the path can drive a simulation.
func (p Path) Usable() bool {
	return len(p.Coordinates) > 0 && p.DistanceMeters > 0
}

// Provider computes a route between two addresses.
type Provider interface {
	Route(ctx context.Context, origin, destination string) (Path, error)
}

// Store caches provider routes keyed by address pair.
type Store interface {
	Lookup(ctx context.Context, origin, destination string) (Path, bool, error)
	Save(ctx context.Context, origin, destination string, path Path) error
}

// Source names where an acquired path came from.
type Source string

const (
	SourceCache      Source = "cache"
	SourceProvider   Source = "provider"
	SourceProcedural Source = "procedural"
)
