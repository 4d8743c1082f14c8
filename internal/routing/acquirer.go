package routing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Acquired is a path together with where it came from.
type Acquired struct {
	Path   Path
	Source Source
}

// Acquirer resolves a path via cache, then provider, then procedural fallback.
type Acquirer struct {
	provider     Provider
	store        Store
	generator    *Generator
	timeout      time.Duration
	storeTimeout time.Duration
	group        singleflight.Group
}

// AcquirerOption customises an Acquirer.
type AcquirerOption func(*Acquirer)

// WithStore enables the route cache.
func WithStore(s Store) AcquirerOption {
	return func(a *Acquirer) { a.store = s }
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) AcquirerOption {
	return func(a *Acquirer) { a.timeout = d }
}

// WithStoreTimeout bounds each cache lookup and save (default 2s).
func WithStoreTimeout(d time.Duration) AcquirerOption {
	return func(a *Acquirer) { a.storeTimeout = d }
}

// NewAcquirer builds an Acquirer. provider may be nil to go straight to the fallback.
func NewAcquirer(provider Provider, generator *Generator, opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{
		provider:     provider,
		generator:    generator,
		timeout:      5 * time.Second,
		storeTimeout: 2 * time.Second,
	}
	if a.generator == nil {
		a.generator = NewGenerator(nil)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire never fails: provider and cache errors are logged and recovered
// by the procedural generator. Concurrent calls for the same pair share one
// lookup.
func (a *Acquirer) Acquire(ctx context.Context, origin, destination string) Acquired {
	key := pairKey(origin, destination)
	v, _, _ := a.group.Do(key, func() (any, error) {
		return a.acquire(ctx, origin, destination), nil
	})
	return v.(Acquired)
}

func (a *Acquirer) acquire(ctx context.Context, origin, destination string) Acquired {
	log := logrus.WithFields(logrus.Fields{
		"origin":      origin,
		"destination": destination,
	})

	if a.store != nil {
		path, ok, err := a.lookup(ctx, origin, destination)
		switch {
		case err != nil:
			log.WithError(err).Warn("Route cache lookup failed; continuing without cache.")
		case ok && path.Usable():
			log.WithField("distance_m", path.DistanceMeters).Debug("Route served from cache.")
			return Acquired{Path: path, Source: SourceCache}
		}
	}

	if a.provider != nil {
		path, err := a.callProvider(ctx, origin, destination)
		switch {
		case errors.Is(err, ErrProviderDisabled):
			log.Debug("Route provider disabled; using procedural route.")
		case err != nil:
			log.WithError(err).Warn("Route provider failed; using procedural route.")
		case !path.Usable():
			log.WithFields(logrus.Fields{
				"points":     len(path.Coordinates),
				"distance_m": path.DistanceMeters,
			}).Warn("Route provider returned an unusable path; using procedural route.")
		default:
			a.remember(ctx, origin, destination, path)
			log.WithFields(logrus.Fields{
				"points":     len(path.Coordinates),
				"distance_m": path.DistanceMeters,
			}).Info("Route computed by provider.")
			return Acquired{Path: path, Source: SourceProvider}
		}
	}

	path := a.generator.Generate(origin, destination)
	log.WithFields(logrus.Fields{
		"points":     len(path.Coordinates),
		"distance_m": path.DistanceMeters,
	}).Info("Procedural route generated.")
	return Acquired{Path: path, Source: SourceProcedural}
}

func (a *Acquirer) callProvider(ctx context.Context, origin, destination string) (Path, error) {
	ctx, cancel := withOptionalTimeout(ctx, a.timeout)
	defer cancel()
	return a.provider.Route(ctx, origin, destination)
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (a *Acquirer) lookup(ctx context.Context, origin, destination string) (Path, bool, error) {
	ctx, cancel := withOptionalTimeout(ctx, a.storeTimeout)
	defer cancel()
	return a.store.Lookup(ctx, origin, destination)
}

func (a *Acquirer) remember(ctx context.Context, origin, destination string, path Path) {
	if a.store == nil {
		return
	}
	ctx, cancel := withOptionalTimeout(ctx, a.storeTimeout)
	defer cancel()
	if err := a.store.Save(ctx, origin, destination, path); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"origin":      origin,
			"destination": destination,
		}).Warn("Failed to cache provider route.")
	}
}

// NormalizeAddress canonicalises an address for cache keys.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func pairKey(origin, destination string) string {
	return NormalizeAddress(origin) + "|" + NormalizeAddress(destination)
}
