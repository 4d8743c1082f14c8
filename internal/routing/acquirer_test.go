package routing

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery_tracker/internal/models"
)

type fakeProvider struct {
	path  Path
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeProvider) Route(ctx context.Context, _, _ string) (Path, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Path{}, ctx.Err()
		}
	}
	return f.path, f.err
}

type memoryStore struct {
	mu    sync.Mutex
	paths map[string]Path
	err   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{paths: map[string]Path{}}
}

func (m *memoryStore) Lookup(_ context.Context, origin, destination string) (Path, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Path{}, false, m.err
	}
	p, ok := m.paths[pairKey(origin, destination)]
	return p, ok, nil
}

func (m *memoryStore) Save(_ context.Context, origin, destination string, path Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[pairKey(origin, destination)] = path
	return nil
}

var providerPath = Path{
	Coordinates:     []models.Coordinate{{Lat: 37.7749, Lng: -122.4194}, {Lat: 37.8249, Lng: -122.3694}},
	DistanceMeters:  7000,
	DurationSeconds: 900,
}

func newTestGenerator() *Generator {
	return NewGenerator(rand.NewPCG(11, 13))
}

func TestAcquire_UsesProvider(t *testing.T) {
	provider := &fakeProvider{path: providerPath}
	store := newMemoryStore()
	a := NewAcquirer(provider, newTestGenerator(), WithStore(store))

	got := a.Acquire(context.Background(), "A", "B")
	assert.Equal(t, SourceProvider, got.Source)
	assert.Equal(t, providerPath, got.Path)

	cached := a.Acquire(context.Background(), " a ", "b")
	assert.Equal(t, SourceCache, cached.Source)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestAcquire_FallsBack(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
	}{
		{"no provider", nil},
		{"disabled", &fakeProvider{err: ErrProviderDisabled}},
		{"error", &fakeProvider{err: errors.New("boom")}},
		{"empty path", &fakeProvider{path: Path{DistanceMeters: 1000}}},
		{"zero distance", &fakeProvider{path: Path{Coordinates: providerPath.Coordinates}}},
		{"timeout", &fakeProvider{path: providerPath, delay: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAcquirer(tt.provider, newTestGenerator(), WithProviderTimeout(20*time.Millisecond))

			got := a.Acquire(context.Background(), "123 Main St, San Francisco", "456 Oak Ave, Daly City")
			assert.Equal(t, SourceProcedural, got.Source)
			assert.True(t, got.Path.Usable())
			assert.GreaterOrEqual(t, len(got.Path.Coordinates), 3)
		})
	}
}

func TestAcquire_StoreErrorIsNotFatal(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("db down")
	a := NewAcquirer(&fakeProvider{path: providerPath}, newTestGenerator(), WithStore(store))

	got := a.Acquire(context.Background(), "A", "B")
	require.Equal(t, SourceProvider, got.Source)
}

func TestAcquire_CollapsesConcurrentCalls(t *testing.T) {
	provider := &fakeProvider{path: providerPath, delay: 50 * time.Millisecond}
	a := NewAcquirer(provider, newTestGenerator())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := a.Acquire(context.Background(), "A", "B")
			assert.Equal(t, SourceProvider, got.Source)
		}()
	}
	wg.Wait()

	assert.Less(t, provider.calls.Load(), int32(8))
}

// hangingStore blocks every call until its context ends.
type hangingStore struct{ lookups, saves atomic.Int32 }

func (h *hangingStore) Lookup(ctx context.Context, _, _ string) (Path, bool, error) {
	h.lookups.Add(1)
	<-ctx.Done()
	return Path{}, false, ctx.Err()
}

func (h *hangingStore) Save(ctx context.Context, _, _ string, _ Path) error {
	h.saves.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestAcquire_SlowCacheIsBounded(t *testing.T) {
	store := &hangingStore{}
	provider := &fakeProvider{path: Path{
		Coordinates:    []models.Coordinate{{Lat: 1, Lng: 1}, {Lat: 1.01, Lng: 1.01}},
		DistanceMeters: 1500,
	}}
	a := NewAcquirer(provider, NewGenerator(rand.NewPCG(1, 2)),
		WithStore(store), WithStoreTimeout(20*time.Millisecond))

	start := time.Now()
	got := a.Acquire(context.Background(), "A", "B")

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceProvider, got.Source)
	assert.Equal(t, int32(1), store.lookups.Load())
	assert.Equal(t, int32(1), store.saves.Load())
}
