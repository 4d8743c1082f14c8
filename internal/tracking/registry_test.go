package tracking

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InsertRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	first := &Task{OrderID: "A"}

	require.NoError(t, r.Insert(first))
	assert.ErrorIs(t, r.Insert(&Task{OrderID: "A"}), ErrAlreadyTracking)

	got, ok := r.Get("A")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegistry_RemoveTaskComparesIdentity(t *testing.T) {
	r := NewRegistry()
	old := &Task{OrderID: "A"}
	require.NoError(t, r.Insert(old))

	removed, ok := r.Remove("A")
	require.True(t, ok)
	assert.Same(t, old, removed)

	replacement := &Task{OrderID: "A"}
	require.NoError(t, r.Insert(replacement))

	assert.False(t, r.RemoveTask(old))
	assert.False(t, r.Holds(old))
	assert.True(t, r.Holds(replacement))
	assert.True(t, r.RemoveTask(replacement))
	assert.Zero(t, r.Len())

	_, ok = r.Remove("A")
	assert.False(t, ok)
}

func TestRegistry_SnapshotsAreSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Insert(&Task{OrderID: id}))
	}

	assert.Equal(t, []string{"a", "b", "c"}, r.OrderIDs())
	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].OrderID)
	assert.Equal(t, "c", snap[2].OrderID)
}

func TestRegistry_ConcurrentInsertOnlyOneWins(t *testing.T) {
	r := NewRegistry()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Insert(&Task{OrderID: "same"}) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRegistry_ConcurrentMixedOperations(t *testing.T) {
	r := NewRegistry()
	var removed atomic.Int32
	var wg sync.WaitGroup
	for i := range 50 {
		id := fmt.Sprintf("ord-%02d", i)
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = r.Insert(&Task{OrderID: id})
		}()
		go func() {
			defer wg.Done()
			_ = r.OrderIDs()
			_ = r.Snapshot()
		}()
		go func() {
			defer wg.Done()
			if _, ok := r.Remove(id); ok {
				removed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len()+int(removed.Load()))
}
