package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wudi/heyrt/heap"
)

// S1 — reference counting.
func TestReferenceCountingScenario(t *testing.T) {
	var released []int
	a := heap.New[int](func(data int) { released = append(released, data) })

	h := a.Store(42)
	require.EqualValues(t, 1, a.RefCount(h))

	a.Retain(h)
	require.EqualValues(t, 2, a.RefCount(h))

	dropped := a.Release(h)
	require.False(t, dropped)
	require.EqualValues(t, 1, a.RefCount(h))

	dropped = a.Release(h)
	require.True(t, dropped)
	require.EqualValues(t, 0, a.RefCount(h))
	require.Equal(t, []int{42}, released)

	_, ok := a.Retrieve(h)
	require.False(t, ok)

	h2 := a.Store(43)
	require.Equal(t, h, h2, "freed slot must be reused")
}

func TestRetainReleaseOnZeroIsNoOp(t *testing.T) {
	a := heap.New[string](nil)
	h := heap.Handle(99) // never stored
	a.Retain(h)
	require.False(t, a.Release(h))
}

func TestReleaseDropsLockBeforeHook(t *testing.T) {
	a := heap.New[int](nil)
	inner := heap.New[int](nil)

	a = heap.New[int](func(data int) {
		// The release hook must be able to freely call into another
		// (or the same) allocator without deadlocking — this is the
		// whole point of dropping the lock first.
		inner.Store(data)
		_ = a.LiveHandles()
	})

	h := a.Store(7)
	require.True(t, a.Release(h))
	require.Len(t, inner.LiveHandles(), 1)
}

func TestLiveHandles(t *testing.T) {
	a := heap.New[int](nil)
	h1 := a.Store(1)
	h2 := a.Store(2)
	a.Release(h1)
	require.Equal(t, []heap.Handle{h2}, a.LiveHandles())
}
