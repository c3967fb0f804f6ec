package cellblock_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wudi/heyrt/cellblock"
	"github.com/wudi/heyrt/values"
)

func TestAllocateAndReadCells(t *testing.T) {
	var released []values.Value
	a := cellblock.NewArena(func(v values.Value) { released = append(released, v) })

	id := a.Allocate(3)
	require.True(t, a.SetCellAt(id, 0, values.NewInt(1)))
	require.True(t, a.SetCellAt(id, 1, values.NewInt(2)))

	v, ok := a.CellAt(id, 0)
	require.True(t, ok)
	n, _ := v.AsInt()
	require.Equal(t, int64(1), n)

	_, ok = a.CellAt(id, 5)
	require.False(t, ok)
}

func TestReleaseRunsHookPerCell(t *testing.T) {
	var released []values.Value
	a := cellblock.NewArena(func(v values.Value) { released = append(released, v) })

	id := a.AllocateFrom([]values.Value{values.NewInt(1), values.NewInt(2)})
	require.True(t, a.Release(id))
	require.Len(t, released, 2)
}

func TestResolveFrameWalksAncestors(t *testing.T) {
	a := cellblock.NewArena(nil)
	parent := a.AllocateFrom([]values.Value{values.NewString("parent-cell")})
	child := a.AllocateFrom([]values.Value{values.NewString("child-cell")})

	frames := []cellblock.ID{child, parent} // depth 0 = child, depth 1 = parent

	v, ok := cellblock.ResolveFrame(frames, cellblock.Frame{Depth: 0, Index: 0}, a)
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "child-cell", s)

	v, ok = cellblock.ResolveFrame(frames, cellblock.Frame{Depth: 1, Index: 0}, a)
	require.True(t, ok)
	s, _ = v.AsString()
	require.Equal(t, "parent-cell", s)

	_, ok = cellblock.ResolveFrame(frames, cellblock.Frame{Depth: 2, Index: 0}, a)
	require.False(t, ok)
}
