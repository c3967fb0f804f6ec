// Package cellblock implements the context-owned arena of fixed-size
// cell blocks used as both instance storage and lexical frames
// (spec.md §3 "Cell blocks").
package cellblock

import (
	"github.com/wudi/heyrt/heap"
	"github.com/wudi/heyrt/values"
)

// ID identifies one cell block within the arena.
type ID = heap.Handle

// Block is a fixed-size, individually reference-counted vector of
// values. Instances of user-defined classes are cell blocks: cell 0
// holds the super reference (if any), subsequent cells hold instance
// variables in declaration order (spec.md §4.4).
type Block struct {
	Cells []values.Value
}

// ReleaseCellHook is called once per cell when a block's refcount
// reaches zero, so the arena's owner (the Context) can release any
// References the cells transitively hold.
type ReleaseCellHook func(v values.Value)

// Arena owns every cell block in a context. It is a heap.Allocator
// specialised to []Value payloads plus the frame-walking helper the
// evaluator's contract (spec.md §3 "frame cell") requires.
type Arena struct {
	alloc *heap.Allocator[*Block]
}

// NewArena constructs an empty arena. releaseCell is invoked, once per
// cell, for every cell of a block whose refcount reaches zero.
func NewArena(releaseCell ReleaseCellHook) *Arena {
	return &Arena{
		alloc: heap.New[*Block](func(b *Block) {
			if releaseCell == nil {
				return
			}
			for _, c := range b.Cells {
				releaseCell(c)
			}
		}),
	}
}

// Allocate stores a new block of size n, every cell initialised to
// Nil, and returns its id.
func (a *Arena) Allocate(n int) ID {
	cells := make([]values.Value, n)
	for i := range cells {
		cells[i] = values.Nil
	}
	return a.alloc.Store(&Block{Cells: cells})
}

// AllocateFrom stores a new block initialised from the given cells
// (taken by reference, not copied).
func (a *Arena) AllocateFrom(cells []values.Value) ID {
	return a.alloc.Store(&Block{Cells: cells})
}

// Get returns the block at id, or nil, false if the id is not live.
func (a *Arena) Get(id ID) (*Block, bool) {
	return a.alloc.Retrieve(id)
}

// CellAt returns the value at (id, index), or Nil, false if the block
// or index is out of range.
func (a *Arena) CellAt(id ID, index int) (values.Value, bool) {
	b, ok := a.alloc.Retrieve(id)
	if !ok || index < 0 || index >= len(b.Cells) {
		return values.Nil, false
	}
	return b.Cells[index], true
}

// SetCellAt overwrites the value at (id, index). Callers are
// responsible for retaining/releasing the old and new values as
// appropriate — the arena does not itself track per-cell ownership
// transitions.
func (a *Arena) SetCellAt(id ID, index int, v values.Value) bool {
	ok := false
	a.alloc.With(id, func(b **Block) {
		blk := *b
		if index < 0 || index >= len(blk.Cells) {
			return
		}
		blk.Cells[index] = v
		ok = true
	})
	return ok
}

// Retain increments a block's refcount (e.g. a block closure capturing
// its parent frames).
func (a *Arena) Retain(id ID) { a.alloc.Retain(id) }

// Release decrements a block's refcount, running the release hook
// (one call per cell) if it reaches zero. Returns whether the block
// was actually dropped.
func (a *Arena) Release(id ID) bool { return a.alloc.Release(id) }

// RefCount reports a block's current refcount.
func (a *Arena) RefCount(id ID) int32 { return a.alloc.RefCount(id) }

// Frame is a (frame_depth, cell_index) pair used by the evaluator to
// reach lexical ancestor frames; frame depth 0 is the currently
// executing block's frame (spec.md §3).
type Frame struct {
	Depth int
	Index int
}

// ResolveFrame walks frames (ordered innermost-first, i.e. frames[0] is
// depth 0) to find the block id at the requested depth, then reads the
// cell at that depth's index.
func ResolveFrame(frames []ID, f Frame, arena *Arena) (values.Value, bool) {
	if f.Depth < 0 || f.Depth >= len(frames) {
		return values.Nil, false
	}
	return arena.CellAt(frames[f.Depth], f.Index)
}

// LiveBlocks enumerates every currently-occupied block id, mirroring
// heap.Allocator's debug hook.
func (a *Arena) LiveBlocks() []ID { return a.alloc.LiveHandles() }
