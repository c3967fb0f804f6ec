// Package runtime implements spec.md §4.7: the context that owns
// every live value of one running script, and the Runtime that
// serialises access to it behind the fair reader/writer queue of
// package queue.
//
// Grounded on wudi-hey/vm/vm.go's VirtualMachine, which plays the same
// role there (the single piece of mutable state every instruction
// touches) generalized from a bytecode interpreter's registers and
// stack to this core's class table, allocators and dispatch tables.
package runtime

import (
	"log/slog"

	"github.com/wudi/heyrt/block"
	"github.com/wudi/heyrt/cellblock"
	"github.com/wudi/heyrt/classruntime"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/dispatch"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/heap"
	"github.com/wudi/heyrt/inverted"
	"github.com/wudi/heyrt/later"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BlockClassID is the reserved Reference.ClassID tagging block values,
// distinct from every classruntime.ID (which starts at 0 for
// ClassClass itself and counts up from 1 for user-defined classes).
const BlockClassID int32 = -1

// MaxBlockArity bounds the value/value:/value:value:/… family a block
// dispatch table installs (spec.md §4.8).
const MaxBlockArity = 4

// LaterClassID is the reserved Reference.ClassID tagging Later values,
// distinct from BlockClassID and every classruntime.ID the same way
// BlockClassID is.
const LaterClassID int32 = -2

// Context is spec.md §4.7's single source of truth for a running
// script: the class table, the block allocator, the builtin
// value-dispatch tables, the inverted-dispatch registry, the drop-
// observer list and a shared frame arena blocks capture lexical cells
// from. Context implements values.Owner and dispatch.Dispatcher[Context]
// so it can be handed directly to every package built against a
// generic context type.
type Context struct {
	n *symbol.Interner

	classes  *classruntime.Registry[Context]
	inverted *inverted.Registry

	blockAlloc *heap.Allocator[*block.Block[Context]]
	blockTable *dispatch.Table[Context]
	frameArena *cellblock.Arena

	laterAlloc *heap.Allocator[*later.Later[Context]]
	laterTable *dispatch.Table[Context]

	builtins map[values.Kind]*dispatch.Table[Context]

	dropObservers []func(classID, handle int32)

	logger *slog.Logger
}

// NewContext constructs an empty Context with room for capacity user
// classes preallocated in the class table (spec.md §6
// `initial_class_capacity`): no user classes defined beyond ClassClass
// itself, every builtin value table installed and merged with the
// universal object protocol, and the inverted-dispatch drop observer
// already wired to the class/block allocators.
func NewContext(capacity int, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	n := symbol.Global()
	c := &Context{
		n:        n,
		inverted: inverted.NewRegistry(n),
		builtins: make(map[values.Kind]*dispatch.Table[Context]),
		logger:   logger,
	}

	c.frameArena = cellblock.NewArena(func(v values.Value) { c.ReleaseValue(v) })
	c.blockAlloc = heap.New[*block.Block[Context]](func(b *block.Block[Context]) {
		b.Release(c.frameArena)
	})
	c.blockTable = block.BuildDispatchTable[Context](n, func(ctx *Context) *heap.Allocator[*block.Block[Context]] {
		return ctx.blockAlloc
	}, BlockClassID, MaxBlockArity)

	c.laterAlloc = heap.New[*later.Later[Context]](func(l *later.Later[Context]) {
		l.Release(c.ReleaseValue)
	})
	c.laterTable = later.BuildDispatchTable[Context](n, func(ctx *Context) *heap.Allocator[*later.Later[Context]] {
		return ctx.laterAlloc
	}, func(ctx *Context) values.Owner { return ctx }, LaterClassID)

	c.classes = classruntime.NewWithCapacity[Context](n, c, capacity)
	c.classes.SetOwner(c)
	c.classes.InstallClassProtocol(c.resolveBlock)

	c.installBuiltins()

	c.dropObservers = append(c.dropObservers, func(classID, handle int32) {
		c.inverted.OnDrop(values.Reference{ClassID: classID, Handle: handle})
	})

	return c
}

func (c *Context) resolveBlock(ctx *Context, v values.Value) (*block.Block[Context], bool) {
	ref, ok := v.AsReference()
	if !ok || ref.ClassID != BlockClassID {
		return nil, false
	}
	return ctx.blockAlloc.Retrieve(heap.Handle(ref.Handle))
}

// installBuiltins builds the nine builtin value-dispatch tables of
// spec.md §4.5 and merges the universal object protocol (spec.md §4.5
// "any") into each of them, plus a standalone entry for Nil (whose
// only protocol is the universal one).
func (c *Context) installBuiltins() {
	any := dispatch.BuildAnyTable[Context](c, c.n)

	merge := func(t *dispatch.Table[Context]) *dispatch.Table[Context] {
		t.CopyFrom(any, nil)
		return t
	}

	number := merge(dispatch.BuildNumberTable[Context](c, c.n))
	c.builtins[values.KindInt] = number
	c.builtins[values.KindFloat] = number

	c.builtins[values.KindNil] = merge(dispatch.NewTable[Context]())
	c.builtins[values.KindBool] = merge(dispatch.BuildBoolTable[Context](c, c.n))
	c.builtins[values.KindString] = merge(dispatch.BuildStringTable[Context](c, c.n))
	c.builtins[values.KindChar] = merge(dispatch.BuildCharTable[Context](c, c.n))
	c.builtins[values.KindSymbol] = merge(dispatch.BuildSymbolTable[Context](c, c.n))
	c.builtins[values.KindSelector] = merge(dispatch.BuildSelectorTable[Context](c, c.n))
	c.builtins[values.KindArray] = merge(dispatch.BuildArrayTable[Context](c, c.n))
	c.builtins[values.KindMessage] = merge(dispatch.BuildMessageTable[Context](c, c.n))
	c.builtins[values.KindError] = merge(dispatch.BuildErrorTable[Context](c, c.n))

	merge(c.blockTable)
	merge(c.laterTable)
}

// Interner returns the symbol interner every selector and class name
// in this context is resolved against.
func (c *Context) Interner() *symbol.Interner { return c.n }

// Classes returns the class registry, for hosts that want to define
// classes directly against classruntime's API (spec.md §6
// "Class::create(definition)").
func (c *Context) Classes() *classruntime.Registry[Context] { return c.classes }

// Inverted returns the inverted-dispatch registry, for hosts that want
// to declare inverted selectors or subscribe targets directly.
func (c *Context) Inverted() *inverted.Registry { return c.inverted }

// FrameArena returns the cell-block arena block closures capture their
// lexical frames from.
func (c *Context) FrameArena() *cellblock.Arena { return c.frameArena }

// NewBlock stores a freshly-built block and returns the Reference
// value naming it.
func (c *Context) NewBlock(arity int, frames []cellblock.ID, run block.Body[Context]) values.Value {
	blk := block.New[Context](arity, frames, run)
	h := c.blockAlloc.Store(blk)
	return values.NewReference(BlockClassID, int32(h))
}

// LaterClass returns a Later-tagged reference suitable as the receiver
// of a "new" send (spec.md's `Later new`) — its handle is reserved and
// never stored in the Later allocator, so it can never alias a real
// instance the way handle 0 of a freshly-created allocator would.
func (c *Context) LaterClass() values.Value {
	return values.NewReference(LaterClassID, -1)
}

// AddDropObserver registers an additional hook run (under whatever
// lock release holds at the time) whenever any reference's refcount
// reaches zero, receiving the dropped value's (class_id, data_handle)
// pair (spec.md §5 "Drop observers").
func (c *Context) AddDropObserver(obs func(classID, handle int32)) {
	c.dropObservers = append(c.dropObservers, obs)
}

func (c *Context) fireDropObservers(ref values.Reference) {
	c.logger.Debug("reference dropped", "classID", ref.ClassID, "handle", ref.Handle)
	for _, obs := range c.dropObservers {
		obs(ref.ClassID, ref.Handle)
	}
}

// tableFor resolves the dispatch table a value's Kind (and, for
// References, its ClassID) answers through.
func (c *Context) tableFor(v values.Value) (*dispatch.Table[Context], *values.Value) {
	if ref, ok := v.AsReference(); ok {
		switch {
		case ref.ClassID == BlockClassID:
			return c.blockTable, nil
		case ref.ClassID == LaterClassID:
			return c.laterTable, nil
		case ref.ClassID == int32(classruntime.ClassClassID):
			// ref.Handle names the class this value stands for — every
			// class has its own ClassTable (class-side message
			// installation is scoped per class, spec.md §4.4), not one
			// table shared by every class reference.
			cls, ok := c.classes.ClassByID(classruntime.ID(ref.Handle))
			if !ok {
				errv := values.NewError(errs.New(errs.UnexpectedClass))
				return nil, &errv
			}
			return cls.ClassTable, nil
		default:
			cls, ok := c.classes.ClassByID(classruntime.ID(ref.ClassID))
			if !ok {
				errv := values.NewError(errs.New(errs.UnexpectedClass))
				return nil, &errv
			}
			return cls.InstanceTable, nil
		}
	}
	t, ok := c.builtins[v.Kind()]
	if !ok {
		errv := values.NewError(errs.New(errs.UnexpectedClass))
		return nil, &errv
	}
	return t, nil
}

// Send implements dispatch.Dispatcher[Context]: resolve receiver's
// table by kind/class and dispatch sig through it.
func (c *Context) Send(ctx *Context, receiver values.Value, sig symbol.SignatureID, args []values.Value) continuation.Continuation[Context] {
	t, errv := c.tableFor(receiver)
	if errv != nil {
		c.ReleaseValue(receiver)
		for _, a := range args {
			c.ReleaseValue(a)
		}
		return continuation.Ready[Context](*errv)
	}

	owned := values.NewOwned(receiver, c)
	ownedArgs := make([]values.Owned, len(args))
	for i, a := range args {
		ownedArgs[i] = values.NewOwned(a, c)
	}
	return t.Dispatch(sig, owned, ownedArgs, ctx)
}

// RespondsTo implements dispatch.Dispatcher[Context].
func (c *Context) RespondsTo(ctx *Context, receiver values.Value, sig symbol.SignatureID) bool {
	t, errv := c.tableFor(receiver)
	if errv != nil {
		return false
	}
	return t.RespondsTo(sig)
}

// Owner implements dispatch.Dispatcher[Context].
func (c *Context) Owner(ctx *Context) values.Owner { return c }

// ReleaseValue implements values.Owner: releases v's transitively held
// references, running any drop observers for references whose count
// reaches zero.
func (c *Context) ReleaseValue(v values.Value) {
	switch v.Kind() {
	case values.KindReference:
		ref, _ := v.AsReference()
		c.releaseRef(ref)
	case values.KindArray:
		arr, _ := v.AsArray()
		for _, e := range arr.Elements {
			c.ReleaseValue(e)
		}
	case values.KindMessage:
		m, _ := v.AsMessage()
		for _, a := range m.Args {
			c.ReleaseValue(a)
		}
	}
}

// CloneValue implements values.Owner: retains any references v holds,
// transitively, and returns v itself (Array/Message values share their
// backing store across clones, per spec.md §3's ownership summary —
// only the References they contain actually carry a refcount).
func (c *Context) CloneValue(v values.Value) values.Value {
	switch v.Kind() {
	case values.KindReference:
		ref, _ := v.AsReference()
		c.retainRef(ref)
	case values.KindArray:
		arr, _ := v.AsArray()
		for _, e := range arr.Elements {
			c.CloneValue(e)
		}
	case values.KindMessage:
		m, _ := v.AsMessage()
		for _, a := range m.Args {
			c.CloneValue(a)
		}
	}
	return v
}

func (c *Context) retainRef(ref values.Reference) {
	switch ref.ClassID {
	case BlockClassID:
		c.blockAlloc.Retain(heap.Handle(ref.Handle))
		return
	case LaterClassID:
		c.laterAlloc.Retain(heap.Handle(ref.Handle))
		return
	}
	if cls, ok := c.classes.ClassByID(classruntime.ID(ref.ClassID)); ok && cls.Arena != nil {
		cls.Arena.Retain(cellblock.ID(ref.Handle))
	}
}

func (c *Context) releaseRef(ref values.Reference) {
	switch ref.ClassID {
	case BlockClassID:
		if c.blockAlloc.Release(heap.Handle(ref.Handle)) {
			c.fireDropObservers(ref)
		}
		return
	case LaterClassID:
		if c.laterAlloc.Release(heap.Handle(ref.Handle)) {
			c.fireDropObservers(ref)
		}
		return
	}
	if cls, ok := c.classes.ClassByID(classruntime.ID(ref.ClassID)); ok && cls.Arena != nil {
		if cls.Arena.Release(cellblock.ID(ref.Handle)) {
			c.fireDropObservers(ref)
		}
	}
}

var _ values.Owner = (*Context)(nil)
var _ dispatch.Dispatcher[Context] = (*Context)(nil)
