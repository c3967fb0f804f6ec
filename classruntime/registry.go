// Package classruntime implements spec.md §4.4's class runtime: class
// definition (subclassing, instance variables), instance allocation
// and the default new/init sequence, instance/class message
// installation, and super-dispatch fallback through an instance's
// cell 0.
//
// A class is itself represented as an ordinary Reference value, tagged
// with the reserved ClassClass id as its ClassID and the defined
// class's own ClassID as its Handle — so "sending new to a class" is
// just an ordinary dispatch through ClassClass's instance table, no
// separate value kind required (spec.md §3's closed Kind enumeration
// has no dedicated "Class" alternative).
package classruntime

import (
	"fmt"
	"sync"

	"github.com/wudi/heyrt/cellblock"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/dispatch"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// ID identifies one class within a Registry.
type ID int32

// ClassClassID is the reserved id of the class-of-classes itself.
// User-defined classes are assigned ids starting at 1.
const ClassClassID ID = 0

// Class is one user-visible class: its identity, its superclass (if
// any), its declared instance variable names, the instance dispatch
// table messages sent to its instances resolve against, and its own
// class-side dispatch table (messages sent to the class value itself,
// e.g. via addClassMessage:withAction:) — distinct per class, the way
// InstanceTable is distinct per class, rather than one table shared by
// every class in the registry.
type Class[C any] struct {
	ID               ID
	Name             string
	SuperID          ID
	HasSuper         bool
	InstanceVarNames []string
	InstanceTable    *dispatch.Table[C]
	ClassTable       *dispatch.Table[C]
	Arena            *cellblock.Arena
}

// Registry owns every class defined in one context: the class table
// itself, and ClassClass's own dispatch table (the protocol every
// class value, not instance, answers to).
//
// Registry is released from the owner-object chicken-and-egg problem
// (a class's release hook needs an Owner, but the Owner — typically
// the surrounding Context — is not fully constructed until after its
// Registry is) by binding the owner once, via SetOwner, after both are
// built; every release hook closes over the Registry itself and reads
// ownerInstance lazily on first use.
type Registry[C any] struct {
	mu sync.Mutex

	n             *symbol.Interner
	d             dispatch.Dispatcher[C]
	classes       []*Class[C]
	byName        map[string]ID
	classTbl      *dispatch.Table[C] // the default class protocol (new, subclass:, ...); also ClassClass's own ClassTable
	ownerInstance values.Owner
}

// New constructs a Registry whose ClassClass protocol is installed by
// InstallClassProtocol (kept separate so tests can build a Registry
// without wiring perform:/dispatch dependencies first).
func New[C any](n *symbol.Interner, d dispatch.Dispatcher[C]) *Registry[C] {
	return NewWithCapacity[C](n, d, 0)
}

// NewWithCapacity is New, preallocating room for capacity classes
// beyond ClassClass itself — the concrete realisation of spec.md §6's
// `{ initial_class_capacity: N }` configuration option.
func NewWithCapacity[C any](n *symbol.Interner, d dispatch.Dispatcher[C], capacity int) *Registry[C] {
	r := &Registry[C]{
		n:      n,
		d:      d,
		byName: make(map[string]ID, capacity),
	}
	// classes[ClassClassID] is a placeholder entry so class ids and
	// slice indices stay in lockstep; ClassClass itself never has
	// instances allocated from its own Arena. Its ClassTable is
	// r.classTbl itself — the root every other class's class-side
	// fallback chain eventually reaches.
	r.classTbl = dispatch.NewTable[C]()
	r.classes = make([]*Class[C], 0, capacity+1)
	r.classes = append(r.classes, &Class[C]{ID: ClassClassID, Name: "Class", ClassTable: r.classTbl})
	return r
}

// SetOwner binds the Owner every class's cell-release hook uses. Must
// be called once, before any instance of any class defined here is
// ever released.
func (r *Registry[C]) SetOwner(o values.Owner) { r.ownerInstance = o }

// ClassTable returns the default class protocol table (new, subclass:,
// addInstanceMessage:withAction:, ...) installed via
// InstallClassProtocol — the root every class's own ClassTable falls
// back to once its own and its superclasses' class-side overrides are
// exhausted.
func (r *Registry[C]) ClassTable() *dispatch.Table[C] { return r.classTbl }

// Lookup resolves a class by name.
func (r *Registry[C]) Lookup(name string) (*Class[C], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.classes[id], true
}

// ClassByID returns the class with the given id.
func (r *Registry[C]) ClassByID(id ID) (*Class[C], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) < 0 || int(id) >= len(r.classes) {
		return nil, false
	}
	c := r.classes[id]
	return c, c != nil
}

// ClassValue returns the class value (a Reference tagged ClassClassID)
// naming id.
func ClassValue(id ID) values.Value {
	return values.NewReference(int32(ClassClassID), int32(id))
}

// Subclass defines a new class named name, inheriting from super (or
// with no superclass if super is nil), with the given instance
// variable names declared in addition to whatever the superclass
// chain already declares (spec.md §4.4 "subclass:" /
// "subclassWithInstanceVariables:"). Returns an error if the name is
// already taken.
func (r *Registry[C]) Subclass(name string, super *Class[C], ivars []string) (*Class[C], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("classruntime: class %q already defined", name)
	}

	id := ID(len(r.classes))
	c := &Class[C]{
		ID:               id,
		Name:             name,
		InstanceVarNames: ivars,
		InstanceTable:    dispatch.NewTable[C](),
		ClassTable:       dispatch.NewTable[C](),
	}
	if super != nil {
		c.SuperID = super.ID
		c.HasSuper = true
	}
	c.Arena = cellblock.NewArena(func(v values.Value) {
		if r.ownerInstance == nil {
			panic("classruntime: release hook invoked before SetOwner")
		}
		r.ownerInstance.ReleaseValue(v)
	})
	c.InstanceTable.SetNotSupported(r.superDispatchFallback(c))
	c.ClassTable.SetNotSupported(r.classDispatchFallback(c))
	// A class with no explicit init still answers "new": the default
	// init is a no-op, overridden the moment a script installs its own
	// via addInstanceMessage:withAction:.
	c.InstanceTable.Insert(r.n.Unary("init"), func(receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C] {
		receiver.Release()
		for i := range args {
			args[i].Release()
		}
		return continuation.Ready[C](values.Nil)
	})

	r.classes = append(r.classes, c)
	r.byName[name] = id
	return c, nil
}

// superDispatchFallback builds the NotSupportedHandler that, instead
// of immediately answering MessageNotSupported, forwards the send to
// the instance's super reference held in cell 0 (spec.md §4.4
// "super-dispatch fallback"). A class with no superclass, or an
// instance whose cell 0 is Nil, falls through to the ordinary
// MessageNotSupported error.
func (r *Registry[C]) superDispatchFallback(c *Class[C]) dispatch.NotSupportedHandler[C] {
	return func(sig symbol.SignatureID, receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C] {
		if !c.HasSuper {
			return notSupported[C](sig, receiver, args)
		}
		ref, ok := receiver.Value().AsReference()
		if !ok {
			return notSupported[C](sig, receiver, args)
		}
		blk, ok := c.Arena.Get(cellblock.ID(ref.Handle))
		if !ok || len(blk.Cells) == 0 {
			return notSupported[C](sig, receiver, args)
		}
		superRef := blk.Cells[0]
		if superRef.IsNil() {
			return notSupported[C](sig, receiver, args)
		}

		superVal := r.ownerInstance.CloneValue(superRef)
		receiver.Release()
		rest := make([]values.Value, len(args))
		for i := range args {
			rest[i] = args[i].Leak()
		}
		return r.d.Send(ctx, superVal, sig, rest)
	}
}

// classDispatchFallback builds the NotSupportedHandler installed on a
// class's own ClassTable: a class-side selector with no override on c
// itself falls through to its superclass's ClassTable (walking up one
// level at a time, the same shape as superDispatchFallback), and
// ultimately to the shared default class protocol (r.classTbl) once
// the chain runs out of superclasses — so two classes each calling
// addClassMessage:withAction: for the same selector never collide, and
// an unrelated class is unaffected by either.
func (r *Registry[C]) classDispatchFallback(c *Class[C]) dispatch.NotSupportedHandler[C] {
	return func(sig symbol.SignatureID, receiver values.Owned, args []values.Owned, ctx *C) continuation.Continuation[C] {
		parent := r.classTbl
		if c.HasSuper {
			if super, ok := r.ClassByID(c.SuperID); ok {
				parent = super.ClassTable
			}
		}
		return parent.Dispatch(sig, receiver, args, ctx)
	}
}

func notSupported[C any](sig symbol.SignatureID, receiver values.Owned, args []values.Owned) continuation.Continuation[C] {
	receiver.Release()
	for i := range args {
		args[i].Release()
	}
	return continuation.Ready[C](values.NewError(errs.MessageNotSupportedFor(sig)))
}
