package values

// Owner is the capability a context exposes to Owned wrappers: release
// a value's transitive references, and clone a value by incrementing
// any References it transitively holds. Defined here, rather than
// imported from package runtime, to avoid a values → runtime import
// cycle; runtime.Context satisfies this interface.
type Owner interface {
	ReleaseValue(v Value)
	CloneValue(v Value) Value
}

// Owned pairs a Value with the Owner responsible for releasing it.
// Every dispatch-table handler receives its receiver and arguments as
// Owned wrappers (spec.md §4.9) precisely so that an error return on
// any branch still releases what it was given — Go has no destructors,
// so callers must call Release (typically via defer) on every code
// path, including early returns.
type Owned struct {
	value    Value
	owner    Owner
	released bool
}

// NewOwned wraps v, to be released through owner.
func NewOwned(v Value, owner Owner) Owned {
	return Owned{value: v, owner: owner}
}

// Value returns the wrapped value without transferring ownership.
func (o *Owned) Value() Value { return o.value }

// Map replaces the wrapped value with f(current), without releasing
// the old value — useful when a handler narrows a receiver to a more
// specific representation it still owns.
func (o *Owned) Map(f func(Value) Value) {
	o.value = f(o.value)
}

// Leak relinquishes ownership and returns the raw value without
// releasing it; the caller becomes responsible for its lifetime (e.g.
// because it is being returned as the continuation's result value).
func (o *Owned) Leak() Value {
	o.released = true
	return o.value
}

// Clone produces a second Owned wrapper over an independently-owned
// copy of the same logical value (References inside are retained).
func (o *Owned) Clone() Owned {
	return Owned{value: o.owner.CloneValue(o.value), owner: o.owner}
}

// Release releases the wrapped value if it has not already been
// released or leaked. Calling Release more than once is a no-op.
func (o *Owned) Release() {
	if o.released {
		return
	}
	o.released = true
	o.owner.ReleaseValue(o.value)
}

// Released reports whether Release or Leak has already run.
func (o *Owned) Released() bool { return o.released }
