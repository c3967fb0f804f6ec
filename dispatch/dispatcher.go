package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// Dispatcher is the narrow capability the builtin value tables need
// from the surrounding runtime: the ability to send an arbitrary
// message to an arbitrary value (for perform: and the boolean
// short-circuit combinators, which send `value` to a block) and to ask
// whether a value would actually handle a selector (for respondsTo:).
// Defined here so this package need not import package runtime, which
// in turn wires these builtin tables into its Context.
type Dispatcher[C any] interface {
	Send(ctx *C, receiver values.Value, sig symbol.SignatureID, args []values.Value) continuation.Continuation[C]
	RespondsTo(ctx *C, receiver values.Value, sig symbol.SignatureID) bool
	Owner(ctx *C) values.Owner
	Interner() *symbol.Interner
}
