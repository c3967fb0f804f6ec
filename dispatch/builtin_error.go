package dispatch

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildErrorTable constructs the Error protocol of spec.md §4.5: an
// Error value answers its own description via messageText and
// supports isKind: for checking its Kind without exposing the Kind
// enum itself as a first-class value. Sending any other message to an
// Error value behaves like any other value — there is no implicit
// re-raise; Errors are data, not control flow (spec.md §4.2).
func BuildErrorTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	asErr := func(v values.Value) (values.RuntimeError, *values.Value) {
		e, ok := v.AsError()
		if !ok {
			errv := values.NewError(errs.New(errs.NotAnError))
			return nil, &errv
		}
		return e, nil
	}

	t.Insert(n.Unary("messageText"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		e, errv := asErr(r.Value())
		var text string
		if errv == nil {
			text = e.Error()
		}
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewString(text))
	})

	t.Insert(n.Keyword("isKind:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		e, errv := asErr(r.Value())
		if errv != nil {
			r.Release()
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		kindName, ok := a[0].Value().AsString()
		r.Release()
		releaseAll(a)
		if !ok {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotAString)))
		}
		return continuation.Ready[C](values.NewBool(matchesKindName(e, kindName)))
	})

	return t
}

// matchesKindName reports whether e's underlying *errs.Error has the
// kind named by kindName (spec.md §7's kind names, e.g. "IsNil").
func matchesKindName(e values.RuntimeError, kindName string) bool {
	ee, ok := e.(*errs.Error)
	if !ok {
		return false
	}
	return ee.Kind.String() == kindName
}
