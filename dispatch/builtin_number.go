package dispatch

import (
	"math"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// numOf extracts a float64 view of v plus whether v was originally an
// Int (so results that "stay integral where possible" can be narrowed
// back down).
func numOf(v values.Value) (f float64, wasInt bool, ok bool) {
	if i, isInt := v.AsInt(); isInt {
		return float64(i), true, true
	}
	if fl, isFloat := v.AsFloat(); isFloat {
		return fl, false, true
	}
	return 0, false, false
}

func numResult(f float64, keepInt bool) values.Value {
	if keepInt {
		return values.NewInt(int64(f))
	}
	return values.NewFloat(f)
}

// BuildNumberTable constructs the shared integer/float protocol of
// spec.md §4.5: arithmetic, comparisons, and the SmallTalk number
// protocol. Integer-integer operations stay integral (for / only when
// the quotient is exact); any operand being a Float promotes the
// result to Float.
//
// Division by zero has no dedicated error kind in spec.md §7's closed
// list, so true division (/), floor division (//) and modulo (\\) by
// zero fall through to Go's IEEE-754 float semantics (±Inf or NaN)
// rather than raising — see DESIGN.md.
func BuildNumberTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	binary := func(sig symbol.SignatureID, op func(a, b float64) float64) {
		t.Insert(sig, func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			av, aInt, ok1 := numOf(r.Value())
			r.Release()
			bv, bInt, ok2 := numOf(a[0].Value())
			releaseAll(a)
			if !ok1 || !ok2 {
				return continuation.Ready[C](values.NewError(errs.New(errs.NotANumber)))
			}
			return continuation.Ready[C](numResult(op(av, bv), aInt && bInt))
		})
	}

	binary(n.Keyword("+"), func(a, b float64) float64 { return a + b })
	binary(n.Keyword("-"), func(a, b float64) float64 { return a - b })
	binary(n.Keyword("*"), func(a, b float64) float64 { return a * b })
	t.Insert(n.Keyword("/"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		av, aInt, ok1 := numOf(r.Value())
		r.Release()
		bv, bInt, ok2 := numOf(a[0].Value())
		releaseAll(a)
		if !ok1 || !ok2 {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotANumber)))
		}
		exact := aInt && bInt && bv != 0 && math.Mod(av, bv) == 0
		return continuation.Ready[C](numResult(av/bv, exact))
	})
	t.Insert(n.Keyword("//"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		av, aInt, ok1 := numOf(r.Value())
		r.Release()
		bv, bInt, ok2 := numOf(a[0].Value())
		releaseAll(a)
		if !ok1 || !ok2 {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotANumber)))
		}
		return continuation.Ready[C](numResult(math.Floor(av/bv), aInt && bInt && bv != 0))
	})
	t.Insert(n.Keyword("\\\\"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		av, aInt, ok1 := numOf(r.Value())
		r.Release()
		bv, bInt, ok2 := numOf(a[0].Value())
		releaseAll(a)
		if !ok1 || !ok2 {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotANumber)))
		}
		mod := av - math.Floor(av/bv)*bv
		return continuation.Ready[C](numResult(mod, aInt && bInt && bv != 0))
	})

	cmp := func(sig symbol.SignatureID, op func(a, b float64) bool) {
		t.Insert(sig, func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			av, _, ok1 := numOf(r.Value())
			r.Release()
			bv, _, ok2 := numOf(a[0].Value())
			releaseAll(a)
			if !ok1 || !ok2 {
				return continuation.Ready[C](values.NewError(errs.New(errs.NotANumber)))
			}
			return continuation.Ready[C](values.NewBool(op(av, bv)))
		})
	}
	cmp(n.Keyword("<"), func(a, b float64) bool { return a < b })
	cmp(n.Keyword(">"), func(a, b float64) bool { return a > b })
	cmp(n.Keyword("<="), func(a, b float64) bool { return a <= b })
	cmp(n.Keyword(">="), func(a, b float64) bool { return a >= b })

	unary := func(name string, op func(a float64) float64, keepInt func(wasInt bool) bool) {
		t.Insert(n.Unary(name), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			av, wasInt, ok := numOf(r.Value())
			r.Release()
			releaseAll(a)
			if !ok {
				return continuation.Ready[C](values.NewError(errs.New(errs.NotANumber)))
			}
			return continuation.Ready[C](numResult(op(av), keepInt(wasInt)))
		})
	}

	alwaysInt := func(bool) bool { return true }
	sameAsInput := func(wasInt bool) bool { return wasInt }
	alwaysFloat := func(bool) bool { return false }

	unary("abs", math.Abs, sameAsInput)
	unary("floor", math.Floor, alwaysInt)
	unary("ceiling", math.Ceil, alwaysInt)
	unary("rounded", math.Round, alwaysInt)
	unary("sqrt", math.Sqrt, alwaysFloat)
	unary("negated", func(a float64) float64 { return -a }, sameAsInput)
	unary("reciprocal", func(a float64) float64 { return 1 / a }, alwaysFloat)
	unary("squared", func(a float64) float64 { return a * a }, sameAsInput)
	unary("sign", func(a float64) float64 {
		switch {
		case a > 0:
			return 1
		case a < 0:
			return -1
		default:
			return 0
		}
	}, alwaysInt)

	return t
}
