package dispatch

import (
	"strings"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildStringTable constructs the String protocol of spec.md §4.5:
// size, concatenation, indexing, case conversion, and substring tests.
// Strings are immutable Go strings; every operation answers a new
// String value rather than mutating in place.
func BuildStringTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	asString := func(v values.Value) (string, *values.Value) {
		s, ok := v.AsString()
		if !ok {
			errv := values.NewError(errs.New(errs.NotAString))
			return "", &errv
		}
		return s, nil
	}

	t.Insert(n.Unary("size"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewInt(int64(len([]rune(s)))))
	})

	t.Insert(n.Unary("isEmpty"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewBool(len(s) == 0))
	})

	t.Insert(n.Unary("asUppercase"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewString(strings.ToUpper(s)))
	})

	t.Insert(n.Unary("asLowercase"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewString(strings.ToLower(s)))
	})

	t.Insert(n.Unary("reversed"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return continuation.Ready[C](values.NewString(string(runes)))
	})

	t.Insert(n.Keyword(","), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		other, errv := asString(a[0].Value())
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewString(s + other))
	})

	t.Insert(n.Keyword("at:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		idx, ok := a[0].Value().AsInt()
		releaseAll(a)
		if !ok {
			return continuation.Ready[C](values.NewError(errs.New(errs.NotAnInteger)))
		}
		runes := []rune(s)
		if idx < 1 || int(idx) > len(runes) {
			return continuation.Ready[C](values.NewError(errs.New(errs.UnexpectedClass)))
		}
		return continuation.Ready[C](values.NewChar(runes[idx-1]))
	})

	t.Insert(n.Keyword("includesSubstring:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		needle, errv := asString(a[0].Value())
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewBool(strings.Contains(s, needle)))
	})

	t.Insert(n.Keyword("startsWith:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		prefix, errv := asString(a[0].Value())
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewBool(strings.HasPrefix(s, prefix)))
	})

	t.Insert(n.Keyword("endsWith:"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		if errv != nil {
			releaseAll(a)
			return continuation.Ready[C](*errv)
		}
		suffix, errv := asString(a[0].Value())
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewBool(strings.HasSuffix(s, suffix)))
	})

	t.Insert(n.Unary("asSymbol"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		s, errv := asString(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewSymbol(n.Symbol(s)))
	})

	return t
}
