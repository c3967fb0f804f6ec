package dispatch

import (
	"unicode"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// BuildCharTable constructs the Character protocol of spec.md §4.5:
// classification predicates, case conversion, and conversion to/from
// its integer code point.
func BuildCharTable[C any](d Dispatcher[C], n *symbol.Interner) *Table[C] {
	t := NewTable[C]()

	asChar := func(v values.Value) (rune, *values.Value) {
		r, ok := v.AsChar()
		if !ok {
			errv := values.NewError(errs.New(errs.NotACharacter))
			return 0, &errv
		}
		return r, nil
	}

	predicate := func(name string, pred func(rune) bool) {
		t.Insert(n.Unary(name), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
			ch, errv := asChar(r.Value())
			r.Release()
			releaseAll(a)
			if errv != nil {
				return continuation.Ready[C](*errv)
			}
			return continuation.Ready[C](values.NewBool(pred(ch)))
		})
	}

	predicate("isVowel", func(r rune) bool {
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			return true
		default:
			return false
		}
	})
	predicate("isLetter", unicode.IsLetter)
	predicate("isDigit", unicode.IsDigit)
	predicate("isUppercase", unicode.IsUpper)
	predicate("isLowercase", unicode.IsLower)
	predicate("isSeparator", unicode.IsSpace)
	predicate("isPunctuation", unicode.IsPunct)

	t.Insert(n.Unary("asUppercase"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		ch, errv := asChar(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewChar(unicode.ToUpper(ch)))
	})

	t.Insert(n.Unary("asLowercase"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		ch, errv := asChar(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewChar(unicode.ToLower(ch)))
	})

	t.Insert(n.Unary("asInteger"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		ch, errv := asChar(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewInt(int64(ch)))
	})

	t.Insert(n.Unary("asString"), func(r values.Owned, a []values.Owned, ctx *C) continuation.Continuation[C] {
		ch, errv := asChar(r.Value())
		r.Release()
		releaseAll(a)
		if errv != nil {
			return continuation.Ready[C](*errv)
		}
		return continuation.Ready[C](values.NewString(string(ch)))
	})

	return t
}
