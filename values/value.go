// Package values implements the core's tagged value type (spec.md §3)
// and the scoped-ownership wrapper used to pass receivers and
// arguments through dispatch without leaking references on error
// paths (spec.md §4.9).
package values

import (
	"fmt"
	"math"

	"github.com/wudi/heyrt/symbol"
)

// Kind discriminates the sum type a Value holds.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindChar
	KindSymbol
	KindSelector
	KindArray
	KindMessage
	KindError
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "Nil"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindChar:
		return "Char"
	case KindSymbol:
		return "Symbol"
	case KindSelector:
		return "Selector"
	case KindArray:
		return "Array"
	case KindMessage:
		return "Message"
	case KindError:
		return "Error"
	case KindReference:
		return "Reference"
	default:
		return "Unknown"
	}
}

// Reference identifies one instance within a context: a class id and
// an opaque handle into that class's allocator. Reference is only
// meaningful within the context that created it (spec.md §3).
type Reference struct {
	ClassID int32
	Handle  int32
}

// Message is a first-class message value: a selector plus its
// arguments, if any (spec.md §3 "Messages").
type Message struct {
	Sig  symbol.SignatureID
	Args []Value
}

// Array is the backing store for an Array value: an ordered sequence
// of values. Arrays own their elements; cloning/releasing an Array
// clones/releases every element (only References among them actually
// carry a refcount).
type Array struct {
	Elements []Value
}

// RuntimeError is the interface Error values satisfy. It is declared
// here (rather than importing package errs directly) so values has no
// dependency on the error-kind enumeration's own dependencies
// (go.uber.org/multierr); errs.Error satisfies it.
type RuntimeError interface {
	error
	Is(error) bool
}

// Value is the uniform representation of every runtime datum: nil,
// booleans, integers, floats, strings, characters, symbols, selectors,
// arrays, messages, errors and references (spec.md §3).
//
// Only String, Array, Message and Reference own heap resources; every
// other Kind is a pure value and may be freely copied.
type Value struct {
	kind Kind

	i    int64
	f    float64
	b    bool
	s    string
	ref  Reference
	data any // *Array, *Message, RuntimeError
}

// Nil is the singleton nil value.
var Nil = Value{kind: KindNil}

// NewBool constructs a Bool value.
func NewBool(b bool) Value { return Value{kind: KindBool, b: b} }

// NewInt constructs an Int value.
func NewInt(i int64) Value { return Value{kind: KindInt, i: i} }

// NewFloat constructs a Float value.
func NewFloat(f float64) Value { return Value{kind: KindFloat, f: f} }

// NewString constructs a String value from a shared immutable Go
// string; no refcounting is required at the value level (spec.md §3
// ownership summary).
func NewString(s string) Value { return Value{kind: KindString, s: s} }

// NewChar constructs a Char value from a single rune.
func NewChar(r rune) Value { return Value{kind: KindChar, i: int64(r)} }

// NewSymbol constructs a Symbol value from an interned symbol id.
func NewSymbol(id symbol.ID) Value { return Value{kind: KindSymbol, i: int64(id)} }

// NewSelector constructs a Selector value from an interned signature id.
func NewSelector(id symbol.SignatureID) Value { return Value{kind: KindSelector, i: int64(id)} }

// NewArray constructs an Array value over the given elements. The
// slice is taken by reference, not copied; callers must not mutate it
// through another alias afterwards.
func NewArray(elems []Value) Value {
	return Value{kind: KindArray, data: &Array{Elements: elems}}
}

// NewMessage constructs a Message value.
func NewMessage(sig symbol.SignatureID, args []Value) Value {
	return Value{kind: KindMessage, data: &Message{Sig: sig, Args: args}}
}

// NewError constructs an Error value.
func NewError(err RuntimeError) Value {
	return Value{kind: KindError, data: err}
}

// NewReference constructs a Reference value.
func NewReference(classID, handle int32) Value {
	return Value{kind: KindReference, ref: Reference{ClassID: classID, Handle: handle}}
}

// Kind reports which alternative of the sum type v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the Nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns v's boolean payload and whether v was a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns v's integer payload and whether v was an Int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns v's float payload and whether v was a Float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns v's string payload and whether v was a String.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsChar returns v's rune payload and whether v was a Char.
func (v Value) AsChar() (rune, bool) { return rune(v.i), v.kind == KindChar }

// AsSymbol returns v's symbol id and whether v was a Symbol.
func (v Value) AsSymbol() (symbol.ID, bool) { return symbol.ID(v.i), v.kind == KindSymbol }

// AsSelector returns v's signature id and whether v was a Selector.
func (v Value) AsSelector() (symbol.SignatureID, bool) {
	return symbol.SignatureID(v.i), v.kind == KindSelector
}

// AsArray returns v's backing Array and whether v was an Array.
func (v Value) AsArray() (*Array, bool) {
	a, ok := v.data.(*Array)
	return a, ok && v.kind == KindArray
}

// AsMessage returns v's backing Message and whether v was a Message.
func (v Value) AsMessage() (*Message, bool) {
	m, ok := v.data.(*Message)
	return m, ok && v.kind == KindMessage
}

// AsError returns v's error payload and whether v was an Error.
func (v Value) AsError() (RuntimeError, bool) {
	e, ok := v.data.(RuntimeError)
	return e, ok && v.kind == KindError
}

// AsReference returns v's Reference payload and whether v was a
// Reference.
func (v Value) AsReference() (Reference, bool) { return v.ref, v.kind == KindReference }

// IsError reports whether v is an Error value; continuation
// combinators use this to short-circuit (spec.md §4.2 "and_then_if_ok").
func (v Value) IsError() bool { return v.kind == KindError }

// Equal implements spec.md §3's structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindChar:
		return v.i == other.i
	case KindSymbol, KindSelector:
		return v.i == other.i
	case KindReference:
		return v.ref == other.ref
	case KindArray:
		a, _ := v.AsArray()
		b, _ := other.AsArray()
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !a.Elements[i].Equal(b.Elements[i]) {
				return false
			}
		}
		return true
	case KindMessage:
		a, _ := v.AsMessage()
		b, _ := other.AsMessage()
		if a.Sig != b.Sig || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !a.Args[i].Equal(b.Args[i]) {
				return false
			}
		}
		return true
	case KindError:
		ea, _ := v.AsError()
		eb, _ := other.AsError()
		return ea.Is(eb)
	default:
		return false
	}
}

// Hash is consistent with Equal; Float hashes by bit pattern per
// spec.md §3.
func (v Value) Hash() uint64 {
	const prime = 1099511628211
	mix := func(h uint64, x uint64) uint64 { return (h ^ x) * prime }

	h := uint64(14695981039346656037) ^ uint64(v.kind)
	switch v.kind {
	case KindNil:
		return h
	case KindBool:
		if v.b {
			return mix(h, 1)
		}
		return mix(h, 0)
	case KindInt, KindChar, KindSymbol, KindSelector:
		return mix(h, uint64(v.i))
	case KindFloat:
		return mix(h, math.Float64bits(v.f))
	case KindString:
		for _, b := range []byte(v.s) {
			h = mix(h, uint64(b))
		}
		return h
	case KindReference:
		return mix(mix(h, uint64(v.ref.ClassID)), uint64(v.ref.Handle))
	case KindArray:
		a, _ := v.AsArray()
		for _, e := range a.Elements {
			h = mix(h, e.Hash())
		}
		return h
	case KindMessage:
		m, _ := v.AsMessage()
		h = mix(h, uint64(m.Sig))
		for _, a := range m.Args {
			h = mix(h, a.Hash())
		}
		return h
	case KindError:
		e, _ := v.AsError()
		for _, b := range []byte(e.Error()) {
			h = mix(h, uint64(b))
		}
		return h
	default:
		return h
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindChar:
		return string(rune(v.i))
	case KindSymbol:
		return fmt.Sprintf("#%d", v.i)
	case KindSelector:
		return fmt.Sprintf("@%d", v.i)
	case KindArray:
		a, _ := v.AsArray()
		return fmt.Sprintf("Array(%d)", len(a.Elements))
	case KindMessage:
		m, _ := v.AsMessage()
		return fmt.Sprintf("Message(sig=%d, args=%d)", m.Sig, len(m.Args))
	case KindError:
		e, _ := v.AsError()
		return e.Error()
	case KindReference:
		return fmt.Sprintf("Reference(class=%d, handle=%d)", v.ref.ClassID, v.ref.Handle)
	default:
		return "<unknown>"
	}
}

// HoldsHeapResource reports whether v is one of the kinds spec.md §3
// says owns heap resources (String, Array, Message, Reference). Arrays
// and Messages are refcount-free themselves but may transitively
// contain References that do need retain/release.
func (v Value) HoldsHeapResource() bool {
	switch v.kind {
	case KindString, KindArray, KindMessage, KindReference:
		return true
	default:
		return false
	}
}
