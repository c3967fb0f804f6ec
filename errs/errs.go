// Package errs defines the closed set of error values the core can
// produce. Errors are ordinary values, never Go panics: a continuation
// that fails evaluates to an Error value and propagation happens by
// the same combinators that propagate any other value.
package errs

import (
	"fmt"

	"github.com/wudi/heyrt/symbol"
)

// Kind enumerates every error the core can raise, matching spec.md §7
// exactly — no kind may be added without a corresponding row there.
type Kind int

const (
	MessageNotSupported Kind = iota
	WrongNumberOfArguments
	NotAReference
	NotABoolean
	NotAnInteger
	NotAFloat
	NotANumber
	NotAString
	NotACharacter
	NotASelector
	NotAnArray
	NotAnError
	NotAMessage
	UnexpectedClass
	UnexpectedSelector
	IsNil
	ExpectedBlockType
	Busy
	AlreadySentValue
	NotImplemented
	InvalidRadixNumber
	InvalidIntegerNumber
	InvalidFloatingPointNumber
	RuntimeDropped
)

var kindNames = map[Kind]string{
	MessageNotSupported:        "MessageNotSupported",
	WrongNumberOfArguments:     "WrongNumberOfArguments",
	NotAReference:              "NotAReference",
	NotABoolean:                "NotABoolean",
	NotAnInteger:               "NotAnInteger",
	NotAFloat:                  "NotAFloat",
	NotANumber:                 "NotANumber",
	NotAString:                 "NotAString",
	NotACharacter:              "NotACharacter",
	NotASelector:               "NotASelector",
	NotAnArray:                 "NotAnArray",
	NotAnError:                 "NotAnError",
	NotAMessage:                "NotAMessage",
	UnexpectedClass:            "UnexpectedClass",
	UnexpectedSelector:         "UnexpectedSelector",
	IsNil:                      "IsNil",
	ExpectedBlockType:          "ExpectedBlockType",
	Busy:                       "Busy",
	AlreadySentValue:           "AlreadySentValue",
	NotImplemented:             "NotImplemented",
	InvalidRadixNumber:         "InvalidRadixNumber",
	InvalidIntegerNumber:       "InvalidIntegerNumber",
	InvalidFloatingPointNumber: "InvalidFloatingPointNumber",
	RuntimeDropped:             "RuntimeDropped",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a runtime error value. Detail carries kind-specific context
// (a selector id, an offending literal's text, a class id) formatted
// lazily by Error() rather than baked into a message string up front,
// so handlers that only care about Kind never pay for formatting.
type Error struct {
	Kind   Kind
	Detail any
}

// New constructs an Error of the given kind with no detail.
func New(kind Kind) *Error { return &Error{Kind: kind} }

// Newf constructs an Error of the given kind carrying detail.
func Newf(kind Kind, detail any) *Error { return &Error{Kind: kind, Detail: detail} }

// MessageNotSupportedFor builds the specific error §4.3's not-supported
// fallback and §4.6 step 1 return when no handler exists for sig.
func MessageNotSupportedFor(sig symbol.SignatureID) *Error {
	return Newf(MessageNotSupported, sig)
}

// UnexpectedSelectorFor builds the error a selector-based converter
// raises on an unrecognised selector id.
func UnexpectedSelectorFor(sig symbol.SignatureID) *Error {
	return Newf(UnexpectedSelector, sig)
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil error>"
	}
	if e.Detail == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Detail)
}

// Is reports whether e carries the given kind, supporting
// errors.Is(err, errs.New(errs.IsNil)) style checks.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
