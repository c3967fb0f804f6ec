// Package symbol interns symbols and message selectors into small,
// process-global integer ids.
//
// Symbols are immortal: equality and hashing are by integer id alone.
// A selector (a unary symbol or an ordered sequence of keyword symbols)
// is likewise assigned a unique, process-global SignatureID the first
// time it is observed; the id is stable for the lifetime of the
// process and knows its own arity.
package symbol

import (
	"strings"
	"sync"
)

// ID is the interned identity of a single identifier (e.g. "foo" or
// "with:"). Symbol equality/hashing is by ID alone.
type ID int32

// SignatureID is the interned identity of a complete message selector:
// either a single unary symbol or an ordered sequence of keyword
// symbols. SignatureIDs are global and immortal, like symbols.
type SignatureID int32

// Signature describes the shape behind a SignatureID: its constituent
// symbol ids, in order, and its arity (0 for a unary selector, N for N
// keyword parts).
type Signature struct {
	Parts []ID
	Arity int
}

// Interner assigns stable small integers to identifiers and selectors.
// The zero value is not usable; construct with New.
type Interner struct {
	mu sync.RWMutex

	bySymbolText map[string]ID
	symbolText   []string

	bySigKey  map[string]SignatureID
	sigByID   []Signature
	sigText   []string // canonical textual form, for diagnostics
}

// New returns an empty Interner.
func New() *Interner {
	return &Interner{
		bySymbolText: make(map[string]ID),
		bySigKey:     make(map[string]SignatureID),
	}
}

// global is the process-global interner every call to SymbolOf /
// SignatureOf without an explicit Interner uses. Signature ids must be
// process-global and immortal per spec, so a single shared instance
// backs the package-level helpers.
var global = New()

// Global returns the process-wide interner.
func Global() *Interner { return global }

// Symbol interns text as a symbol, returning its stable id.
func (n *Interner) Symbol(text string) ID {
	n.mu.RLock()
	if id, ok := n.bySymbolText[text]; ok {
		n.mu.RUnlock()
		return id
	}
	n.mu.RUnlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	if id, ok := n.bySymbolText[text]; ok {
		return id
	}
	id := ID(len(n.symbolText))
	n.symbolText = append(n.symbolText, text)
	n.bySymbolText[text] = id
	return id
}

// SymbolText returns the text an id was interned from. Panics if the id
// is unknown to this interner — that is always a programming error,
// never a runtime condition a script can trigger.
func (n *Interner) SymbolText(id ID) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(n.symbolText) {
		panic("symbol: unknown id")
	}
	return n.symbolText[id]
}

// Unary interns a zero-argument selector, e.g. "yourself".
func (n *Interner) Unary(name string) SignatureID {
	return n.signatureOf([]string{name}, false)
}

// Keyword interns an N-argument selector from its ordered keyword
// parts, e.g. []string{"with:", "with:"} for `with:with:`.
func (n *Interner) Keyword(parts ...string) SignatureID {
	return n.signatureOf(parts, true)
}

func (n *Interner) signatureOf(parts []string, keyword bool) SignatureID {
	key := signatureKey(parts, keyword)

	n.mu.RLock()
	if id, ok := n.bySigKey[key]; ok {
		n.mu.RUnlock()
		return id
	}
	n.mu.RUnlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	if id, ok := n.bySigKey[key]; ok {
		return id
	}

	ids := make([]ID, len(parts))
	for i, p := range parts {
		if id, ok := n.bySymbolText[p]; ok {
			ids[i] = id
		} else {
			id := ID(len(n.symbolText))
			n.symbolText = append(n.symbolText, p)
			n.bySymbolText[p] = id
			ids[i] = id
		}
	}

	arity := 0
	if keyword {
		arity = len(parts)
	}

	id := SignatureID(len(n.sigByID))
	n.sigByID = append(n.sigByID, Signature{Parts: ids, Arity: arity})
	n.sigText = append(n.sigText, key)
	n.bySigKey[key] = id
	return id
}

// Lookup returns the Signature a SignatureID was interned with.
func (n *Interner) Lookup(id SignatureID) (Signature, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(n.sigByID) {
		return Signature{}, false
	}
	return n.sigByID[id], true
}

// Text returns the canonical textual form of a selector, e.g.
// "with:with:" or "yourself", for diagnostics and error messages.
func (n *Interner) Text(id SignatureID) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(n.sigText) {
		return "<unknown selector>"
	}
	return n.sigText[id]
}

// Arity returns the number of arguments a selector expects.
func (n *Interner) Arity(id SignatureID) int {
	sig, ok := n.Lookup(id)
	if !ok {
		return 0
	}
	return sig.Arity
}

func signatureKey(parts []string, keyword bool) string {
	if !keyword {
		return "u:" + parts[0]
	}
	return "k:" + strings.Join(parts, "")
}

// Package-level convenience wrappers over the global interner.

// SymbolOf interns text against the global interner.
func SymbolOf(text string) ID { return global.Symbol(text) }

// UnaryOf interns a unary selector against the global interner.
func UnaryOf(name string) SignatureID { return global.Unary(name) }

// KeywordOf interns a keyword selector against the global interner.
func KeywordOf(parts ...string) SignatureID { return global.Keyword(parts...) }
