package inverted

import (
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/dispatch"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

const (
	invertedFromKeyword = "invertedFrom:"
	handledMarkerText   = "__inverted_handled__"
	unhandledText       = "__inverted_unhandled__"
)

// Unhandled is the sentinel an inverted handler returns to mean "I did
// not handle this message"; it does not mark the chain as received
// (spec.md §4.6 step 7, glossary "Unhandled / handled:").
func Unhandled(n *symbol.Interner) values.Value {
	return values.NewSymbol(n.Symbol(unhandledText))
}

func isUnhandled(n *symbol.Interner, v values.Value) bool {
	sym, ok := v.AsSymbol()
	return ok && n.SymbolText(sym) == unhandledText
}

// Handled wraps v so that an inverted handler returning it immediately
// short-circuits the dispatch chain with v as the aggregate result,
// per spec.md §4.6 step 7's "handled: v" sentinel. There is no
// dedicated Kind for this (spec.md §3's union is closed), so it is
// represented as a tagged two-element Array the chain driver
// recognises and unwraps before it ever becomes user-visible.
func Handled(n *symbol.Interner, v values.Value) values.Value {
	return values.NewArray([]values.Value{values.NewSymbol(n.Symbol(handledMarkerText)), v})
}

func unwrapHandled(n *symbol.Interner, v values.Value) (values.Value, bool) {
	arr, ok := v.AsArray()
	if !ok || len(arr.Elements) != 2 {
		return values.Nil, false
	}
	marker, ok := arr.Elements[0].AsSymbol()
	if !ok || n.SymbolText(marker) != handledMarkerText {
		return values.Nil, false
	}
	return arr.Elements[1], true
}

// appendInvertedFrom builds the keyword selector spec.md §4.6 step 3
// describes: sig's own parts plus one more "invertedFrom:" keyword
// carrying the sender reference.
func appendInvertedFrom(n *symbol.Interner, sig symbol.SignatureID) symbol.SignatureID {
	base, ok := n.Lookup(sig)
	if !ok {
		return n.Keyword(invertedFromKeyword)
	}
	parts := make([]string, 0, len(base.Parts)+1)
	for _, id := range base.Parts {
		parts = append(parts, n.SymbolText(id))
	}
	parts = append(parts, invertedFromKeyword)
	return n.Keyword(parts...)
}

// SendC implements spec.md §4.6's inverted-send algorithm for context
// type C: resolve targets, reject with MessageNotSupported if none are
// declared for sig, silently drop if none resolve, send directly if
// exactly one, else invoke the priority-ordered, deduplicated chain
// sequentially, honouring Unreceived/Always and the handled:
// short-circuit. d performs the actual delivery to each resolved
// target. sender must be a Reference; sig and args describe the
// message being inverted (not yet carrying invertedFrom:, which SendC
// appends itself).
func SendC[C any](r *Registry, ctx *C, d dispatch.Dispatcher[C], sender values.Value, sig symbol.SignatureID, args []values.Value, local []LocalTarget) continuation.Continuation[C] {
	owner := d.Owner(ctx)
	n := d.Interner()

	senderRef, ok := sender.AsReference()
	if !ok {
		owner.ReleaseValue(sender)
		for _, a := range args {
			owner.ReleaseValue(a)
		}
		return continuation.Ready[C](values.NewError(errs.New(errs.NotAReference)))
	}

	targets, declared := r.gatherTargets(senderRef, sig, local)
	if !declared {
		owner.ReleaseValue(sender)
		for _, a := range args {
			owner.ReleaseValue(a)
		}
		return continuation.Ready[C](values.NewError(errs.MessageNotSupportedFor(sig)))
	}

	invertedSig := appendInvertedFrom(n, sig)
	fullArgs := make([]values.Value, len(args)+1)
	copy(fullArgs, args)
	fullArgs[len(args)] = sender
	msg := values.NewMessage(invertedSig, fullArgs)

	if len(targets) == 0 {
		owner.ReleaseValue(msg)
		return continuation.Ready[C](values.Nil)
	}

	if len(targets) == 1 {
		return sendOne[C](owner, d, ctx, targets[0].target, msg)
	}

	return invokeChain[C](n, owner, d, ctx, targets, msg, 0, false, values.Nil)
}

func sendOne[C any](owner values.Owner, d dispatch.Dispatcher[C], ctx *C, target values.Reference, msg values.Value) continuation.Continuation[C] {
	m, _ := msg.AsMessage()
	targetVal := owner.CloneValue(values.NewReference(target.ClassID, target.Handle))
	sig, args := m.Sig, cloneArgs(owner, m.Args)
	owner.ReleaseValue(msg)
	return d.Send(ctx, targetVal, sig, args)
}

func cloneArgs(owner values.Owner, args []values.Value) []values.Value {
	out := make([]values.Value, len(args))
	for i, a := range args {
		out[i] = owner.CloneValue(a)
	}
	return out
}

// invokeChain drives spec.md §4.6 step 7: targets are already ordered
// highest-priority first. Each send completes (Ready) before the next
// begins (spec.md §5 "Inverted messages to multiple targets run
// strictly sequentially").
func invokeChain[C any](n *symbol.Interner, owner values.Owner, d dispatch.Dispatcher[C], ctx *C, targets []subscription, msg values.Value, idx int, received bool, aggregate values.Value) continuation.Continuation[C] {
	if idx >= len(targets) {
		owner.ReleaseValue(msg)
		return continuation.Ready[C](aggregate)
	}

	t := targets[idx]
	if t.when == Unreceived && received {
		return invokeChain[C](n, owner, d, ctx, targets, msg, idx+1, received, aggregate)
	}

	m, _ := msg.AsMessage()
	targetVal := owner.CloneValue(values.NewReference(t.target.ClassID, t.target.Handle))
	send := d.Send(ctx, targetVal, m.Sig, cloneArgs(owner, m.Args))

	return continuation.AndThen[C](send, func(v values.Value) continuation.Continuation[C] {
		if final, ok := unwrapHandled(n, v); ok {
			owner.ReleaseValue(msg)
			return continuation.Ready[C](final)
		}
		if isUnhandled(n, v) {
			owner.ReleaseValue(v)
			return invokeChain[C](n, owner, d, ctx, targets, msg, idx+1, received, aggregate)
		}
		if received {
			// Already have an aggregate; this target's own answer is
			// discarded but still ran, per step 7.
			owner.ReleaseValue(v)
			return invokeChain[C](n, owner, d, ctx, targets, msg, idx+1, received, aggregate)
		}
		return invokeChain[C](n, owner, d, ctx, targets, msg, idx+1, true, v)
	})
}
