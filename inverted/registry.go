// Package inverted implements spec.md §4.6's inverted (publish/
// subscribe) dispatch: instances of a selector's responder classes
// subscribe to receive messages directed at some other object instead
// of being sent to directly.
//
// Conceptually this is a message bus keyed by selector id and filtered
// by responder class — the closest concrete shape in the reference
// pack is a topic-matching in-memory event bus, generalized here from
// string topics to (selector id, responder class id) pairs and from
// FIFO delivery to priority-ordered delivery with fold/short-circuit
// semantics the event bus has no equivalent of.
package inverted

import (
	"sort"
	"sync"

	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// When controls whether a subscription keeps receiving a message that
// a higher-priority target already marked received.
type When int

const (
	// Unreceived targets are skipped once some prior target in the
	// chain has produced a non-unhandled result.
	Unreceived When = iota
	// Always targets run regardless of whether the message was
	// already received by a prior target.
	Always
)

func (w When) fold(other When) When {
	if w == Always || other == Always {
		return Always
	}
	return Unreceived
}

// sourceKey identifies one (class, instance) pair a subscription can
// be scoped to.
type sourceKey struct {
	classID int32
	handle  int32
}

// subscription is one responder's registered interest: the reference
// that should receive the inverted message, the priority it was
// registered at (higher wins), and its fold behaviour.
type subscription struct {
	target   values.Reference
	priority int64
	when     When
}

// Registry holds every inverted subscription live in one context.
type Registry struct {
	mu sync.Mutex

	n *symbol.Interner

	// responderClasses maps a selector id to the set of class ids that
	// declared it as an inverted selector (spec.md §4.6 "a mapping from
	// selector id to the set of responder classes").
	responderClasses map[symbol.SignatureID]map[int32]struct{}

	// receiveAll holds, per responder class id, the subscriptions that
	// elected to receive every send regardless of source.
	receiveAll map[int32][]subscription

	// perSource holds, per (source class, source handle), the
	// subscriptions registered against that specific sender.
	perSource map[sourceKey][]subscription

	priorityCounter int64
}

// NewRegistry constructs an empty inverted-dispatch registry.
func NewRegistry(n *symbol.Interner) *Registry {
	return &Registry{
		n:                n,
		responderClasses: make(map[symbol.SignatureID]map[int32]struct{}),
		receiveAll:       make(map[int32][]subscription),
		perSource:        make(map[sourceKey][]subscription),
	}
}

// nextPriority hands out the monotonically increasing counter spec.md
// §4.6 assigns at subscription time; later subscriptions outrank
// earlier ones.
func (r *Registry) nextPriority() int64 {
	r.priorityCounter++
	return r.priorityCounter
}

// DeclareInverted registers responderClassID as a responder for sig —
// normally done once, when the class installs the instance message as
// inverted.
func (r *Registry) DeclareInverted(sig symbol.SignatureID, responderClassID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.responderClasses[sig]
	if !ok {
		set = make(map[int32]struct{})
		r.responderClasses[sig] = set
	}
	set[responderClassID] = struct{}{}
}

// responderClassesFor returns the set of class ids declared as
// responders for sig.
func (r *Registry) responderClassesFor(sig symbol.SignatureID) map[int32]struct{} {
	return r.responderClasses[sig]
}

// ReceiveFromAll subscribes target (a Reference of class
// responderClassID) to every inverted send regardless of sender,
// assigning it the next priority tick — the `receiveFrom: all`
// subscription shape of spec.md §4.6 (`with:`/`withAsync:` targets are
// LocalTarget values instead, never recorded here).
func (r *Registry) ReceiveFromAll(target values.Reference, when When) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.nextPriority()
	r.receiveAll[target.ClassID] = append(r.receiveAll[target.ClassID], subscription{
		target: target, priority: p, when: when,
	})
	return p
}

// ReceiveFrom subscribes target to inverted sends from exactly source
// — the `receiveFrom:` subscription shape of spec.md §4.6.
func (r *Registry) ReceiveFrom(target values.Reference, source values.Reference, when When) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.nextPriority()
	key := sourceKey{classID: source.ClassID, handle: source.Handle}
	r.perSource[key] = append(r.perSource[key], subscription{
		target: target, priority: p, when: when,
	})
	return p
}

// OnDrop is the drop-observer hook the owning context's allocator
// invokes whenever any reference reaches refcount zero (spec.md §5
// "Drop observers"). It removes ref from every subscription table it
// might appear in, both as a subscribed responder and as a source key,
// before any subsequent inverted send can observe a stale entry
// (testable property 9).
func (r *Registry) OnDrop(ref values.Reference) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subs, ok := r.receiveAll[ref.ClassID]; ok {
		r.receiveAll[ref.ClassID] = pruneTarget(subs, ref)
	}
	delete(r.perSource, sourceKey{classID: ref.ClassID, handle: ref.Handle})
	for key, subs := range r.perSource {
		pruned := pruneTarget(subs, ref)
		if len(pruned) == 0 {
			delete(r.perSource, key)
		} else {
			r.perSource[key] = pruned
		}
	}
}

func pruneTarget(subs []subscription, ref values.Reference) []subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.target != ref {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// gatherTargets implements spec.md §4.6 steps 1-2 and the first half
// of step 6: collect every candidate subscription for a send from
// sender carrying sig, then deduplicate by reference identity, folding
// duplicate entries' When to Always if any contributor was Always, and
// resolving a duplicate's priority to the highest priority any
// contributor was registered at.
func (r *Registry) gatherTargets(sender values.Reference, sig symbol.SignatureID, local []LocalTarget) ([]subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	responders := r.responderClassesFor(sig)
	if len(responders) == 0 {
		return nil, false
	}

	var candidates []subscription

	if subs, ok := r.perSource[sourceKey{classID: sender.ClassID, handle: sender.Handle}]; ok {
		for _, s := range subs {
			if _, ok := responders[s.target.ClassID]; ok {
				candidates = append(candidates, s)
			}
		}
	}

	for classID := range responders {
		candidates = append(candidates, r.receiveAll[classID]...)
	}

	for _, lt := range local {
		if _, ok := responders[lt.Target.ClassID]; ok {
			candidates = append(candidates, subscription{
				target: lt.Target, priority: lt.Priority, when: lt.When,
			})
		}
	}

	return dedupAndOrder(candidates), true
}

// dedupAndOrder folds duplicate-by-reference-identity entries into one
// (§4.6 step 6), then returns them ordered so index 0 is the
// highest-priority target to invoke first.
func dedupAndOrder(candidates []subscription) []subscription {
	if len(candidates) <= 1 {
		return candidates
	}

	byTarget := make(map[values.Reference]subscription, len(candidates))
	order := make([]values.Reference, 0, len(candidates))
	for _, c := range candidates {
		existing, ok := byTarget[c.target]
		if !ok {
			byTarget[c.target] = c
			order = append(order, c.target)
			continue
		}
		merged := existing
		merged.when = existing.when.fold(c.when)
		if c.priority > merged.priority {
			merged.priority = c.priority
		}
		byTarget[c.target] = merged
	}

	out := make([]subscription, len(order))
	for i, ref := range order {
		out[i] = byTarget[ref]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].priority > out[j].priority })
	return out
}

// LocalTarget is one entry of a continuation's local-context inverted
// targets (spec.md §4.6 step 2c, §9 "local context inheritance"):
// an ad hoc subscription established by an enclosing block that is
// visible only for sends made from within that continuation, not
// recorded in the Registry itself.
type LocalTarget struct {
	Target   values.Reference
	Priority int64
	When     When
}
