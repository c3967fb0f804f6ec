// Package later implements the Later class: a value that is produced
// elsewhere and observed by blocking the sender's continuation until
// setValue: supplies it, standing in for spec.md's asynchronous-result
// extension point the way package block stands in for the evaluator's
// block value — a reserved built-in class outside classruntime.Registry,
// since its data (a cached value plus the wakers of whoever is waiting
// on it) cannot be represented as ordinary instance-variable cells.
//
// Grounded on _examples/original_source/flotalk/src/standard_classes/
// later_class.rs's TalkLater: a Later starts empty, any number of
// concurrent value sends suspend until setValue: arrives, and a second
// setValue: is rejected rather than silently accepted (spec.md §7's
// AlreadySentValue, §9's open question resolved by the reference
// implementation returning an error on the second call rather than
// dropping it, not by silently dropping the later write).
package later

import (
	"sync"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/values"
)

// Later is the data held per instance: the delivered value (nil until
// set), whether setValue: has already been called once, and the
// wakers of every continuation currently suspended in a value send.
type Later[C any] struct {
	mu      sync.Mutex
	value   *values.Value
	sent    bool
	waiters []*continuation.Waker
}

// New constructs an empty, unset Later.
func New[C any]() *Later[C] {
	return &Later[C]{}
}

// trySetValue stores v as the delivered value if this is the first
// call, waking every waiter currently suspended in a value send, or
// reports AlreadySentValue-worthy failure if a value was already sent.
func (l *Later[C]) trySetValue(v values.Value) (ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sent {
		return false
	}
	l.sent = true
	l.value = &v
	waiters := l.waiters
	l.waiters = nil
	for _, w := range waiters {
		w.Wake()
	}
	return true
}

// peek reports the delivered value if one has been sent, registering
// w to be woken on delivery otherwise.
func (l *Later[C]) peek(w *continuation.Waker) (values.Value, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.value != nil {
		return *l.value, true
	}
	if w != nil {
		l.waiters = append(l.waiters, w)
	}
	return values.Nil, false
}

// Release runs releaseValue against the held value, if any — the
// release hook a heap.Allocator[*Later[C]] calls when an instance's
// refcount reaches zero.
func (l *Later[C]) Release(releaseValue func(values.Value)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.value != nil {
		releaseValue(*l.value)
		l.value = nil
	}
}
