// Package queue implements spec.md §4.10's fair reader/writer queue:
// a FIFO-fair async RW lock used to serialise every poll of a context
// behind single-writer semantics while still letting concurrent
// readers batch together.
//
// Grounded on the same shape wudi-hey/vm/vm.go protects its shared
// VirtualMachine state with (a sync.Mutex guarding a mutable struct),
// generalized from an unfair exclusive mutex to a fair batched
// reader/writer queue, combined with the "assign a monotonic position,
// serve in that order" fairness reasoning the modular event bus's
// publish-rotation comment block documents for a different purpose
// (round-robin delivery order) — here applied to lock admission order
// instead.
package queue

import (
	"container/list"
	"sync"
)

// Kind distinguishes a read ticket from a write ticket.
type Kind int

const (
	Read Kind = iota
	Write
)

// batch is either a read batch (one or more read tickets sharing the
// holder slot at once) or a solo write ticket, matching spec.md
// §4.10's "current-holder slot" and "FIFO queue of pending waiters"
// structure.
type batch struct {
	kind    Kind
	tickets []*Ticket
}

func removeTicket(tickets []*Ticket, t *Ticket) []*Ticket {
	for i, ti := range tickets {
		if ti == t {
			return append(tickets[:i], tickets[i+1:]...)
		}
	}
	return tickets
}

// FairMutex is spec.md §4.10's fair reader/writer queue: a current
// holder (idle, a read batch, or a solo write ticket) plus a FIFO
// queue of pending waiter batches.
type FairMutex struct {
	mu      sync.Mutex
	holder  *batch
	waiting *list.List // of *batch
}

// New constructs an idle FairMutex.
func New() *FairMutex {
	return &FairMutex{waiting: list.New()}
}

// Ticket is one granted-or-pending hold on a FairMutex. It must be
// released exactly once, whether or not it was ever observed granted.
type Ticket struct {
	owner *FairMutex
	kind  Kind
	batch *batch

	granted bool
	waker   Waker
}

// Waker is the narrow notify-on-progress capability a suspended
// acquire registers; continuation.Waker satisfies this without this
// package importing continuation, keeping queue usable standalone.
type Waker interface {
	Wake()
}

// Kind reports whether t is a read or write ticket.
func (t *Ticket) Kind() Kind { return t.kind }

// Granted reports whether t currently holds the mutex, without
// registering a waker.
func (t *Ticket) Granted() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.granted
}

// Poll reports whether t has been granted the mutex yet. If not, w is
// stored and woken once t becomes the holder — mirroring
// continuation.PollFunc's Ready/Pending contract so a Later step can
// wrap it directly. A nil waker is valid for synchronous polling.
func (t *Ticket) Poll(w Waker) bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.granted {
		return true
	}
	t.waker = w
	return false
}

// Release relinquishes t's hold (pending or granted). Releasing an
// already-released ticket is a no-op. If t was the last reader in its
// batch, or a write ticket, the front of the waiting queue (if any)
// becomes the new holder and every one of its tickets' registered
// wakers fires.
func (t *Ticket) Release() {
	t.owner.release(t)
}

func (m *FairMutex) release(t *Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := t.batch
	if b == nil {
		return
	}
	t.batch = nil
	b.tickets = removeTicket(b.tickets, t)
	if len(b.tickets) > 0 {
		return
	}
	if m.holder != b {
		// t was still queued, never promoted; nothing further to do.
		return
	}
	m.holder = nil
	m.promoteFront()
}

// promoteFront pops the next waiting batch, if any, and grants every
// ticket in it, waking each registered waker. Must be called with
// m.mu held and m.holder == nil.
func (m *FairMutex) promoteFront() {
	front := m.waiting.Front()
	if front == nil {
		return
	}
	m.waiting.Remove(front)
	nb := front.Value.(*batch)
	m.holder = nb
	for _, pt := range nb.tickets {
		pt.granted = true
		if pt.waker != nil {
			pt.waker.Wake()
			pt.waker = nil
		}
	}
}

// newTicket implements spec.md §4.10's admission rules: idle grants
// immediately; a read request joins the current read-batch holder only
// when the waiting queue is empty (so a queued writer is never leapt
// over by a later reader); otherwise the request joins the tail of the
// waiting queue if it is a read batch and the request is itself a
// read, else it starts a new tail entry.
func (m *FairMutex) newTicket(kind Kind) *Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &Ticket{owner: m, kind: kind}

	switch {
	case m.holder == nil:
		b := &batch{kind: kind, tickets: []*Ticket{t}}
		m.holder = b
		t.batch = b
		t.granted = true

	case m.holder.kind == Read && kind == Read && m.waiting.Len() == 0:
		m.holder.tickets = append(m.holder.tickets, t)
		t.batch = m.holder
		t.granted = true

	default:
		if back := m.waiting.Back(); back != nil {
			tail := back.Value.(*batch)
			if tail.kind == Read && kind == Read {
				tail.tickets = append(tail.tickets, t)
				t.batch = tail
				return t
			}
		}
		b := &batch{kind: kind, tickets: []*Ticket{t}}
		m.waiting.PushBack(b)
		t.batch = b
	}

	return t
}

// AcquireRead requests a read ticket, joining the active read batch or
// queuing behind pending work per the admission rules above.
func (m *FairMutex) AcquireRead() *Ticket { return m.newTicket(Read) }

// AcquireWrite requests a write ticket.
func (m *FairMutex) AcquireWrite() *Ticket { return m.newTicket(Write) }

// TryAcquireRead is the "try_lock fast path" spec.md §4.7 describes:
// it grants immediately if the mutex is idle or already read-held with
// nothing queued, and otherwise returns (nil, false) without enqueuing
// anything — the caller falls back to AcquireRead to queue properly.
func (m *FairMutex) TryAcquireRead() (*Ticket, bool) {
	m.mu.Lock()
	idleOrJoinable := m.holder == nil || (m.holder.kind == Read && m.waiting.Len() == 0)
	m.mu.Unlock()
	if !idleOrJoinable {
		return nil, false
	}
	t := m.newTicket(Read)
	if !t.Granted() {
		t.Release()
		return nil, false
	}
	return t, true
}

// TryAcquireWrite is TryAcquireRead's write counterpart: it only
// succeeds when the mutex is completely idle.
func (m *FairMutex) TryAcquireWrite() (*Ticket, bool) {
	m.mu.Lock()
	idle := m.holder == nil
	m.mu.Unlock()
	if !idle {
		return nil, false
	}
	t := m.newTicket(Write)
	if !t.Granted() {
		t.Release()
		return nil, false
	}
	return t, true
}
