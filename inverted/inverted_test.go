package inverted_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/dispatch"
	"github.com/wudi/heyrt/inverted"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

type testCtx struct{}

// fakeOwner is a real refcounting Owner over a map, enough to exercise
// release-on-zero without pulling in package runtime.
type fakeOwner struct {
	refcount map[values.Reference]int
}

func newFakeOwner() *fakeOwner { return &fakeOwner{refcount: make(map[values.Reference]int)} }

func (o *fakeOwner) CloneValue(v values.Value) values.Value {
	if ref, ok := v.AsReference(); ok {
		o.refcount[ref]++
	}
	return v
}

func (o *fakeOwner) ReleaseValue(v values.Value) {
	switch v.Kind() {
	case values.KindReference:
		ref, _ := v.AsReference()
		o.refcount[ref]--
	case values.KindMessage:
		m, _ := v.AsMessage()
		for _, a := range m.Args {
			o.ReleaseValue(a)
		}
	case values.KindArray:
		a, _ := v.AsArray()
		for _, e := range a.Elements {
			o.ReleaseValue(e)
		}
	}
}

// recordingDispatcher sends every message straight to a recorder
// keyed by the target reference's Handle, so tests can assert which
// targets were invoked, in what order, and with what sentinel answers.
type recordingDispatcher struct {
	n        *symbol.Interner
	owner    *fakeOwner
	handlers map[int32]func(args []values.Value) values.Value
	calls    []int32
}

func newDispatcher() *recordingDispatcher {
	return &recordingDispatcher{
		n:        symbol.New(),
		owner:    newFakeOwner(),
		handlers: make(map[int32]func(args []values.Value) values.Value),
	}
}

func (d *recordingDispatcher) Send(ctx *testCtx, receiver values.Value, sig symbol.SignatureID, args []values.Value) continuation.Continuation[testCtx] {
	ref, _ := receiver.AsReference()
	d.calls = append(d.calls, ref.Handle)
	h := d.handlers[ref.Handle]
	d.owner.ReleaseValue(receiver)
	result := h(args)
	for _, a := range args {
		d.owner.ReleaseValue(a)
	}
	return continuation.Ready[testCtx](result)
}

func (d *recordingDispatcher) RespondsTo(ctx *testCtx, receiver values.Value, sig symbol.SignatureID) bool {
	return false
}
func (d *recordingDispatcher) Owner(ctx *testCtx) values.Owner { return d.owner }
func (d *recordingDispatcher) Interner() *symbol.Interner      { return d.n }

var _ dispatch.Dispatcher[testCtx] = (*recordingDispatcher)(nil)

func poll(t *testing.T, c continuation.Continuation[testCtx]) values.Value {
	t.Helper()
	v, ready := c.Poll(&testCtx{}, nil)
	require.True(t, ready)
	return v
}

func ref(classID, handle int32) values.Reference { return values.Reference{ClassID: classID, Handle: handle} }

func TestNoResponderClassesIsMessageNotSupported(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, d.n.Unary("ping"), nil, nil))
	e, ok := got.AsError()
	require.True(t, ok)
	require.True(t, strings.HasPrefix(e.Error(), "MessageNotSupported"))
}

func TestZeroTargetsReturnsNilAndReleasesMessage(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2) // responder class 2, but nobody subscribed

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, nil))
	require.True(t, got.IsNil())
}

func TestSingleTargetSendsDirectly(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	target := ref(2, 10)
	reg.ReceiveFromAll(target, inverted.Always)
	d.handlers[10] = func(args []values.Value) values.Value { return values.NewString("pong") }

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, nil))
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "pong", s)
	require.Equal(t, []int32{10}, d.calls)
}

func TestPriorityOrderingLaterSubscriptionWinsFirst(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	first := ref(2, 1)
	second := ref(2, 2)
	reg.ReceiveFromAll(first, inverted.Always)
	reg.ReceiveFromAll(second, inverted.Always)

	d.handlers[1] = func(args []values.Value) values.Value { return values.NewString("first") }
	d.handlers[2] = func(args []values.Value) values.Value { return values.NewString("second") }

	sender := values.NewReference(1, 1)
	poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, nil))

	require.Equal(t, []int32{2, 1}, d.calls)
}

func TestUnreceivedTargetSkippedAfterFirstAnswer(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	skipped := ref(2, 3)
	high := ref(2, 1)
	low := ref(2, 2)
	reg.ReceiveFromAll(skipped, inverted.Unreceived) // registered before both: lowest priority, reached after the answer
	reg.ReceiveFromAll(high, inverted.Always)        // registered before low: lower priority
	reg.ReceiveFromAll(low, inverted.Unreceived)     // registered last: highest priority, invoked first

	d.handlers[2] = func(args []values.Value) values.Value { return values.NewString("from-low") }
	d.handlers[1] = func(args []values.Value) values.Value { return values.NewString("from-high") }
	d.handlers[3] = func(args []values.Value) values.Value { return values.NewString("from-skipped") }

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, nil))

	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "from-low", s)
	require.Equal(t, []int32{2, 1}, d.calls, "Always target still runs even once received; the Unreceived target 3 is skipped")
}

func TestUnhandledDoesNotMarkReceived(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	a := ref(2, 1)
	b := ref(2, 2)
	reg.ReceiveFromAll(a, inverted.Unreceived)
	reg.ReceiveFromAll(b, inverted.Unreceived)

	d.handlers[2] = func(args []values.Value) values.Value { return inverted.Unhandled(d.n) } // invoked first (higher priority)
	d.handlers[1] = func(args []values.Value) values.Value { return values.NewString("answer") }

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, nil))

	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "answer", s)
}

func TestHandledShortCircuitsImmediately(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	a := ref(2, 1)
	b := ref(2, 2)
	reg.ReceiveFromAll(a, inverted.Always)
	reg.ReceiveFromAll(b, inverted.Always)

	d.handlers[2] = func(args []values.Value) values.Value { return inverted.Handled(d.n, values.NewInt(99)) }
	d.handlers[1] = func(args []values.Value) values.Value {
		t.Fatal("handler for lower-priority target must not run after handled: short-circuit")
		return values.Nil
	}

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, nil))
	i, ok := got.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(99), i)
}

func TestDropPrunesSubscriptionBeforeNextSend(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	target := ref(2, 10)
	reg.ReceiveFromAll(target, inverted.Always)
	d.handlers[10] = func(args []values.Value) values.Value { return values.NewString("pong") }

	reg.OnDrop(target)

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, nil))
	require.True(t, got.IsNil())
	require.Empty(t, d.calls)
}

func TestPerSourceSubscriptionOnlyFiresForThatSender(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	source := ref(3, 1)
	other := ref(3, 2)
	target := ref(2, 10)
	reg.ReceiveFrom(target, source, inverted.Always)
	d.handlers[10] = func(args []values.Value) values.Value { return values.NewString("pong") }

	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, values.NewReference(other.ClassID, other.Handle), sig, nil, nil))
	require.True(t, got.IsNil())
	require.Empty(t, d.calls)

	got = poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, values.NewReference(source.ClassID, source.Handle), sig, nil, nil))
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "pong", s)
}

func TestLocalContextTargetParticipates(t *testing.T) {
	d := newDispatcher()
	reg := inverted.NewRegistry(d.n)
	sig := d.n.Unary("ping")
	reg.DeclareInverted(sig, 2)

	local := ref(2, 77)
	d.handlers[77] = func(args []values.Value) values.Value { return values.NewString("from-local") }

	sender := values.NewReference(1, 1)
	got := poll(t, inverted.SendC[testCtx](reg, &testCtx{}, d, sender, sig, nil, []inverted.LocalTarget{
		{Target: local, Priority: 1, When: inverted.Always},
	}))
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "from-local", s)
}
