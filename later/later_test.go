package later_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/heap"
	"github.com/wudi/heyrt/later"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

type testCtx struct {
	alloc *heap.Allocator[*later.Later[testCtx]]
}

func newTestCtx() *testCtx {
	return &testCtx{alloc: heap.New[*later.Later[testCtx]](nil)}
}

// fakeOwner is a no-op Owner: these tests only need CloneValue/ReleaseValue
// to be callable, not to actually track counts.
type fakeOwner struct{}

func (fakeOwner) CloneValue(v values.Value) values.Value { return v }
func (fakeOwner) ReleaseValue(values.Value)               {}

const laterClassID int32 = -2

func newTable(n *symbol.Interner) (*testCtx, func(symbol.SignatureID, values.Value, []values.Value) continuation.Continuation[testCtx]) {
	ctx := newTestCtx()
	table := later.BuildDispatchTable[testCtx](n, func(c *testCtx) *heap.Allocator[*later.Later[testCtx]] {
		return c.alloc
	}, func(c *testCtx) values.Owner { return fakeOwner{} }, laterClassID)

	send := func(sig symbol.SignatureID, receiver values.Value, args []values.Value) continuation.Continuation[testCtx] {
		owned := values.NewOwned(receiver, fakeOwner{})
		ownedArgs := make([]values.Owned, len(args))
		for i, a := range args {
			ownedArgs[i] = values.NewOwned(a, fakeOwner{})
		}
		return table.Dispatch(sig, owned, ownedArgs, ctx)
	}
	return ctx, send
}

func poll(t *testing.T, ctx *testCtx, c continuation.Continuation[testCtx]) (values.Value, bool) {
	t.Helper()
	return c.Poll(ctx, nil)
}

func TestNewCreatesAnUnsetLater(t *testing.T) {
	n := symbol.New()
	ctx, send := newTable(n)

	got, ready := poll(t, ctx, send(n.Unary("new"), values.Nil, nil))
	require.True(t, ready)
	ref, ok := got.AsReference()
	require.True(t, ok)
	require.Equal(t, laterClassID, ref.ClassID)
}

func TestValueBeforeSetValueSuspendsThenResolves(t *testing.T) {
	n := symbol.New()
	ctx, send := newTable(n)

	l, _ := poll(t, ctx, send(n.Unary("new"), values.Nil, nil))

	valueCont := send(n.Unary("value"), l, nil)
	waked := false
	waker := continuation.NewWaker(func() { waked = true })
	_, ready := valueCont.Poll(ctx, waker)
	require.False(t, ready, "value should suspend before setValue: arrives")

	setCont := send(n.Keyword("setValue:"), l, []values.Value{values.NewInt(7)})
	setResult, setReady := poll(t, ctx, setCont)
	require.True(t, setReady)
	require.False(t, setResult.IsError())
	require.True(t, waked, "setValue: should wake every suspended value send")

	got, ready := valueCont.Poll(ctx, waker)
	require.True(t, ready)
	i, ok := got.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(7), i)
}

func TestValueAfterSetValueResolvesImmediately(t *testing.T) {
	n := symbol.New()
	ctx, send := newTable(n)

	l, _ := poll(t, ctx, send(n.Unary("new"), values.Nil, nil))
	poll(t, ctx, send(n.Keyword("setValue:"), l, []values.Value{values.NewString("done")}))

	got, ready := poll(t, ctx, send(n.Unary("value"), l, nil))
	require.True(t, ready)
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "done", s)
}

func TestSecondSetValueIsAlreadySentValueError(t *testing.T) {
	n := symbol.New()
	ctx, send := newTable(n)

	l, _ := poll(t, ctx, send(n.Unary("new"), values.Nil, nil))
	poll(t, ctx, send(n.Keyword("setValue:"), l, []values.Value{values.NewInt(1)}))

	got, ready := poll(t, ctx, send(n.Keyword("setValue:"), l, []values.Value{values.NewInt(2)}))
	require.True(t, ready)
	e, ok := got.AsError()
	require.True(t, ok)
	require.True(t, e.Is(errs.New(errs.AlreadySentValue)))

	// the first value wins; the rejected second value must not overwrite it.
	first, _ := poll(t, ctx, send(n.Unary("value"), l, nil))
	i, ok := first.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(1), i)
}

func TestValueOnNonLaterReferenceIsUnexpectedClass(t *testing.T) {
	n := symbol.New()
	ctx, send := newTable(n)

	got, ready := poll(t, ctx, send(n.Unary("value"), values.NewReference(99, 0), nil))
	require.True(t, ready)
	e, ok := got.AsError()
	require.True(t, ok)
	require.True(t, e.Is(errs.New(errs.UnexpectedClass)))
}
