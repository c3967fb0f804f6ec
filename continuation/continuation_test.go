package continuation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/values"
)

type fakeCtx struct{ calls int }

func TestReadyYieldsImmediately(t *testing.T) {
	c := continuation.Ready[fakeCtx](values.NewInt(1))
	v, ready := c.Poll(&fakeCtx{}, nil)
	require.True(t, ready)
	n, _ := v.AsInt()
	require.Equal(t, int64(1), n)

	// A Ready continuation yields Ready on every subsequent poll,
	// regardless of context (testable property 6).
	v2, ready2 := c.Poll(nil, nil)
	require.True(t, ready2)
	require.True(t, v.Equal(v2))
}

func TestSoonLoopsUntilReadyOrLater(t *testing.T) {
	ctx := &fakeCtx{}
	c := continuation.Soon(func(c *fakeCtx) continuation.Continuation[fakeCtx] {
		c.calls++
		if c.calls < 3 {
			return continuation.Soon(func(c *fakeCtx) continuation.Continuation[fakeCtx] {
				c.calls++
				return continuation.Ready[fakeCtx](values.NewInt(int64(c.calls)))
			})
		}
		return continuation.Ready[fakeCtx](values.NewInt(int64(c.calls)))
	})

	v, ready := c.Poll(ctx, nil)
	require.True(t, ready)
	require.Greater(t, ctx.calls, 0)
	_, ok := v.AsInt()
	require.True(t, ok)
}

func TestLaterSuspendsAndResumes(t *testing.T) {
	polls := 0
	c := continuation.Later(func(ctx *fakeCtx, w *continuation.Waker) (values.Value, bool) {
		polls++
		if polls < 2 {
			return values.Nil, false
		}
		return values.NewInt(42), true
	})

	_, ready := c.Poll(&fakeCtx{}, nil)
	require.False(t, ready)

	v, ready := c.Poll(&fakeCtx{}, nil)
	require.True(t, ready)
	n, _ := v.AsInt()
	require.Equal(t, int64(42), n)
}

func TestAndThenPropagatesErrorsOpaquely(t *testing.T) {
	errVal := values.NewError(errs.New(errs.IsNil))
	called := false
	c := continuation.AndThen(continuation.Ready[fakeCtx](errVal), func(v values.Value) continuation.Continuation[fakeCtx] {
		called = true
		return continuation.Ready[fakeCtx](values.NewInt(99))
	})

	v, ready := c.Poll(&fakeCtx{}, nil)
	require.True(t, ready)
	require.True(t, called, "plain AndThen must still invoke f on an Error value")
	_, isErr := v.AsError()
	require.False(t, isErr)
}

func TestAndThenIfOKShortCircuitsOnError(t *testing.T) {
	errVal := values.NewError(errs.New(errs.IsNil))
	called := false
	c := continuation.AndThenIfOK(continuation.Ready[fakeCtx](errVal), func(v values.Value) continuation.Continuation[fakeCtx] {
		called = true
		return continuation.Ready[fakeCtx](values.NewInt(99))
	})

	v, ready := c.Poll(&fakeCtx{}, nil)
	require.True(t, ready)
	require.False(t, called)
	_, isErr := v.AsError()
	require.True(t, isErr)
}

func TestFutureWakesWaiter(t *testing.T) {
	woken := make(chan struct{}, 1)
	waker := continuation.NewWaker(func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	})

	c := continuation.Future[fakeCtx](context.Background(), func(ctx context.Context) values.Value {
		time.Sleep(10 * time.Millisecond)
		return values.NewInt(7)
	})

	_, ready := c.Poll(&fakeCtx{}, waker)
	require.False(t, ready)

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("waker was never woken")
	}

	v, ready := c.Poll(&fakeCtx{}, waker)
	require.True(t, ready)
	n, _ := v.AsInt()
	require.Equal(t, int64(7), n)
}

func TestFutureSoonDrivesProducedContinuation(t *testing.T) {
	waker := continuation.NewWaker(func() {})
	c := continuation.FutureSoon[fakeCtx](context.Background(), func(ctx context.Context) continuation.Continuation[fakeCtx] {
		return continuation.Ready[fakeCtx](values.NewString("done"))
	})

	var v values.Value
	var ready bool
	for i := 0; i < 100 && !ready; i++ {
		v, ready = c.Poll(&fakeCtx{}, waker)
		if !ready {
			time.Sleep(time.Millisecond)
		}
	}
	require.True(t, ready)
	s, _ := v.AsString()
	require.Equal(t, "done", s)
}
