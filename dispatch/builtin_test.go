package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/dispatch"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// testCtx stands in for runtime.Context in these unit tests; the
// builtin tables never touch it directly, they only thread it through
// to Dispatcher calls.
type testCtx struct{}

// fakeOwner is a no-op Owner: none of the values these tests exercise
// hold heap resources, so cloning is an identity copy and release just
// records that it happened.
type fakeOwner struct {
	released []values.Value
}

func (o *fakeOwner) ReleaseValue(v values.Value) { o.released = append(o.released, v) }

func (o *fakeOwner) CloneValue(v values.Value) values.Value { return v }

type sentMessage struct {
	receiver values.Value
	sig      symbol.SignatureID
	args     []values.Value
}

// fakeDispatcher is a minimal Dispatcher[testCtx] recording every Send
// it is asked to perform, with a pluggable handler so tests can stub
// out what a block "responds" with.
type fakeDispatcher struct {
	owner   *fakeOwner
	n       *symbol.Interner
	sent    []sentMessage
	handle  func(receiver values.Value, sig symbol.SignatureID, args []values.Value) values.Value
	respond func(receiver values.Value, sig symbol.SignatureID) bool
}

func newFakeDispatcher(n *symbol.Interner) *fakeDispatcher {
	return &fakeDispatcher{owner: &fakeOwner{}, n: n}
}

func (d *fakeDispatcher) Send(ctx *testCtx, receiver values.Value, sig symbol.SignatureID, args []values.Value) continuation.Continuation[testCtx] {
	d.sent = append(d.sent, sentMessage{receiver: receiver, sig: sig, args: args})
	if d.handle != nil {
		return continuation.Ready[testCtx](d.handle(receiver, sig, args))
	}
	return continuation.Ready[testCtx](receiver)
}

func (d *fakeDispatcher) RespondsTo(ctx *testCtx, receiver values.Value, sig symbol.SignatureID) bool {
	if d.respond != nil {
		return d.respond(receiver, sig)
	}
	return false
}

func (d *fakeDispatcher) Owner(ctx *testCtx) values.Owner { return d.owner }
func (d *fakeDispatcher) Interner() *symbol.Interner      { return d.n }

func poll(t *testing.T, c continuation.Continuation[testCtx]) values.Value {
	t.Helper()
	v, ready := c.Poll(&testCtx{}, nil)
	require.True(t, ready, "continuation did not resolve synchronously")
	return v
}

func dispatchOn(t *testing.T, table *dispatch.Table[testCtx], d *fakeDispatcher, sig symbol.SignatureID, receiver values.Value, args ...values.Value) values.Value {
	t.Helper()
	owned := make([]values.Owned, len(args))
	for i, a := range args {
		owned[i] = values.NewOwned(a, d.owner)
	}
	ctx := &testCtx{}
	c := table.Dispatch(sig, values.NewOwned(receiver, d.owner), owned, ctx)
	return poll(t, c)
}

func TestAnyTableYourselfAndEquality(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildAnyTable[testCtx](d, n)

	got := dispatchOn(t, table, d, n.Unary("yourself"), values.NewInt(7))
	i, ok := got.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(7), i)

	eq := dispatchOn(t, table, d, n.Keyword("="), values.NewInt(5), values.NewInt(5))
	b, ok := eq.AsBool()
	require.True(t, ok)
	require.True(t, b)

	neq := dispatchOn(t, table, d, n.Keyword("~="), values.NewInt(5), values.NewInt(6))
	b, ok = neq.AsBool()
	require.True(t, ok)
	require.True(t, b)
}

func TestAnyTableRespondsTo(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	sel := n.Unary("foo")
	d.respond = func(receiver values.Value, sig symbol.SignatureID) bool { return sig == sel }
	table := dispatch.BuildAnyTable[testCtx](d, n)

	got := dispatchOn(t, table, d, n.Keyword("respondsTo:"), values.NewInt(1), values.NewSelector(sel))
	b, ok := got.AsBool()
	require.True(t, ok)
	require.True(t, b)
}

// TestPerformDispatchesThroughDispatcher covers scenario S3: perform:
// resolves arity against the interned selector and routes through
// Dispatcher.Send exactly as a literal send would.
func TestPerformDispatchesThroughDispatcher(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildAnyTable[testCtx](d, n)

	plus := n.Keyword("+")
	got := dispatchOn(t, table, d, n.Keyword("perform:", "with:"), values.NewInt(1), values.NewSelector(plus), values.NewInt(9))
	require.Len(t, d.sent, 1)
	require.Equal(t, plus, d.sent[0].sig)
	require.Equal(t, values.NewInt(1), d.sent[0].receiver)
	require.Equal(t, []values.Value{values.NewInt(9)}, d.sent[0].args)
	require.Equal(t, values.NewInt(1), got) // fakeDispatcher.Send defaults to echoing receiver
}

func TestPerformWrongArityErrors(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildAnyTable[testCtx](d, n)

	plus := n.Keyword("+")
	got := dispatchOn(t, table, d, n.Keyword("perform:"), values.NewInt(1), values.NewSelector(plus))
	e, ok := got.AsError()
	require.True(t, ok)
	require.True(t, e.Is(errs.New(errs.WrongNumberOfArguments)))
}

func TestBoolAndOrShortCircuit(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	valueSig := n.Unary("value")
	block := values.NewInt(99) // stands in for a zero-arg block

	table := dispatch.BuildBoolTable[testCtx](d, n)

	// false and: [...] must never send `value` to the block.
	_ = dispatchOn(t, table, d, n.Keyword("and:"), values.NewBool(false), block)
	require.Empty(t, d.sent)

	// true and: [block] must send `value` exactly once.
	got := dispatchOn(t, table, d, n.Keyword("and:"), values.NewBool(true), block)
	require.Len(t, d.sent, 1)
	require.Equal(t, valueSig, d.sent[0].sig)
	require.Equal(t, block, got)

	// true or: [...] must never send `value` to the block.
	d.sent = nil
	_ = dispatchOn(t, table, d, n.Keyword("or:"), values.NewBool(true), block)
	require.Empty(t, d.sent)

	// false or: [block] must send `value` exactly once.
	got = dispatchOn(t, table, d, n.Keyword("or:"), values.NewBool(false), block)
	require.Len(t, d.sent, 1)
	require.Equal(t, valueSig, d.sent[0].sig)
	require.Equal(t, block, got)
}

func TestBoolIfTrueIfFalse(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildBoolTable[testCtx](d, n)

	thenBlock := values.NewInt(1)
	elseBlock := values.NewInt(2)

	got := dispatchOn(t, table, d, n.Keyword("ifTrue:", "ifFalse:"), values.NewBool(true), thenBlock, elseBlock)
	require.Equal(t, thenBlock, got)
	require.Len(t, d.sent, 1)

	d.sent = nil
	got = dispatchOn(t, table, d, n.Keyword("ifTrue:", "ifFalse:"), values.NewBool(false), thenBlock, elseBlock)
	require.Equal(t, elseBlock, got)
	require.Len(t, d.sent, 1)
}

func TestNumberArithmeticStaysIntegral(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildNumberTable[testCtx](d, n)

	got := dispatchOn(t, table, d, n.Keyword("+"), values.NewInt(3), values.NewInt(4))
	i, ok := got.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(7), i)
}

func TestNumberArithmeticPromotesToFloat(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildNumberTable[testCtx](d, n)

	got := dispatchOn(t, table, d, n.Keyword("+"), values.NewInt(3), values.NewFloat(0.5))
	f, ok := got.AsFloat()
	require.True(t, ok)
	require.Equal(t, 3.5, f)
}

func TestNumberFloorDivisionAndModulo(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildNumberTable[testCtx](d, n)

	q := dispatchOn(t, table, d, n.Keyword("//"), values.NewInt(-7), values.NewInt(2))
	qi, _ := q.AsInt()
	require.Equal(t, int64(-4), qi)

	m := dispatchOn(t, table, d, n.Keyword("\\\\"), values.NewInt(-7), values.NewInt(2))
	mi, _ := m.AsInt()
	require.Equal(t, int64(1), mi)
}

func TestStringConcatenationAndCase(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildStringTable[testCtx](d, n)

	got := dispatchOn(t, table, d, n.Keyword(","), values.NewString("foo"), values.NewString("bar"))
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "foobar", s)

	got = dispatchOn(t, table, d, n.Unary("asUppercase"), values.NewString("hey"))
	s, _ = got.AsString()
	require.Equal(t, "HEY", s)
}

func TestCharPredicates(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildCharTable[testCtx](d, n)

	got := dispatchOn(t, table, d, n.Unary("isVowel"), values.NewChar('e'))
	b, _ := got.AsBool()
	require.True(t, b)

	got = dispatchOn(t, table, d, n.Unary("isVowel"), values.NewChar('x'))
	b, _ = got.AsBool()
	require.False(t, b)
}

func TestArrayAtAndAtPut(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildArrayTable[testCtx](d, n)

	arr := values.NewArray([]values.Value{values.NewInt(10), values.NewInt(20)})
	got := dispatchOn(t, table, d, n.Keyword("at:"), arr, values.NewInt(2))
	i, _ := got.AsInt()
	require.Equal(t, int64(20), i)

	arr2 := values.NewArray([]values.Value{values.NewInt(10), values.NewInt(20)})
	_ = dispatchOn(t, table, d, n.Keyword("at:", "put:"), arr2, values.NewInt(1), values.NewInt(99))
	underlying, _ := arr2.AsArray()
	replaced, _ := underlying.Elements[0].AsInt()
	require.Equal(t, int64(99), replaced)
}

func TestArrayDoVisitsEachElement(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	var seen []int64
	d.handle = func(receiver values.Value, sig symbol.SignatureID, args []values.Value) values.Value {
		if i, ok := args[0].AsInt(); ok {
			seen = append(seen, i)
		}
		return values.Nil
	}
	table := dispatch.BuildArrayTable[testCtx](d, n)

	arr := values.NewArray([]values.Value{values.NewInt(1), values.NewInt(2), values.NewInt(3)})
	_ = dispatchOn(t, table, d, n.Keyword("do:"), arr, values.NewInt(0) /* block stand-in */)
	require.Equal(t, []int64{1, 2, 3}, seen)
}

func TestSelectorWithBuildsMessage(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildSelectorTable[testCtx](d, n)

	plus := n.Keyword("+")
	got := dispatchOn(t, table, d, n.Keyword("with:"), values.NewSelector(plus), values.NewInt(5))
	m, ok := got.AsMessage()
	require.True(t, ok)
	require.Equal(t, plus, m.Sig)
	require.Len(t, m.Args, 1)
	i, _ := m.Args[0].AsInt()
	require.Equal(t, int64(5), i)
}

func TestSelectorWithArgumentsArityMismatch(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildSelectorTable[testCtx](d, n)

	plus := n.Keyword("+")
	got := dispatchOn(t, table, d, n.Keyword("withArguments:"), values.NewSelector(plus), values.NewArray(nil))
	e, ok := got.AsError()
	require.True(t, ok)
	require.True(t, e.Is(errs.New(errs.WrongNumberOfArguments)))
}

func TestMessageSelectorStartsWith(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildMessageTable[testCtx](d, n)

	full := n.Keyword("at:", "put:")
	prefix := n.Keyword("at:")
	msg := values.NewMessage(full, []values.Value{values.NewInt(1), values.NewInt(2)})

	got := dispatchOn(t, table, d, n.Keyword("selectorStartsWith:"), msg, values.NewSelector(prefix))
	b, ok := got.AsBool()
	require.True(t, ok)
	require.True(t, b)
}

func TestErrorMessageTextAndKind(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildErrorTable[testCtx](d, n)

	errv := values.NewError(errs.New(errs.IsNil))
	got := dispatchOn(t, table, d, n.Unary("messageText"), errv)
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "IsNil", s)

	got = dispatchOn(t, table, d, n.Keyword("isKind:"), errv, values.NewString("IsNil"))
	b, ok := got.AsBool()
	require.True(t, ok)
	require.True(t, b)
}

func TestSymbolAsStringAndAsSelector(t *testing.T) {
	n := symbol.New()
	d := newFakeDispatcher(n)
	table := dispatch.BuildSymbolTable[testCtx](d, n)

	sym := values.NewSymbol(n.Symbol("hello"))
	got := dispatchOn(t, table, d, n.Unary("asString"), sym)
	s, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "hello", s)

	got = dispatchOn(t, table, d, n.Unary("asSelector"), sym)
	sel, ok := got.AsSelector()
	require.True(t, ok)
	require.Equal(t, 0, n.Arity(sel))
}
