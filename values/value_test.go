package values_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wudi/heyrt/errs"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

func TestEqualityIsStructural(t *testing.T) {
	a := values.NewArray([]values.Value{values.NewInt(1), values.NewString("x")})
	b := values.NewArray([]values.Value{values.NewInt(1), values.NewString("x")})
	require.True(t, a.Equal(b))

	c := values.NewArray([]values.Value{values.NewInt(2)})
	require.False(t, a.Equal(c))
}

func TestFloatHashesByBitPattern(t *testing.T) {
	a := values.NewFloat(0.1)
	b := values.NewFloat(0.1)
	require.Equal(t, a.Hash(), b.Hash())

	// Distinct bit patterns must not collide trivially; this is a smoke
	// test, not an exhaustive proof.
	c := values.NewFloat(0.2)
	require.NotEqual(t, a.Hash(), c.Hash())
}

func TestReferenceIsScopedToClassAndHandle(t *testing.T) {
	r1 := values.NewReference(1, 5)
	r2 := values.NewReference(1, 5)
	r3 := values.NewReference(2, 5)
	require.True(t, r1.Equal(r2))
	require.False(t, r1.Equal(r3))
}

func TestSelectorArityThroughSymbolTable(t *testing.T) {
	n := symbol.New()
	sig := n.Keyword("with:", "with:")
	v := values.NewSelector(sig)
	got, ok := v.AsSelector()
	require.True(t, ok)
	require.Equal(t, 2, n.Arity(got))
}

func TestErrorValueCarriesKind(t *testing.T) {
	v := values.NewError(errs.New(errs.IsNil))
	require.True(t, v.IsError())
	e, ok := v.AsError()
	require.True(t, ok)
	require.True(t, e.Is(errs.New(errs.IsNil)))
}

type fakeOwner struct {
	released []values.Value
}

func (f *fakeOwner) ReleaseValue(v values.Value) { f.released = append(f.released, v) }
func (f *fakeOwner) CloneValue(v values.Value) values.Value { return v }

func TestOwnedReleaseIsIdempotent(t *testing.T) {
	owner := &fakeOwner{}
	o := values.NewOwned(values.NewInt(7), owner)
	o.Release()
	o.Release()
	require.Len(t, owner.released, 1)
}

func TestOwnedLeakSkipsRelease(t *testing.T) {
	owner := &fakeOwner{}
	o := values.NewOwned(values.NewInt(7), owner)
	leaked := o.Leak()
	n, ok := leaked.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(7), n)

	o.Release()
	require.Empty(t, owner.released)
}
