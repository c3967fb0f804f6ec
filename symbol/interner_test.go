package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wudi/heyrt/symbol"
)

// S2 — selector id stability.
func TestSignatureIDStability(t *testing.T) {
	n := symbol.New()

	a := n.Keyword("with:", "with:")
	b := n.Keyword("with:", "with:")
	require.Equal(t, a, b, "the same selector text must intern to the same id")

	c := n.Unary("with:")
	require.NotEqual(t, a, c)

	sig, ok := n.Lookup(a)
	require.True(t, ok)
	require.Equal(t, 2, sig.Arity)
	require.Equal(t, 0, n.Arity(c))
}

func TestSymbolInterning(t *testing.T) {
	n := symbol.New()
	a := n.Symbol("foo")
	b := n.Symbol("foo")
	require.Equal(t, a, b)
	require.Equal(t, "foo", n.SymbolText(a))

	c := n.Symbol("bar")
	require.NotEqual(t, a, c)
}

func TestKeywordTextAndArity(t *testing.T) {
	n := symbol.New()
	id := n.Keyword("perform:", "withArguments:")
	require.Equal(t, "perform:withArguments:", n.Text(id))
	require.Equal(t, 2, n.Arity(id))
}

func TestGlobalInternerIsStableAcrossCalls(t *testing.T) {
	a := symbol.UnaryOf("yourself")
	b := symbol.UnaryOf("yourself")
	require.Equal(t, a, b)
}
