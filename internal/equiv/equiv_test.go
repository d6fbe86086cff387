package equiv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finity-lang/finity/internal/explore"
	"github.com/finity-lang/finity/internal/fsm"
	"github.com/finity-lang/finity/internal/lang"
	"github.com/finity-lang/finity/internal/minimize"
)

func compile(t *testing.T, stmts ...lang.Stmt) *fsm.Machine {
	t.Helper()
	prog, err := lang.Lower(stmts)
	require.NoError(t, err)
	m, err := explore.Explore(context.Background(), prog, explore.DefaultConfig())
	require.NoError(t, err)
	return minimize.Minimize(m)
}

func TestEquivalentArithmeticRewrites(t *testing.T) {
	x := lang.IntDomain{Bound: 4}
	y := lang.IntDomain{Bound: 8}

	// y = x + 1 against y = x + 2 - 1 over all four inputs
	a := compile(t,
		lang.Decl("x", x),
		lang.DeclInit("y", y, lang.IntLit(0)),
		lang.Assign("y", lang.Binary(lang.OpAdd, lang.Var("x"), lang.IntLit(1))),
		lang.Return(lang.Var("y")),
	)
	b := compile(t,
		lang.Decl("x", x),
		lang.DeclInit("y", y, lang.IntLit(0)),
		lang.Assign("y", lang.Binary(lang.OpSub,
			lang.Binary(lang.OpAdd, lang.Var("x"), lang.IntLit(2)), lang.IntLit(1))),
		lang.Return(lang.Var("y")),
	)

	r, err := Check(a, b)
	require.NoError(t, err)
	assert.True(t, r.Equivalent, "got %s", r)
}

func TestDistinguishedBySingleInput(t *testing.T) {
	d := lang.IntDomain{Bound: 4}

	// the programs agree on x in {0,1,2} and differ only at x == 3
	a := compile(t,
		lang.Decl("x", d),
		lang.Return(lang.Var("x")),
	)
	b := compile(t,
		lang.Decl("x", d),
		lang.If(lang.Binary(lang.OpEq, lang.Var("x"), lang.IntLit(3)),
			lang.Return(lang.IntLit(0)),
			lang.Return(lang.Var("x"))),
	)

	r, err := Check(a, b)
	require.NoError(t, err)
	require.False(t, r.Equivalent)
	assert.Equal(t, "x=i3", r.InputKey, "the witness must be the single disagreeing input")
	require.NotNil(t, r.InputEnv)
	assert.Equal(t, lang.IntValue{Val: 3}, r.InputEnv.Get("x"))
}

func TestReflexive(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	m := compile(t,
		lang.Decl("x", d),
		lang.While(lang.Binary(lang.OpGt, lang.Var("x"), lang.IntLit(1)),
			lang.Assign("x", lang.Binary(lang.OpSub, lang.Var("x"), lang.IntLit(1)))),
		lang.Return(lang.Var("x")),
	)
	r, err := Check(m, m)
	require.NoError(t, err)
	assert.True(t, r.Equivalent)
}

func TestSymmetric(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	a := compile(t,
		lang.Decl("x", d),
		lang.Return(lang.Var("x")),
	)
	b := compile(t,
		lang.Decl("x", d),
		lang.Return(lang.IntLit(0)),
	)

	ab, err := Check(a, b)
	require.NoError(t, err)
	ba, err := Check(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab.Equivalent, ba.Equivalent)
	assert.Equal(t, ab.InputKey, ba.InputKey)
}

func TestBothLoopForeverEquivalent(t *testing.T) {
	d := lang.IntDomain{Bound: 2}
	loopA := compile(t,
		lang.Decl("x", d),
		lang.While(lang.Binary(lang.OpEq, lang.IntLit(0), lang.IntLit(0)),
			lang.Assign("x", lang.Var("x"))),
	)
	// a different non-halting program: same observable behavior
	loopB := compile(t,
		lang.Decl("x", d),
		lang.While(lang.Binary(lang.OpLt, lang.Var("x"), lang.IntLit(9)),
			lang.Assign("x", lang.Binary(lang.OpMul, lang.Var("x"), lang.IntLit(1)))),
	)

	r, err := Check(loopA, loopB)
	require.NoError(t, err)
	assert.True(t, r.Equivalent, "two never-halting programs are indistinguishable: %s", r)
}

func TestHaltVersusLoopDistinguished(t *testing.T) {
	d := lang.IntDomain{Bound: 2}
	halts := compile(t,
		lang.Decl("x", d),
		lang.Return(lang.Var("x")),
	)
	loops := compile(t,
		lang.Decl("x", d),
		lang.While(lang.Binary(lang.OpEq, lang.IntLit(0), lang.IntLit(0)),
			lang.Assign("x", lang.Var("x"))),
	)

	r, err := Check(halts, loops)
	require.NoError(t, err)
	require.False(t, r.Equivalent)
	assert.NotEmpty(t, r.InputKey)
}

func TestDistinguishedOnHaltingBehavior(t *testing.T) {
	d := lang.IntDomain{Bound: 2}
	// halts on x=1, loops on x=0
	mixed := compile(t,
		lang.Decl("x", d),
		lang.While(lang.Binary(lang.OpEq, lang.Var("x"), lang.IntLit(0)),
			lang.Assign("x", lang.Var("x"))),
		lang.Return(lang.Var("x")),
	)
	halts := compile(t,
		lang.Decl("x", d),
		lang.Return(lang.Var("x")),
	)

	r, err := Check(mixed, halts)
	require.NoError(t, err)
	require.False(t, r.Equivalent)
	assert.Equal(t, "x=i0", r.InputKey)
}

func TestMismatchedInputDomains(t *testing.T) {
	a := compile(t,
		lang.Decl("x", lang.IntDomain{Bound: 2}),
		lang.Return(lang.Var("x")),
	)
	b := compile(t,
		lang.Decl("x", lang.IntDomain{Bound: 3}),
		lang.Return(lang.Var("x")),
	)

	r, err := Check(a, b)
	require.NoError(t, err)
	require.False(t, r.Equivalent)
	assert.Equal(t, "x=i2", r.InputKey, "the extra member of the wider domain is the witness")
	assert.Contains(t, r.Reason, "input domains differ")
}

func TestMismatchedInputNames(t *testing.T) {
	a := compile(t,
		lang.Decl("x", lang.IntDomain{Bound: 2}),
		lang.Return(lang.IntLit(0)),
	)
	b := compile(t,
		lang.Decl("y", lang.IntDomain{Bound: 2}),
		lang.Return(lang.IntLit(0)),
	)

	r, err := Check(a, b)
	require.NoError(t, err)
	assert.False(t, r.Equivalent, "same outputs over different input spaces are not comparable")
}

func TestUnminimizedAgainstMinimized(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	stmts := []lang.Stmt{
		lang.Decl("x", d),
		lang.While(lang.Binary(lang.OpGt, lang.Var("x"), lang.IntLit(0)),
			lang.Assign("x", lang.Binary(lang.OpSub, lang.Var("x"), lang.IntLit(1)))),
		lang.Return(lang.Var("x")),
	}
	prog, err := lang.Lower(stmts)
	require.NoError(t, err)
	raw, err := explore.Explore(context.Background(), prog, explore.DefaultConfig())
	require.NoError(t, err)

	r, err := Check(raw, minimize.Minimize(raw))
	require.NoError(t, err)
	assert.True(t, r.Equivalent, "minimization must preserve observable behavior: %s", r)
}
