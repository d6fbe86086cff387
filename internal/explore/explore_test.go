package explore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finity-lang/finity/internal/eval"
	"github.com/finity-lang/finity/internal/fsm"
	"github.com/finity-lang/finity/internal/lang"
)

func mustLower(t *testing.T, stmts ...lang.Stmt) *lang.Program {
	t.Helper()
	prog, err := lang.Lower(stmts)
	require.NoError(t, err)
	return prog
}

func explore(t *testing.T, cfg Config, stmts ...lang.Stmt) *fsm.Machine {
	t.Helper()
	m, err := Explore(context.Background(), mustLower(t, stmts...), cfg)
	require.NoError(t, err)
	return m
}

func TestInitialEnvsCartesianProduct(t *testing.T) {
	prog := mustLower(t,
		lang.Decl("x", lang.IntDomain{Bound: 2}),
		lang.Decl("s", lang.NewStringDomain("a", "b")),
	)
	envs := InitialEnvs(prog)
	require.Len(t, envs, 4)

	// canonical order: lexicographic over sorted names, domains in
	// Enumerate order
	keys := make([]string, len(envs))
	for i, e := range envs {
		keys[i] = e.Key()
	}
	assert.Equal(t, []string{
		`s=s"a";x=i0`,
		`s=s"a";x=i1`,
		`s=s"b";x=i0`,
		`s=s"b";x=i1`,
	}, keys)
}

func TestInitialEnvsNoInputs(t *testing.T) {
	prog := mustLower(t,
		lang.DeclInit("x", lang.IntDomain{Bound: 2}, lang.IntLit(0)),
	)
	envs := InitialEnvs(prog)
	require.Len(t, envs, 1)
	assert.Equal(t, 0, envs[0].Len())
}

func TestExploreHaltingProgram(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	m := explore(t, DefaultConfig(),
		lang.Decl("x", d),
		lang.Return(lang.Binary(lang.OpAdd, lang.Var("x"), lang.IntLit(1))),
	)

	keys := m.StartKeys()
	require.Len(t, keys, 4)
	for i, key := range keys {
		id, ok := m.Start(key)
		require.True(t, ok)
		out, err := fsm.Run(m, id, fsm.DefaultBudget(m))
		require.NoError(t, err)
		assert.Equal(t, fsm.Halted, out.Class)
		assert.Equal(t, lang.IntValue{Val: int64(i + 1)}, out.Output)
	}
}

func TestExploreCountingLoopHalts(t *testing.T) {
	d := lang.IntDomain{Bound: 8}
	m := explore(t, DefaultConfig(),
		lang.DeclInit("x", d, lang.IntLit(0)),
		lang.While(lang.Binary(lang.OpLt, lang.Var("x"), lang.IntLit(5)),
			lang.Assign("x", lang.Binary(lang.OpAdd, lang.Var("x"), lang.IntLit(1)))),
		lang.Return(lang.Var("x")),
	)
	out, err := fsm.RunInput(m, m.StartKeys()[0], fsm.DefaultBudget(m))
	require.NoError(t, err)
	assert.Equal(t, fsm.Halted, out.Class)
	assert.Equal(t, lang.IntValue{Val: 5}, out.Output)
}

func TestExploreSelfAssignLoops(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	// while true over a self-assignment recurs immediately
	m := explore(t, DefaultConfig(),
		lang.DeclInit("x", d, lang.IntLit(1)),
		lang.While(lang.Binary(lang.OpEq, lang.IntLit(0), lang.IntLit(0)),
			lang.Assign("x", lang.Var("x"))),
	)
	out, err := fsm.RunInput(m, m.StartKeys()[0], fsm.DefaultBudget(m))
	require.NoError(t, err)
	assert.Equal(t, fsm.Looping, out.Class)
}

func TestExploreWrapCycleCertificate(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	// x cycles 0,1,2,3,0,... under wrap: the repeat of x=0 at the loop
	// head is the non-halting certificate
	cfg := DefaultConfig()
	cfg.Eval.Overflow = eval.OverflowWrap
	m := explore(t, cfg,
		lang.DeclInit("x", d, lang.IntLit(0)),
		lang.While(lang.Binary(lang.OpLt, lang.Var("x"), lang.IntLit(9)),
			lang.Assign("x", lang.Binary(lang.OpAdd, lang.Var("x"), lang.IntLit(1)))),
	)
	out, err := fsm.RunInput(m, m.StartKeys()[0], fsm.DefaultBudget(m))
	require.NoError(t, err)
	assert.Equal(t, fsm.Looping, out.Class)
}

func TestExploreLoopDependsOnInput(t *testing.T) {
	d := lang.IntDomain{Bound: 2}
	// x == 0 loops forever, x == 1 halts
	m := explore(t, DefaultConfig(),
		lang.Decl("x", d),
		lang.While(lang.Binary(lang.OpEq, lang.Var("x"), lang.IntLit(0)),
			lang.Assign("x", lang.Var("x"))),
		lang.Return(lang.Var("x")),
	)

	outs := make(map[string]fsm.Classification)
	for _, key := range m.StartKeys() {
		out, err := fsm.RunInput(m, key, fsm.DefaultBudget(m))
		require.NoError(t, err)
		outs[key] = out.Class
	}
	assert.Equal(t, fsm.Looping, outs["x=i0"])
	assert.Equal(t, fsm.Halted, outs["x=i1"])
}

func TestExploreSharesStatesAcrossInputs(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	// every input funnels into x = 0 immediately, so the tails of all
	// four walks intern the same states
	m := explore(t, DefaultConfig(),
		lang.Decl("x", d),
		lang.Assign("x", lang.IntLit(0)),
		lang.Return(lang.Var("x")),
	)
	require.Len(t, m.StartKeys(), 4)
	// 4 distinct starts + 1 shared post-assign state, which is itself
	// the halting state
	assert.Equal(t, 5, m.NumStates())
}

func TestExploreRejectionAbortsWithWitness(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	_, err := Explore(context.Background(), mustLower(t,
		lang.Decl("x", d),
		lang.Return(lang.Binary(lang.OpDiv, lang.IntLit(6), lang.Var("x"))),
	), DefaultConfig())
	require.Error(t, err)

	r, ok := lang.AsReject(err)
	require.True(t, ok)
	assert.Equal(t, lang.KindDomain, r.Kind)
	require.NotNil(t, r.Input, "rejection should carry the witnessing input")
	assert.Equal(t, "x=i0", r.Input.Key())
}

func TestExploreStateBudget(t *testing.T) {
	d := lang.IntDomain{Bound: 64}
	cfg := DefaultConfig()
	cfg.MaxStates = 10
	_, err := Explore(context.Background(), mustLower(t,
		lang.DeclInit("x", d, lang.IntLit(0)),
		lang.While(lang.Binary(lang.OpLt, lang.Var("x"), lang.IntLit(60)),
			lang.Assign("x", lang.Binary(lang.OpAdd, lang.Var("x"), lang.IntLit(1)))),
	), cfg)
	require.Error(t, err)
	assert.True(t, lang.IsResourceExhausted(err))
}

func TestExploreRejectsOversizedInputSpace(t *testing.T) {
	// six free int[10] inputs declare a million initial environments;
	// the reject must come from the domain sizes alone, before any of
	// them is built
	d := lang.IntDomain{Bound: 10}
	stmts := make([]lang.Stmt, 0, 7)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		stmts = append(stmts, lang.Decl(name, d))
	}
	stmts = append(stmts, lang.Return(lang.Var("a")))

	cfg := DefaultConfig()
	cfg.MaxStates = 1
	_, err := Explore(context.Background(), mustLower(t, stmts...), cfg)
	require.Error(t, err)
	assert.True(t, lang.IsResourceExhausted(err))
	assert.Contains(t, err.Error(), "1000000 initial environments")
}

func TestExploreCancelledBeforeEnumeration(t *testing.T) {
	d := lang.IntDomain{Bound: 10}
	stmts := make([]lang.Stmt, 0, 7)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		stmts = append(stmts, lang.Decl(name, d))
	}
	stmts = append(stmts, lang.Return(lang.Var("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err := Explore(ctx, mustLower(t, stmts...), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second,
		"a cancelled context must not enumerate the input space")
}

func TestExploreCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Explore(ctx, mustLower(t,
		lang.Decl("x", lang.IntDomain{Bound: 4}),
		lang.Return(lang.Var("x")),
	), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExploreParallelMatchesSequential(t *testing.T) {
	d := lang.IntDomain{Bound: 8}
	stmts := []lang.Stmt{
		lang.Decl("x", d),
		lang.Decl("y", d),
		lang.While(lang.Binary(lang.OpLt, lang.Var("x"), lang.Var("y")),
			lang.Assign("x", lang.Binary(lang.OpAdd, lang.Var("x"), lang.IntLit(1)))),
		lang.Return(lang.Var("x")),
	}

	seq := explore(t, DefaultConfig(), stmts...)

	cfg := DefaultConfig()
	cfg.Parallel = true
	par, err := Explore(context.Background(), mustLower(t, stmts...), cfg)
	require.NoError(t, err)

	require.ElementsMatch(t, seq.StartKeys(), par.StartKeys())
	for _, key := range seq.StartKeys() {
		a, err := fsm.RunInput(seq, key, fsm.DefaultBudget(seq))
		require.NoError(t, err)
		b, err := fsm.RunInput(par, key, fsm.DefaultBudget(par))
		require.NoError(t, err)
		assert.True(t, a.Equal(b), "outcome mismatch for %s: %s vs %s", key, a, b)
	}
}

func TestExploreProgressReported(t *testing.T) {
	d := lang.IntDomain{Bound: 4}
	var calls int
	var lastDone, lastTotal int
	cfg := DefaultConfig()
	cfg.Progress = func(done, total int) {
		calls++
		lastDone, lastTotal = done, total
	}
	explore(t, cfg,
		lang.Decl("x", d),
		lang.Return(lang.Var("x")),
	)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, lastDone)
	assert.Equal(t, 4, lastTotal)
}
