package finity

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finity-lang/finity/internal/fsm"
	"github.com/finity-lang/finity/internal/lang"
)

func TestCompileAndRun(t *testing.T) {
	m, err := Compile(`
int[4] x
return x + 1
`, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, m.StartKeys(), 4)

	for i, key := range m.StartKeys() {
		out, err := Run(m, key)
		require.NoError(t, err)
		assert.Equal(t, fsm.Halted, out.Class)
		assert.Equal(t, lang.IntValue{Val: int64(i + 1)}, out.Output)
	}
}

func TestCompileDefaultIntBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxInt = 3
	m, err := Compile(`
int x
return x
`, cfg)
	require.NoError(t, err)
	assert.Len(t, m.StartKeys(), 3, "an unbounded int declaration takes the configured MaxInt")
}

func TestCompileRejectsExplicitEmptyDomain(t *testing.T) {
	// int[0] is a real empty domain, not a request for the default
	// bound, and an input with no admissible values is unusable
	_, err := Compile(`
int[0] x
return x
`, DefaultConfig())
	require.Error(t, err)
	r, ok := lang.AsReject(err)
	require.True(t, ok)
	assert.Equal(t, lang.KindDomain, r.Kind)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestCompileRejectsReachableError(t *testing.T) {
	_, err := Compile(`
int[4] x
return 8 / x
`, DefaultConfig())
	require.Error(t, err)
	r, ok := lang.AsReject(err)
	require.True(t, ok)
	assert.Equal(t, lang.KindDomain, r.Kind)
	require.NotNil(t, r.Input)
	assert.Equal(t, "x=i0", r.Input.Key())
}

func TestCompileRejectsUndeclared(t *testing.T) {
	_, err := Compile(`
int[4] x
return x + ghost
`, DefaultConfig())
	require.Error(t, err)
	assert.True(t, lang.IsKind(err, lang.KindDomain))
}

func TestCompileParseError(t *testing.T) {
	_, err := Compile("int[4] x\nwhile { }", DefaultConfig())
	assert.Error(t, err)
}

func TestCompileContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CompileContext(ctx, "int[4] x\nreturn x", DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimisePreservesOutcomes(t *testing.T) {
	m, err := Compile(`
int[8] x
x = 0
return x
`, DefaultConfig())
	require.NoError(t, err)

	min := Optimise(m)
	assert.Less(t, min.NumStates(), m.NumStates())

	raw := make(map[string]string)
	opt := make(map[string]string)
	for _, key := range m.StartKeys() {
		a, err := Run(m, key)
		require.NoError(t, err)
		b, err := Run(min, key)
		require.NoError(t, err)
		raw[key] = a.String()
		opt[key] = b.String()
	}
	if diff := cmp.Diff(raw, opt); diff != "" {
		t.Errorf("outcomes changed under minimization (-raw +optimised):\n%s", diff)
	}
}

func TestEquivalentSourceRewrite(t *testing.T) {
	cfg := DefaultConfig()
	r, err := EquivalentSource(context.Background(), `
int[4] x
int[8] y = 0
y = x + 1
return y
`, `
int[4] x
int[8] y = 0
y = x + 2 - 1
return y
`, cfg)
	require.NoError(t, err)
	assert.True(t, r.Equivalent, "got %s", r)
}

func TestEquivalentSourceDistinguished(t *testing.T) {
	r, err := EquivalentSource(context.Background(), `
int[4] x
return x
`, `
int[4] x
if x == 3 {
	return 0
}
return x
`, DefaultConfig())
	require.NoError(t, err)
	require.False(t, r.Equivalent)
	assert.Equal(t, "x=i3", r.InputKey)
}

func TestEquivalentSourceLoops(t *testing.T) {
	r, err := EquivalentSource(context.Background(), `
int[2] x
while 0 == 0 {
	x = x
}
`, `
int[2] x
while x < 5 {
	x = x * 1
}
`, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, r.Equivalent, "two never-halting programs are indistinguishable: %s", r)
}

func TestOverflowPolicyFromConfig(t *testing.T) {
	src := `
int[4] x = 3
x = x + 1
return x
`
	_, err := Compile(src, DefaultConfig())
	require.Error(t, err, "overflow rejects by default")

	cfg := DefaultConfig()
	cfg.OverflowWrap = true
	m, err := Compile(src, cfg)
	require.NoError(t, err)
	out, err := Run(m, m.StartKeys()[0])
	require.NoError(t, err)
	assert.Equal(t, lang.IntValue{Val: 0}, out.Output)
}

func TestCompileWithLambdas(t *testing.T) {
	m, err := Compile(`
double = (a) -> a * 2
int[4] x
int[8] y = 0
y = double(x)
return y
`, DefaultConfig())
	require.NoError(t, err)

	out, err := Run(m, "x=i3")
	require.NoError(t, err)
	assert.Equal(t, lang.IntValue{Val: 6}, out.Output)
}

func TestCompileArrayProgram(t *testing.T) {
	m, err := Compile(`
int[2] x
int[4][3] a = [0, 0, 0]
a[x] = x + 1
return a[x]
`, DefaultConfig())
	require.NoError(t, err)

	out, err := Run(m, "x=i1")
	require.NoError(t, err)
	assert.Equal(t, lang.IntValue{Val: 2}, out.Output)
}

func TestCompileStringDomains(t *testing.T) {
	m, err := Compile(`
str{"on", "off"} mode
if mode == "on" {
	return 1
}
return 0
`, DefaultConfig())
	require.NoError(t, err)

	on, err := Run(m, `mode=s"on"`)
	require.NoError(t, err)
	assert.Equal(t, lang.IntValue{Val: 1}, on.Output)

	off, err := Run(m, `mode=s"off"`)
	require.NoError(t, err)
	assert.Equal(t, lang.IntValue{Val: 0}, off.Output)
}

func TestIncrementRejectsAtDomainBoundary(t *testing.T) {
	// y = x compiles over the whole domain; y = x + 1 stores 4 into
	// int[4] when x is 3 and rejects with that witness
	_, err := Compile(`
int[4] x
int[4] y = 0
y = x
return y
`, DefaultConfig())
	require.NoError(t, err)

	_, err = Compile(`
int[4] x
int[4] y = 0
y = x + 1
return y
`, DefaultConfig())
	require.Error(t, err)
	r, ok := lang.AsReject(err)
	require.True(t, ok)
	assert.Equal(t, lang.KindDomain, r.Kind)
	require.NotNil(t, r.Input)
	assert.Equal(t, "x=i3", r.Input.Key())
}

func TestNoInputLoopMinimizesToOneLoopingState(t *testing.T) {
	m, err := Compile(`
int[4] x = 0
while 0 == 0 {
	x = x
}
`, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, m.StartKeys(), 1, "a program with no free inputs has one start")

	min := Optimise(m)
	looping := 0
	for id := 0; id < min.NumStates(); id++ {
		if min.State(fsm.StateID(id)).Class == fsm.Looping {
			looping++
		}
	}
	assert.Equal(t, 1, looping)

	out, err := Run(min, min.StartKeys()[0])
	require.NoError(t, err)
	assert.Equal(t, fsm.Looping, out.Class)
}

func TestParallelCompileMatches(t *testing.T) {
	src := `
int[4] x
int[4] y
while x > 0 && y > 0 {
	x = x - 1
	y = y - 1
}
return x + y
`
	seq, err := Compile(src, DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Parallel = true
	par, err := Compile(src, cfg)
	require.NoError(t, err)

	require.ElementsMatch(t, seq.StartKeys(), par.StartKeys())
	for _, key := range seq.StartKeys() {
		a, err := Run(seq, key)
		require.NoError(t, err)
		b, err := Run(par, key)
		require.NoError(t, err)
		assert.True(t, a.Equal(b), "outcome mismatch on %s", key)
	}
}
