// Package eval implements the deterministic single-step evaluator over
// bounded-domain environments. Step is a pure function of its inputs:
// for a fixed state it always produces the same next state or outcome,
// which is what makes state equality trustworthy for cycle detection.
package eval

import (
	"fmt"

	"github.com/finity-lang/finity/internal/lang"
)

// OverflowPolicy selects what happens when an arithmetic result stored
// into a variable falls outside its declared domain. The source
// semantics are unspecified here, so the policy is configurable rather
// than hard-coded; rejection is the default.
type OverflowPolicy int

const (
	// OverflowReject rejects the program when a stored value exceeds
	// its declared domain.
	OverflowReject OverflowPolicy = iota
	// OverflowWrap wraps stored integers modulo the domain bound.
	OverflowWrap
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowReject:
		return "reject"
	case OverflowWrap:
		return "wrap"
	default:
		return "?"
	}
}

// Config holds evaluator configuration. It is an explicit value threaded
// through the pipeline, never ambient process state, so concurrent
// compilations with different bounds cannot interfere.
type Config struct {
	Overflow     OverflowPolicy
	MaxCallDepth int
}

// DefaultConfig returns the default evaluator configuration.
func DefaultConfig() Config {
	return Config{
		Overflow:     OverflowReject,
		MaxCallDepth: 64,
	}
}

// State is a program location paired with a complete variable
// environment. Lambda application is evaluated atomically inside a
// single step, so the location is a plain instruction pointer.
type State struct {
	PC  int
	Env *lang.Env
}

// Key returns the exact interning key for the state.
func (s State) Key() string {
	return fmt.Sprintf("%d|%s", s.PC, s.Env.Key())
}

func (s State) String() string {
	return fmt.Sprintf("(%d, %s)", s.PC, s.Env)
}

// StepKind discriminates the three possible step outcomes.
type StepKind int

const (
	// StepNext means execution continues at Result.Next.
	StepNext StepKind = iota
	// StepHalted means the program halted normally with Result.Output.
	StepHalted
	// StepRejected means the program is invalid on this path.
	StepRejected
)

// StepResult is the outcome of one evaluator step.
type StepResult struct {
	Kind   StepKind
	Next   State      // valid for StepNext
	Output lang.Value // valid for StepHalted
	Err    error      // valid for StepRejected
}

// Evaluator steps a lowered program one instruction at a time.
type Evaluator struct {
	prog   *lang.Program
	config Config
}

// New creates an evaluator for the given program.
func New(prog *lang.Program, config Config) *Evaluator {
	return &Evaluator{prog: prog, config: config}
}

// Step computes the unique successor of state, or a terminal outcome.
// It never mutates state's environment.
func (ev *Evaluator) Step(state State) StepResult {
	if state.PC < 0 || state.PC > len(ev.prog.Instrs) {
		return rejected(lang.RejectAt(lang.KindName, state.PC, "location outside program"))
	}
	if state.PC == len(ev.prog.Instrs) {
		return StepResult{Kind: StepHalted, Output: lang.NilValue{}}
	}

	switch in := ev.prog.Instrs[state.PC].(type) {
	case lang.AssignInstr:
		val, err := ev.evalExpr(in.Expr, state.Env, 0)
		if err != nil {
			return rejectedAt(err, state.PC)
		}
		dom := ev.prog.Domains[in.Var]
		val, err = ev.fitDomain(in.Var, val, dom, state.PC)
		if err != nil {
			return rejected(err)
		}
		return next(state.PC+1, state.Env.With(in.Var, val, dom))

	case lang.IndexAssignInstr:
		return ev.stepIndexAssign(in, state)

	case lang.BranchInstr:
		cond, err := ev.evalExpr(in.Cond, state.Env, 0)
		if err != nil {
			return rejectedAt(err, state.PC)
		}
		b, ok := cond.(lang.BoolValue)
		if !ok {
			return rejected(lang.RejectAt(lang.KindDomain, state.PC,
				"condition evaluated to non-boolean %s", cond))
		}
		if b.Val {
			return next(state.PC+1, state.Env)
		}
		return next(in.Else, state.Env)

	case lang.JumpInstr:
		return next(in.Target, state.Env)

	case lang.ReturnInstr:
		val, err := ev.evalExpr(in.Value, state.Env, 0)
		if err != nil {
			return rejectedAt(err, state.PC)
		}
		return StepResult{Kind: StepHalted, Output: val}

	default:
		return rejected(lang.RejectAt(lang.KindName, state.PC, "unknown instruction %T", in))
	}
}

func (ev *Evaluator) stepIndexAssign(in lang.IndexAssignInstr, state State) StepResult {
	cur := state.Env.Get(in.Var)
	if cur == nil {
		return rejected(lang.RejectAt(lang.KindName, state.PC, "use of unbound variable %q", in.Var))
	}
	arr, ok := cur.(lang.ArrayValue)
	if !ok {
		return rejected(lang.RejectAt(lang.KindDomain, state.PC, "indexed assignment to non-array %q", in.Var))
	}

	idxVal, err := ev.evalExpr(in.Index, state.Env, 0)
	if err != nil {
		return rejectedAt(err, state.PC)
	}
	idx, ok := idxVal.(lang.IntValue)
	if !ok {
		return rejected(lang.RejectAt(lang.KindDomain, state.PC, "array index is not an integer: %s", idxVal))
	}
	if idx.Val < 0 || idx.Val >= int64(len(arr.Elems)) {
		return rejected(lang.RejectAt(lang.KindBounds, state.PC,
			"index %d out of range for %q (length %d)", idx.Val, in.Var, len(arr.Elems)))
	}

	val, err := ev.evalExpr(in.Expr, state.Env, 0)
	if err != nil {
		return rejectedAt(err, state.PC)
	}

	dom := ev.prog.Domains[in.Var]
	if ad, ok := dom.(lang.ArrayDomain); ok {
		val, err = ev.fitDomain(in.Var, val, ad.Elem, state.PC)
		if err != nil {
			return rejected(err)
		}
	}

	elems := make([]lang.Value, len(arr.Elems))
	copy(elems, arr.Elems)
	elems[idx.Val] = val
	return next(state.PC+1, state.Env.With(in.Var, lang.ArrayValue{Elems: elems}, dom))
}

// fitDomain checks a stored value against the target variable's declared
// domain. Silent wraparound would change program semantics, so overflow
// is explicit policy: reject by default, wrap only when configured.
func (ev *Evaluator) fitDomain(name string, val lang.Value, dom lang.Domain, pc int) (lang.Value, error) {
	if dom == nil {
		return nil, lang.RejectAt(lang.KindDomain, pc, "variable %q lacks a finite declared domain", name)
	}
	if dom.Contains(val) {
		return val, nil
	}
	if ev.config.Overflow == OverflowWrap {
		if id, ok := dom.(lang.IntDomain); ok {
			if iv, ok := val.(lang.IntValue); ok {
				wrapped := ((iv.Val % id.Bound) + id.Bound) % id.Bound
				return lang.IntValue{Val: wrapped}, nil
			}
		}
	}
	return nil, lang.RejectAt(lang.KindDomain, pc,
		"value %s outside declared domain %s of %q", val, dom, name)
}

func (ev *Evaluator) evalExpr(expr lang.Expr, env *lang.Env, depth int) (lang.Value, error) {
	switch e := expr.(type) {
	case lang.LiteralExpr:
		return e.Val, nil

	case lang.VarExpr:
		val := env.Get(e.Name)
		if val == nil {
			return nil, lang.Rejectf(lang.KindName, "use of unbound variable %q", e.Name)
		}
		return val, nil

	case lang.BinaryExpr:
		return ev.evalBinary(e, env, depth)

	case lang.UnaryExpr:
		operand, err := ev.evalExpr(e.Operand, env, depth)
		if err != nil {
			return nil, err
		}
		return evalUnary(e.Op, operand)

	case lang.ArrayExpr:
		elems := make([]lang.Value, len(e.Elems))
		for i, el := range e.Elems {
			v, err := ev.evalExpr(el, env, depth)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return lang.ArrayValue{Elems: elems}, nil

	case lang.IndexExpr:
		return ev.evalIndex(e, env, depth)

	case lang.CallExpr:
		return ev.evalCall(e, env, depth)

	default:
		return nil, lang.Rejectf(lang.KindName, "unsupported expression %T", expr)
	}
}

func (ev *Evaluator) evalBinary(e lang.BinaryExpr, env *lang.Env, depth int) (lang.Value, error) {
	// Logical operators short-circuit; the right operand of a taken
	// short circuit is never evaluated.
	if e.Op == lang.OpAnd || e.Op == lang.OpOr {
		left, err := ev.evalExpr(e.Left, env, depth)
		if err != nil {
			return nil, err
		}
		lb, ok := left.(lang.BoolValue)
		if !ok {
			return nil, lang.Rejectf(lang.KindDomain, "operator %s requires booleans, got %s", e.Op, left)
		}
		if e.Op == lang.OpAnd && !lb.Val {
			return lang.BoolValue{Val: false}, nil
		}
		if e.Op == lang.OpOr && lb.Val {
			return lang.BoolValue{Val: true}, nil
		}
		right, err := ev.evalExpr(e.Right, env, depth)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(lang.BoolValue)
		if !ok {
			return nil, lang.Rejectf(lang.KindDomain, "operator %s requires booleans, got %s", e.Op, right)
		}
		return rb, nil
	}

	left, err := ev.evalExpr(e.Left, env, depth)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right, env, depth)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case lang.OpEq:
		return lang.BoolValue{Val: left.Equal(right)}, nil
	case lang.OpNeq:
		return lang.BoolValue{Val: !left.Equal(right)}, nil
	}

	l, lok := left.(lang.IntValue)
	r, rok := right.(lang.IntValue)
	if !lok || !rok {
		return nil, lang.Rejectf(lang.KindDomain,
			"operator %s requires integers, got %s and %s", e.Op, left, right)
	}

	switch e.Op {
	case lang.OpAdd:
		return lang.IntValue{Val: l.Val + r.Val}, nil
	case lang.OpSub:
		return lang.IntValue{Val: l.Val - r.Val}, nil
	case lang.OpMul:
		return lang.IntValue{Val: l.Val * r.Val}, nil
	case lang.OpDiv:
		if r.Val == 0 {
			return nil, lang.Rejectf(lang.KindDomain, "division by zero")
		}
		return lang.IntValue{Val: l.Val / r.Val}, nil
	case lang.OpMod:
		if r.Val == 0 {
			return nil, lang.Rejectf(lang.KindDomain, "modulo by zero")
		}
		return lang.IntValue{Val: l.Val % r.Val}, nil
	case lang.OpLt:
		return lang.BoolValue{Val: l.Val < r.Val}, nil
	case lang.OpLte:
		return lang.BoolValue{Val: l.Val <= r.Val}, nil
	case lang.OpGt:
		return lang.BoolValue{Val: l.Val > r.Val}, nil
	case lang.OpGte:
		return lang.BoolValue{Val: l.Val >= r.Val}, nil
	default:
		return nil, lang.Rejectf(lang.KindName, "unknown operator %s", e.Op)
	}
}

func evalUnary(op lang.UnaryOp, operand lang.Value) (lang.Value, error) {
	switch op {
	case lang.OpNot:
		b, ok := operand.(lang.BoolValue)
		if !ok {
			return nil, lang.Rejectf(lang.KindDomain, "operator ! requires a boolean, got %s", operand)
		}
		return lang.BoolValue{Val: !b.Val}, nil
	case lang.OpNeg:
		i, ok := operand.(lang.IntValue)
		if !ok {
			return nil, lang.Rejectf(lang.KindDomain, "operator - requires an integer, got %s", operand)
		}
		return lang.IntValue{Val: -i.Val}, nil
	default:
		return nil, lang.Rejectf(lang.KindName, "unknown unary operator %s", op)
	}
}

func (ev *Evaluator) evalIndex(e lang.IndexExpr, env *lang.Env, depth int) (lang.Value, error) {
	base, err := ev.evalExpr(e.Base, env, depth)
	if err != nil {
		return nil, err
	}
	arr, ok := base.(lang.ArrayValue)
	if !ok {
		return nil, lang.Rejectf(lang.KindDomain, "indexing non-array value %s", base)
	}
	idxVal, err := ev.evalExpr(e.Index, env, depth)
	if err != nil {
		return nil, err
	}
	idx, ok := idxVal.(lang.IntValue)
	if !ok {
		return nil, lang.Rejectf(lang.KindDomain, "array index is not an integer: %s", idxVal)
	}
	if idx.Val < 0 || idx.Val >= int64(len(arr.Elems)) {
		return nil, lang.Rejectf(lang.KindBounds, "index %d out of range (length %d)", idx.Val, len(arr.Elems))
	}
	return arr.Elems[idx.Val], nil
}

// evalCall applies a named lambda: parameters bind into a fresh scope
// layered on the caller's environment, and the scope pops when the body
// finishes. Call depth is bounded so self-referential lambdas cannot
// recurse without limit.
func (ev *Evaluator) evalCall(e lang.CallExpr, env *lang.Env, depth int) (lang.Value, error) {
	if depth >= ev.config.MaxCallDepth {
		return nil, lang.Rejectf(lang.KindResource, "call depth exceeds %d in %q", ev.config.MaxCallDepth, e.Func)
	}
	fn, ok := ev.prog.Funcs[e.Func]
	if !ok {
		return nil, lang.Rejectf(lang.KindName, "call to undefined function %q", e.Func)
	}
	if len(e.Args) != len(fn.Params) {
		return nil, lang.Rejectf(lang.KindArity, "function %q expects %d arguments, got %d",
			e.Func, len(fn.Params), len(e.Args))
	}

	scope := lang.NewChildEnv(env)
	for i, param := range fn.Params {
		val, err := ev.evalExpr(e.Args[i], env, depth)
		if err != nil {
			return nil, err
		}
		scope.Set(param, val, nil)
	}
	return ev.evalExpr(fn.Body, scope, depth+1)
}

func next(pc int, env *lang.Env) StepResult {
	return StepResult{Kind: StepNext, Next: State{PC: pc, Env: env}}
}

func rejected(err error) StepResult {
	return StepResult{Kind: StepRejected, Err: err}
}

// rejectedAt attaches a location to rejections raised during expression
// evaluation, which carry no location of their own.
func rejectedAt(err error, pc int) StepResult {
	if r, ok := lang.AsReject(err); ok && r.PC < 0 {
		r.PC = pc
	}
	return StepResult{Kind: StepRejected, Err: err}
}
