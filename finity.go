// Package finity compiles programs over statically finite variable
// domains into explicit finite-state machines. Because every reachable
// configuration is enumerable, halting, minimality, and behavioral
// equivalence are decided by exhaustive exploration rather than
// approximated.
package finity

import (
	"context"

	"github.com/finity-lang/finity/internal/equiv"
	"github.com/finity-lang/finity/internal/explore"
	"github.com/finity-lang/finity/internal/fsm"
	"github.com/finity-lang/finity/internal/lang"
	"github.com/finity-lang/finity/internal/minimize"
	"github.com/finity-lang/finity/internal/parser"
)

// Machine is the explicit finite-state machine produced by compilation.
type Machine = fsm.Machine

// Outcome is the terminal result of running a machine.
type Outcome = fsm.Outcome

// EquivalenceResult reports Equivalent or a distinguishing input.
type EquivalenceResult = equiv.Result

// Compile parses, lowers, and exhaustively explores a finity program.
// Any rejection reachable on any declared input aborts compilation with
// the witnessing input.
func Compile(source string, cfg Config) (*Machine, error) {
	return CompileContext(context.Background(), source, cfg)
}

// CompileContext is Compile with cooperative cancellation. Exploration
// checks the context between state expansions, so a combinatorially
// mis-declared domain can be interrupted.
func CompileContext(ctx context.Context, source string, cfg Config) (*Machine, error) {
	stmts, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return CompileProgram(ctx, stmts, cfg)
}

// CompileProgram compiles an already-parsed statement list.
func CompileProgram(ctx context.Context, stmts []lang.Stmt, cfg Config) (*Machine, error) {
	stmts = applyDefaultBound(stmts, cfg.MaxInt)
	prog, err := lang.Lower(stmts)
	if err != nil {
		return nil, err
	}
	return explore.Explore(ctx, prog, cfg.exploreConfig())
}

// Optimise merges behaviorally indistinguishable states, returning the
// smallest machine with identical observable behavior. The input
// machine is not mutated.
func Optimise(m *Machine) *Machine {
	return minimize.Minimize(m)
}

// Run replays a compiled machine from the start state of the given
// initial environment key. Keys are listed by (*Machine).StartKeys.
func Run(m *Machine, inputKey string) (Outcome, error) {
	return fsm.RunInput(m, inputKey, fsm.DefaultBudget(m))
}

// Equivalent reports whether two machines exhibit identical observable
// behavior for every shared input, or exhibits a distinguishing input.
func Equivalent(a, b *Machine) (EquivalenceResult, error) {
	return equiv.Check(a, b)
}

// EquivalentSource compiles, minimizes, and compares two programs.
func EquivalentSource(ctx context.Context, srcA, srcB string, cfg Config) (EquivalenceResult, error) {
	ma, err := CompileContext(ctx, srcA, cfg)
	if err != nil {
		return EquivalenceResult{}, err
	}
	mb, err := CompileContext(ctx, srcB, cfg)
	if err != nil {
		return EquivalenceResult{}, err
	}
	return Equivalent(Optimise(ma), Optimise(mb))
}

// applyDefaultBound substitutes the configured MaxInt into integer
// domains declared without an explicit bound.
func applyDefaultBound(stmts []lang.Stmt, maxInt int64) []lang.Stmt {
	out := make([]lang.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = defaultBoundStmt(s, maxInt)
	}
	return out
}

func defaultBoundStmt(s lang.Stmt, maxInt int64) lang.Stmt {
	switch st := s.(type) {
	case lang.DeclStmt:
		st.Domain = defaultBoundDomain(st.Domain, maxInt)
		return st
	case lang.BlockStmt:
		inner := make([]lang.Stmt, len(st.Stmts))
		for i, sub := range st.Stmts {
			inner[i] = defaultBoundStmt(sub, maxInt)
		}
		return lang.BlockStmt{Stmts: inner}
	case lang.IfStmt:
		st.Then = defaultBoundStmt(st.Then, maxInt)
		if st.Else != nil {
			st.Else = defaultBoundStmt(st.Else, maxInt)
		}
		return st
	case lang.WhileStmt:
		st.Body = defaultBoundStmt(st.Body, maxInt)
		return st
	default:
		return s
	}
}

func defaultBoundDomain(d lang.Domain, maxInt int64) lang.Domain {
	switch dom := d.(type) {
	case lang.IntDomain:
		// a negative bound is the parser's "no bound given" marker; an
		// explicit zero bound is a real empty domain and must survive
		// to be rejected at lowering
		if dom.Bound < 0 {
			return lang.IntDomain{Bound: maxInt}
		}
		return dom
	case lang.ArrayDomain:
		dom.Elem = defaultBoundDomain(dom.Elem, maxInt)
		return dom
	default:
		return d
	}
}
