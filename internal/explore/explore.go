// Package explore builds the full reachable-state graph of a lowered
// program. It enumerates every admissible initial environment, walks
// each one forward with the deterministic evaluator, and interns every
// distinct (location, environment) configuration. A repeated state
// inside a walk is a mathematical certificate of an infinite loop, not
// a heuristic, because the domain is finite and the transition function
// deterministic.
package explore

import (
	"context"
	"math"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/finity-lang/finity/internal/eval"
	"github.com/finity-lang/finity/internal/fsm"
	"github.com/finity-lang/finity/internal/lang"
)

// Config holds exploration configuration.
type Config struct {
	Eval eval.Config
	// MaxStates bounds the total number of interned states. A
	// mis-declared domain can blow up exploration combinatorially, so
	// the budget is always on.
	MaxStates int
	// Parallel distributes initial environments over a bounded worker
	// pool. The sequential path is the reference; results are identical
	// either way because the evaluator is pure.
	Parallel bool
	// Logger may be nil.
	Logger *zap.Logger
	// Progress, if non-nil, is called after each completed initial
	// environment walk with (done, total).
	Progress func(done, total int)
}

// DefaultConfig returns the default exploration configuration.
func DefaultConfig() Config {
	return Config{
		Eval:      eval.DefaultConfig(),
		MaxStates: 1 << 20,
	}
}

// Explore compiles a lowered program into its explicit machine. The
// first rejection found on any reachable path aborts the whole
// compilation: the machine must be total over its declared domain, so a
// single bad reachable path invalidates the program.
func Explore(ctx context.Context, prog *lang.Program, cfg Config) (*fsm.Machine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Every initial environment becomes an interned start state, so an
	// input space wider than the budget cannot possibly fit. Rejecting
	// on domain sizes here keeps a mis-declared domain from
	// materializing the whole product first.
	if n := inputSpaceSize(prog); n > cfg.MaxStates {
		return nil, lang.Rejectf(lang.KindResource,
			"input space of %d initial environments exceeds state budget %d", n, cfg.MaxStates)
	}

	envs := InitialEnvs(prog)
	if cfg.Logger != nil {
		cfg.Logger.Debug("exploring state space",
			zap.Int("inputs", len(prog.Inputs)),
			zap.Int("initial_envs", len(envs)),
			zap.Int("instructions", len(prog.Instrs)))
	}

	b := &builder{
		machine: fsm.New(),
		ev:      eval.New(prog, cfg.Eval),
		cfg:     cfg,
	}

	if cfg.Parallel && len(envs) > 1 {
		if err := b.exploreParallel(ctx, envs); err != nil {
			return nil, err
		}
	} else {
		for i, env := range envs {
			if err := b.walk(ctx, env); err != nil {
				return nil, err
			}
			if cfg.Progress != nil {
				cfg.Progress(i+1, len(envs))
			}
		}
	}

	return b.machine, nil
}

// InitialEnvs enumerates the Cartesian product of the free input
// variables' domains in canonical order: lexicographic over sorted
// variable names, with each domain in Enumerate order. A program with
// no free inputs has a single empty initial environment.
func InitialEnvs(prog *lang.Program) []*lang.Env {
	envs := []*lang.Env{lang.NewEnv()}
	for _, name := range prog.Inputs {
		dom := prog.Domains[name]
		vals := dom.Enumerate()
		grown := make([]*lang.Env, 0, len(envs)*len(vals))
		for _, env := range envs {
			for _, v := range vals {
				grown = append(grown, env.With(name, v, dom))
			}
		}
		envs = grown
	}
	return envs
}

// inputSpaceSize is the number of admissible initial environments, the
// product of the free input domain sizes. The product saturates at
// MaxInt so absurdly wide declarations still compare against the budget
// without overflowing.
func inputSpaceSize(prog *lang.Program) int {
	n := 1
	for _, name := range prog.Inputs {
		size := prog.Domains[name].Size()
		if size <= 0 {
			return 0
		}
		if n > math.MaxInt/size {
			return math.MaxInt
		}
		n *= size
	}
	return n
}

// builder owns the visited-set arena during construction. The mutex
// only matters in parallel mode; inserts are idempotent, so two workers
// racing to expand the same configuration converge on identical results.
type builder struct {
	mu      sync.Mutex
	machine *fsm.Machine
	ev      *eval.Evaluator
	cfg     Config
}

// walk runs one deterministic walk from an initial environment. Every
// visited state stays interned for cycle detection; states classified
// by an earlier walk terminate the current one early.
func (b *builder) walk(ctx context.Context, initial *lang.Env) error {
	b.mu.Lock()
	cur, _ := b.machine.Intern(0, initial)
	b.machine.AddStart(initial.Key(), cur)
	overBudget := b.machine.NumStates() > b.cfg.MaxStates
	b.mu.Unlock()
	if overBudget {
		return lang.Rejectf(lang.KindResource, "state budget %d exceeded", b.cfg.MaxStates)
	}

	onPath := make(map[fsm.StateID]int)
	var path []fsm.StateID

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.mu.Lock()
		st := b.machine.State(cur)
		class := st.Class
		known := b.machine.Next(cur) != fsm.NoState
		pc, env := st.PC, st.Env
		b.mu.Unlock()

		if class != fsm.Continuing {
			// terminal state reached via an earlier walk
			return nil
		}
		if known && !b.cfg.Parallel {
			// already expanded by an earlier walk; everything
			// downstream is classified
			return nil
		}

		onPath[cur] = len(path)
		path = append(path, cur)

		res := b.ev.Step(eval.State{PC: pc, Env: env})
		switch res.Kind {
		case eval.StepHalted:
			b.mu.Lock()
			b.machine.Classify(cur, fsm.Halted, res.Output)
			b.mu.Unlock()
			return nil

		case eval.StepRejected:
			if r, ok := lang.AsReject(res.Err); ok && r.Input == nil {
				r.Input = initial
			}
			return res.Err

		case eval.StepNext:
			b.mu.Lock()
			nxt, _ := b.machine.Intern(res.Next.PC, res.Next.Env)
			b.machine.SetNext(cur, nxt)
			over := b.machine.NumStates() > b.cfg.MaxStates
			b.mu.Unlock()
			if over {
				return lang.Rejectf(lang.KindResource, "state budget %d exceeded", b.cfg.MaxStates)
			}

			if pos, ok := onPath[nxt]; ok {
				// revisited a state from this walk: certificate of
				// non-halting for every state on the cycle
				b.mu.Lock()
				for _, id := range path[pos:] {
					b.machine.Classify(id, fsm.Looping, nil)
				}
				b.mu.Unlock()
				return nil
			}
			cur = nxt
		}
	}
}

// exploreParallel shards the initial environments over NumCPU workers,
// bounded by a semaphore channel. The arena is a shared resource with
// idempotent inserts: the evaluator is pure, so identical inputs
// produce identical results regardless of which worker computes them.
func (b *builder) exploreParallel(ctx context.Context, envs []*lang.Env) error {
	maxWorkers := runtime.NumCPU()
	sem := make(chan struct{}, maxWorkers)
	errChan := make(chan error, len(envs))

	var wg sync.WaitGroup
	var done sync.Mutex
	completed := 0

	for _, env := range envs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(env *lang.Env) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := b.walk(ctx, env); err != nil {
				errChan <- err
				return
			}
			if b.cfg.Progress != nil {
				done.Lock()
				completed++
				b.cfg.Progress(completed, len(envs))
				done.Unlock()
			}
		}(env)
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}
