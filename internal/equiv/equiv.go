// Package equiv decides whether two compiled machines exhibit identical
// observable behavior for every shared input, by walking both machines
// in lockstep over the product of their state spaces. The visited-pair
// discipline mirrors exploration's cycle detection: a repeated pair
// proves both sides loop jointly without ever diverging.
package equiv

import (
	"fmt"
	"sort"

	"github.com/finity-lang/finity/internal/fsm"
	"github.com/finity-lang/finity/internal/lang"
)

// Result is the outcome of an equivalence check: Equivalent, or
// Distinguished with a concrete witnessing input.
type Result struct {
	Equivalent bool
	// InputKey is the canonical key of the distinguishing initial
	// environment, empty when the machines are equivalent.
	InputKey string
	// InputEnv is the distinguishing initial environment itself, when
	// one exists in either machine.
	InputEnv *lang.Env
	Reason   string
}

func (r Result) String() string {
	if r.Equivalent {
		return "Equivalent"
	}
	if r.InputEnv != nil {
		return fmt.Sprintf("Distinguished(input %s: %s)", r.InputEnv, r.Reason)
	}
	return fmt.Sprintf("Distinguished(%s)", r.Reason)
}

// Check compares two machines input by input. The two programs must
// share the same declared input domain to be comparable; mismatched
// input sets are immediately Distinguished with a domain-mismatch
// explanation.
func Check(a, b *fsm.Machine) (Result, error) {
	if r, same := sameInputs(a, b); !same {
		return r, nil
	}

	for _, key := range a.StartKeys() {
		sa, _ := a.Start(key)
		sb, _ := b.Start(key)
		r, err := lockstep(a, b, sa, sb)
		if err != nil {
			return Result{}, err
		}
		if !r.Equivalent {
			r.InputKey = key
			r.InputEnv = a.State(sa).Env
			return r, nil
		}
	}
	return Result{Equivalent: true}, nil
}

// sameInputs compares the declared input spaces of both machines.
func sameInputs(a, b *fsm.Machine) (Result, bool) {
	ka, kb := a.StartKeys(), b.StartKeys()
	sort.Strings(ka)
	sort.Strings(kb)

	ia, ib := 0, 0
	for ia < len(ka) && ib < len(kb) {
		switch {
		case ka[ia] == kb[ib]:
			ia++
			ib++
		case ka[ia] < kb[ib]:
			return mismatch(a, ka[ia], "first machine"), false
		default:
			return mismatch(b, kb[ib], "second machine"), false
		}
	}
	if ia < len(ka) {
		return mismatch(a, ka[ia], "first machine"), false
	}
	if ib < len(kb) {
		return mismatch(b, kb[ib], "second machine"), false
	}
	return Result{}, true
}

func mismatch(m *fsm.Machine, key, side string) Result {
	r := Result{
		InputKey: key,
		Reason:   fmt.Sprintf("input domains differ: input only declared by the %s", side),
	}
	if id, ok := m.Start(key); ok {
		r.InputEnv = m.State(id).Env
	}
	return r
}

type pair struct {
	a, b fsm.StateID
}

// lockstep walks both machines from one shared input until the pair of
// terminal classifications can be compared or a pair of states repeats.
func lockstep(a, b *fsm.Machine, sa, sb fsm.StateID) (Result, error) {
	visited := make(map[pair]struct{})
	cur := pair{a: sa, b: sb}

	for {
		stA, stB := a.State(cur.a), b.State(cur.b)

		if _, seen := visited[cur]; seen {
			// A repeated pair means neither side makes further
			// progress. If one side already halted while the other
			// cycles unclassified, that is a divergence; otherwise
			// both sides are non-halting and behavior matches.
			haltedA := stA.Class == fsm.Halted
			haltedB := stB.Class == fsm.Halted
			if haltedA != haltedB {
				return Result{Reason: "one machine halts while the other never does"}, nil
			}
			return Result{Equivalent: true}, nil
		}
		visited[cur] = struct{}{}
		termA := stA.Class != fsm.Continuing
		termB := stB.Class != fsm.Continuing

		if termA && termB {
			oa := fsm.Outcome{Class: stA.Class, Output: stA.Output}
			ob := fsm.Outcome{Class: stB.Class, Output: stB.Output}
			if oa.Equal(ob) {
				return Result{Equivalent: true}, nil
			}
			return Result{Reason: fmt.Sprintf("%s vs %s", oa, ob)}, nil
		}

		if !termA {
			nxt := a.Next(cur.a)
			if nxt == fsm.NoState {
				return Result{}, lang.Rejectf(lang.KindName,
					"continuing state %d has no successor", cur.a)
			}
			cur.a = nxt
		}
		if !termB {
			nxt := b.Next(cur.b)
			if nxt == fsm.NoState {
				return Result{}, lang.Rejectf(lang.KindName,
					"continuing state %d has no successor", cur.b)
			}
			cur.b = nxt
		}
	}
}
