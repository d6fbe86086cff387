package fsm

import (
	"fmt"

	"github.com/finity-lang/finity/internal/lang"
)

// Outcome is the terminal result of replaying a machine.
type Outcome struct {
	Class  Classification
	Output lang.Value // valid when Class == Halted
}

func (o Outcome) String() string {
	if o.Class == Halted {
		return fmt.Sprintf("Halted(%s)", o.Output)
	}
	return o.Class.String()
}

// Equal reports whether two outcomes are observationally identical.
func (o Outcome) Equal(other Outcome) bool {
	if o.Class != other.Class {
		return false
	}
	if o.Class != Halted {
		return true
	}
	return o.Output.Equal(other.Output)
}

// Run replays transitions from start until a terminal classification is
// reached or the step budget is exhausted. Looping is statically known
// after compilation, so the budget should never bind on a compiled
// machine, but a hand-built machine is not trusted: a Continuing state
// without a successor and an exhausted budget are both rejected. The
// machine is never mutated.
func Run(m *Machine, start StateID, budget int) (Outcome, error) {
	cur := m.State(start)
	if cur == nil {
		return Outcome{}, lang.Rejectf(lang.KindName, "unknown start state %d", start)
	}

	for steps := 0; steps <= budget; steps++ {
		switch cur.Class {
		case Halted:
			return Outcome{Class: Halted, Output: cur.Output}, nil
		case Looping:
			return Outcome{Class: Looping}, nil
		}
		nxt := m.State(m.Next(cur.ID))
		if nxt == nil {
			return Outcome{}, lang.Rejectf(lang.KindName,
				"continuing state %d has no successor", cur.ID)
		}
		cur = nxt
	}
	return Outcome{}, lang.Rejectf(lang.KindResource, "step budget %d exhausted", budget)
}

// RunInput replays the machine from the start state of the given
// initial environment key.
func RunInput(m *Machine, envKey string, budget int) (Outcome, error) {
	start, ok := m.Start(envKey)
	if !ok {
		return Outcome{}, lang.Rejectf(lang.KindName, "no start state for input %q", envKey)
	}
	return Run(m, start, budget)
}

// DefaultBudget returns a replay budget that a well-formed machine can
// never exhaust: every replay visits each state at most once before
// reaching a terminal classification.
func DefaultBudget(m *Machine) int {
	return m.NumStates() + 1
}
