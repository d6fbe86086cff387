package fsm

// Verdict summarises halting behavior over every declared input.
type Verdict int

const (
	_ Verdict = iota
	// AlwaysHalts means every input reaches a Halted state.
	AlwaysHalts
	// NeverHalts means every input loops forever.
	NeverHalts
	// DependsOnInput means some inputs halt and some loop.
	DependsOnInput
)

func (v Verdict) String() string {
	switch v {
	case AlwaysHalts:
		return "will halt eventually regardless of input"
	case NeverHalts:
		return "will run forever regardless of input"
	case DependsOnInput:
		return "may run forever or halt depending on input"
	default:
		return "?"
	}
}

// Decide replays every start state and reports whether the compiled
// program halts on all, none, or only some of its inputs. Because the
// machine was built by exhaustive exploration, the answer is a proof,
// not a heuristic.
func Decide(m *Machine) (Verdict, error) {
	budget := DefaultBudget(m)
	halts, loops := false, false
	for _, key := range m.StartKeys() {
		out, err := RunInput(m, key, budget)
		if err != nil {
			return 0, err
		}
		switch out.Class {
		case Halted:
			halts = true
		case Looping:
			loops = true
		}
	}
	switch {
	case halts && loops:
		return DependsOnInput, nil
	case loops:
		return NeverHalts, nil
	default:
		return AlwaysHalts, nil
	}
}

// Summary is a serialisable digest of a machine, used by the CLI.
type Summary struct {
	States     int    `yaml:"states"`
	Continuing int    `yaml:"continuing"`
	Halted     int    `yaml:"halted"`
	Looping    int    `yaml:"looping"`
	Inputs     int    `yaml:"inputs"`
	Verdict    string `yaml:"verdict"`
}

// Summarize computes the digest of a machine.
func Summarize(m *Machine) (Summary, error) {
	s := Summary{States: m.NumStates(), Inputs: len(m.StartKeys())}
	for id := StateID(0); int(id) < m.NumStates(); id++ {
		switch m.State(id).Class {
		case Continuing:
			s.Continuing++
		case Halted:
			s.Halted++
		case Looping:
			s.Looping++
		}
	}
	verdict, err := Decide(m)
	if err != nil {
		return Summary{}, err
	}
	s.Verdict = verdict.String()
	return s, nil
}
