// Package fsm defines the explicit finite-state machine produced by
// exhaustive exploration: an arena of states with stable integer ids, a
// start state per initial environment, a deterministic transition
// function, and a per-state classification. A machine is append-only
// while a builder constructs it and treated as immutable afterward;
// the minimizer constructs a new machine rather than mutating one.
package fsm

import (
	"fmt"

	"github.com/finity-lang/finity/internal/lang"
)

// StateID is the stable arena index of a state.
type StateID int

// NoState marks a missing transition or start state.
const NoState StateID = -1

// Classification is the per-state verdict assigned during exploration.
type Classification int

const (
	// Continuing states have exactly one successor.
	Continuing Classification = iota
	// Halted states terminate with an output value.
	Halted
	// Looping states were proven to recur under deterministic
	// transition: the program never halts from them.
	Looping
)

func (c Classification) String() string {
	switch c {
	case Continuing:
		return "Continuing"
	case Halted:
		return "Halted"
	case Looping:
		return "Looping"
	default:
		return "?"
	}
}

// State is one interned (location, environment) configuration.
type State struct {
	ID     StateID
	PC     int
	Env    *lang.Env
	Class  Classification
	Output lang.Value // valid when Class == Halted
}

// Key returns the exact interning key of the state.
func (s *State) Key() string {
	return fmt.Sprintf("%d|%s", s.PC, s.Env.Key())
}

func (s *State) String() string {
	switch s.Class {
	case Halted:
		return fmt.Sprintf("#%d (%d, %s) Halted(%s)", s.ID, s.PC, s.Env, s.Output)
	case Looping:
		return fmt.Sprintf("#%d (%d, %s) Looping", s.ID, s.PC, s.Env)
	default:
		return fmt.Sprintf("#%d (%d, %s)", s.ID, s.PC, s.Env)
	}
}

// Machine is the explicit reachable-state graph of a compiled program.
type Machine struct {
	states []*State
	index  map[string]StateID
	next   []StateID
	starts map[string]StateID
	// startOrder preserves the canonical enumeration order of initial
	// environments for reproducible iteration.
	startOrder []string
}

// New creates an empty machine.
func New() *Machine {
	return &Machine{
		index:  make(map[string]StateID),
		starts: make(map[string]StateID),
	}
}

// Intern returns the id for the (pc, env) configuration, creating a new
// Continuing state on first visit. The returned bool reports whether
// the state already existed. Insertion is idempotent: interning the
// same configuration twice yields the same id.
func (m *Machine) Intern(pc int, env *lang.Env) (StateID, bool) {
	key := fmt.Sprintf("%d|%s", pc, env.Key())
	if id, ok := m.index[key]; ok {
		return id, true
	}
	id := StateID(len(m.states))
	m.states = append(m.states, &State{ID: id, PC: pc, Env: env})
	m.next = append(m.next, NoState)
	m.index[key] = id
	return id, false
}

// SetNext records the deterministic transition from one state.
func (m *Machine) SetNext(from, to StateID) {
	m.next[from] = to
}

// Classify assigns a classification (and, for Halted, the output).
func (m *Machine) Classify(id StateID, class Classification, output lang.Value) {
	m.states[id].Class = class
	m.states[id].Output = output
}

// AddStart registers the start state for an initial environment key.
func (m *Machine) AddStart(envKey string, id StateID) {
	if _, ok := m.starts[envKey]; !ok {
		m.startOrder = append(m.startOrder, envKey)
	}
	m.starts[envKey] = id
}

// NumStates returns the number of interned states.
func (m *Machine) NumStates() int {
	return len(m.states)
}

// State returns the state with the given id, or nil when out of range.
func (m *Machine) State(id StateID) *State {
	if id < 0 || int(id) >= len(m.states) {
		return nil
	}
	return m.states[id]
}

// Lookup finds a state id by its (pc, env) configuration.
func (m *Machine) Lookup(pc int, env *lang.Env) (StateID, bool) {
	id, ok := m.index[fmt.Sprintf("%d|%s", pc, env.Key())]
	return id, ok
}

// Next returns the successor of a state, or NoState.
func (m *Machine) Next(id StateID) StateID {
	if id < 0 || int(id) >= len(m.next) {
		return NoState
	}
	return m.next[id]
}

// Start returns the start state for an initial environment key.
func (m *Machine) Start(envKey string) (StateID, bool) {
	id, ok := m.starts[envKey]
	return id, ok
}

// StartKeys returns the initial environment keys in canonical
// enumeration order.
func (m *Machine) StartKeys() []string {
	keys := make([]string, len(m.startOrder))
	copy(keys, m.startOrder)
	return keys
}

// String renders the machine, one state per line with its transition.
func (m *Machine) String() string {
	out := ""
	for _, s := range m.states {
		out += s.String()
		if nxt := m.Next(s.ID); nxt != NoState {
			out += fmt.Sprintf(" -> #%d", nxt)
		}
		out += "\n"
	}
	return out
}
