// Package minimize collapses behaviorally indistinguishable states
// into equivalence classes, producing the smallest machine with
// identical observable behavior. The algorithm is Moore-style partition
// refinement: states start partitioned by immediate classification and
// blocks split while members disagree on which block their successor
// lands in. Merging never combines states with different immediate
// classification, and a stable partition cannot merge further without
// changing observable behavior for some start state.
package minimize

import (
	"sort"

	"github.com/finity-lang/finity/internal/fsm"
)

// Minimize builds a new minimal machine; the input is never mutated, so
// callers holding the original keep a consistent snapshot.
func Minimize(m *fsm.Machine) *fsm.Machine {
	n := m.NumStates()
	if n == 0 {
		return fsm.New()
	}

	blockOf := initialPartition(m)
	refine(m, blockOf)

	// Gather block members in state-id order.
	members := make(map[int][]fsm.StateID)
	for id := 0; id < n; id++ {
		b := blockOf[id]
		members[b] = append(members[b], fsm.StateID(id))
	}

	// A start state represents its block when it has one; this keeps
	// start states recognisable in the minimized machine.
	isStart := make(map[fsm.StateID]bool)
	for _, key := range m.StartKeys() {
		if id, ok := m.Start(key); ok {
			isStart[id] = true
		}
	}
	rep := make(map[int]fsm.StateID)
	for b, ids := range members {
		rep[b] = ids[0]
		for _, id := range ids {
			if isStart[id] {
				rep[b] = id
				break
			}
		}
	}

	// Order blocks by their smallest member for stable output ids.
	blocks := make([]int, 0, len(members))
	for b := range members {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool {
		return members[blocks[i]][0] < members[blocks[j]][0]
	})

	out := fsm.New()
	newID := make(map[int]fsm.StateID, len(blocks))
	for _, b := range blocks {
		r := m.State(rep[b])
		id, _ := out.Intern(r.PC, r.Env)
		out.Classify(id, r.Class, r.Output)
		newID[b] = id
	}
	for _, b := range blocks {
		r := rep[b]
		if nxt := m.Next(r); nxt != fsm.NoState {
			out.SetNext(newID[b], newID[blockOf[nxt]])
		}
	}
	for _, key := range m.StartKeys() {
		if id, ok := m.Start(key); ok {
			out.AddStart(key, newID[blockOf[id]])
		}
	}
	return out
}

// initialPartition groups states by immediate classification: Halted
// states by output value, all Looping states together (a single merged
// sink), all Continuing states together.
func initialPartition(m *fsm.Machine) []int {
	blockOf := make([]int, m.NumStates())
	sig := make(map[string]int)
	for id := 0; id < m.NumStates(); id++ {
		st := m.State(fsm.StateID(id))
		var key string
		switch st.Class {
		case fsm.Halted:
			key = "h:" + st.Output.Key()
		case fsm.Looping:
			key = "l"
		default:
			key = "c"
		}
		b, ok := sig[key]
		if !ok {
			b = len(sig)
			sig[key] = b
		}
		blockOf[id] = b
	}
	return blockOf
}

// refine splits blocks until no member disagrees with a blockmate on
// its successor's block. Terminal states have no successor and never
// split further than the initial partition.
func refine(m *fsm.Machine, blockOf []int) {
	n := m.NumStates()
	nextBlock := func() int {
		max := -1
		for _, b := range blockOf {
			if b > max {
				max = b
			}
		}
		return max + 1
	}

	for {
		changed := false
		grouped := make(map[int][]fsm.StateID)
		for id := 0; id < n; id++ {
			grouped[blockOf[id]] = append(grouped[blockOf[id]], fsm.StateID(id))
		}

		fresh := nextBlock()
		for _, ids := range grouped {
			if len(ids) < 2 {
				continue
			}
			// split by the successor's current block
			split := make(map[int][]fsm.StateID)
			for _, id := range ids {
				succ := -1
				if nxt := m.Next(id); nxt != fsm.NoState {
					succ = blockOf[nxt]
				}
				split[succ] = append(split[succ], id)
			}
			if len(split) < 2 {
				continue
			}
			// keep the first group in place, move the rest out
			keys := make([]int, 0, len(split))
			for k := range split {
				keys = append(keys, k)
			}
			sort.Ints(keys)
			for _, k := range keys[1:] {
				for _, id := range split[k] {
					blockOf[id] = fresh
				}
				fresh++
				changed = true
			}
		}

		if !changed {
			return
		}
	}
}
