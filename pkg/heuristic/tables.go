// Package heuristic provides the remaining-cost estimates and pruning tests
// used to order and cut the search: precomputed lower-bound tables, ranking
// heuristics, hard cutoffs and the evaluation strategies that combine them.
package heuristic

import (
	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
)

// Unreachable is the distance reported for a state missing from a table.
const Unreachable = 1 << 20

// SwapDistance maps every permutation of 1..N to the minimum number of
// pairwise swaps that sort it (its Cayley distance to the identity).
type SwapDistance struct {
	n    int
	dist map[string]int
}

// NewSwapDistance builds the table by breadth-first search from the
// identity permutation over all transpositions.
func NewSwapDistance(n int) *SwapDistance {
	t := &SwapDistance{n: n, dist: make(map[string]int)}

	identity := make([]byte, n)
	for i := range identity {
		identity[i] = byte(i + 1)
	}
	t.dist[string(identity)] = 0
	queue := []string{string(identity)}

	for len(queue) > 0 {
		perm := queue[0]
		queue = queue[1:]
		d := t.dist[perm]
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				next := []byte(perm)
				next[i], next[j] = next[j], next[i]
				if _, seen := t.dist[string(next)]; !seen {
					t.dist[string(next)] = d + 1
					queue = append(queue, string(next))
				}
			}
		}
	}
	return t
}

// Lookup returns the swap distance of perm, which must be a permutation
// of 1..N to be found.
func (t *SwapDistance) Lookup(perm []uint8) (int, bool) {
	d, ok := t.dist[string(perm)]
	return d, ok
}

// Len returns the number of permutations in the table.
func (t *SwapDistance) Len() int { return len(t.dist) }

// Histogram returns the number of permutations at each distance.
func (t *SwapDistance) Histogram() []int {
	return histogram(t.dist)
}

// MinInstructions maps every single-permutation register state to the
// minimum number of catalog instructions that bring it to a sorted state,
// ignoring every other member of the joint state. A state absent from the
// table can never be sorted.
type MinInstructions struct {
	catalog machine.Catalog
	dist    map[machine.State]uint8

	// useful[s] lists catalog indices i with dist(Apply(catalog[i], s)) = dist(s)-1.
	useful map[machine.State][]uint16
}

// MinInstructionsOptions tunes table construction.
type MinInstructionsOptions struct {
	// RecordUseful keeps, per state, the catalog entries that make
	// progress toward the goal.
	RecordUseful bool
}

// NewMinInstructions builds the table by backward breadth-first search from
// every goal state using the inverse of each catalog instruction.
//
// Goal states hold 1..N in the first N registers (or, with vector lanes, in
// the first N lanes) and any value in every other slot.
func NewMinInstructions(l machine.Layout, c machine.Catalog, opts MinInstructionsOptions) *MinInstructions {
	t := &MinInstructions{
		catalog: c,
		dist:    make(map[machine.State]uint8),
	}
	if opts.RecordUseful {
		t.useful = make(map[machine.State][]uint16)
	}

	var queue []machine.State
	seed := func(s machine.State) {
		if _, ok := t.dist[s]; !ok {
			t.dist[s] = 0
			queue = append(queue, s)
		}
	}
	for _, s := range goalStates(l, 0) {
		seed(s)
	}
	if l.Vector {
		for _, s := range goalStates(l, l.LaneOffset()) {
			seed(s)
		}
	}

	for head := 0; head < len(queue); head++ {
		s := queue[head]
		d := t.dist[s]
		for idx, ins := range c {
			for _, p := range machine.Inverse(l, ins, s) {
				pd, seen := t.dist[p]
				if !seen {
					t.dist[p] = d + 1
					queue = append(queue, p)
					pd = d + 1
				}
				if t.useful != nil && pd == d+1 {
					t.useful[p] = append(t.useful[p], uint16(idx))
				}
			}
		}
	}
	return t
}

// goalStates enumerates states whose N slots starting at off hold 1..N and
// whose remaining slots take every legal value.
func goalStates(l machine.Layout, off int) []machine.State {
	var base machine.State
	for i := 0; i < l.Values; i++ {
		base[off+i] = uint8(i + 1)
	}
	out := []machine.State{base}
	for slot := 0; slot < l.Width(); slot++ {
		if slot >= off && slot < off+l.Values {
			continue
		}
		max := uint8(l.Values)
		if !l.IsValueSlot(slot) {
			max = 1
		}
		next := make([]machine.State, 0, len(out)*int(max+1))
		for _, s := range out {
			for v := uint8(0); v <= max; v++ {
				s[slot] = v
				next = append(next, s)
			}
		}
		out = next
	}
	return out
}

// Lookup returns the distance of one register state.
func (t *MinInstructions) Lookup(s machine.State) (int, bool) {
	d, ok := t.dist[s]
	return int(d), ok
}

// Max returns the largest member distance of js, or Unreachable and false
// when any member is missing from the table.
func (t *MinInstructions) Max(js jointstate.JointState) (int, bool) {
	max := 0
	for _, s := range js {
		d, ok := t.dist[s]
		if !ok {
			return Unreachable, false
		}
		if int(d) > max {
			max = int(d)
		}
	}
	return max, true
}

// Useful returns a mask over the catalog marking every instruction that
// moves at least one member of js one step closer to a sorted state. It
// returns nil if the table was built without RecordUseful.
func (t *MinInstructions) Useful(js jointstate.JointState) []bool {
	if t.useful == nil {
		return nil
	}
	mask := make([]bool, len(t.catalog))
	for _, s := range js {
		for _, idx := range t.useful[s] {
			mask[idx] = true
		}
	}
	return mask
}

// Len returns the number of register states in the table.
func (t *MinInstructions) Len() int { return len(t.dist) }

// Histogram returns the number of states at each distance.
func (t *MinInstructions) Histogram() []int {
	return histogram(t.dist)
}

func histogram[K comparable, V uint8 | int](m map[K]V) []int {
	var h []int
	for _, d := range m {
		for int(d) >= len(h) {
			h = append(h, 0)
		}
		h[d]++
	}
	return h
}
