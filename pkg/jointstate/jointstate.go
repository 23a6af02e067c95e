// Package jointstate implements the joint state searched over: the set of
// register states obtained by running one candidate program against every
// ordering of the input values at once.
//
// A JointState is kept sorted and free of duplicates. Members that converge
// to the same register pattern are merged, which is what keeps the search
// space finite.
package jointstate

import (
	"sort"
	"strings"

	"github.com/fortiblox/regsort/pkg/machine"
)

// JointState is a sorted, duplicate-free set of register states.
type JointState []machine.State

// Initial returns the joint state before any instruction: one member per
// permutation of 1..N, scratch registers and flags zeroed, and vector lanes
// (when present) holding a copy of the inputs.
func Initial(l machine.Layout) JointState {
	perms := Permutations(l.Values)
	js := make(JointState, 0, len(perms))
	for _, p := range perms {
		var s machine.State
		copy(s[:], p)
		if l.Vector {
			copy(s[l.LaneOffset():], p)
		}
		js = append(js, s)
	}
	return normalize(js)
}

// FromMembers builds a joint state from members in any order, possibly with
// repeats.
func FromMembers(members []machine.State) JointState {
	js := make(JointState, len(members))
	copy(js, members)
	return normalize(js)
}

// Step applies ins to every member and merges members that become equal.
func Step(l machine.Layout, ins machine.Instruction, js JointState) JointState {
	out := make(JointState, len(js))
	for i, s := range js {
		out[i] = machine.Apply(l, ins, s)
	}
	return normalize(out)
}

// Run replays a program from js without any pruning.
func Run(l machine.Layout, js JointState, program []machine.Instruction) JointState {
	for _, ins := range program {
		js = Step(l, ins, js)
	}
	return js
}

// normalize sorts js in place and drops repeated members.
func normalize(js JointState) JointState {
	sort.Slice(js, func(i, j int) bool { return js[i].Compare(js[j]) < 0 })
	if len(js) < 2 {
		return js
	}
	w := 1
	for r := 1; r < len(js); r++ {
		if js[r] != js[w-1] {
			js[w] = js[r]
			w++
		}
	}
	return js[:w]
}

// Viable reports whether every member still holds every rank 1..N in some
// register or lane. A member that lost a rank can never be sorted, so a
// joint state failing this test is pruned.
func Viable(l machine.Layout, js JointState) bool {
	full := uint16(1)<<uint(l.Values+1) - 2 // bits 1..N
	for _, s := range js {
		var seen uint16
		for i := 0; i < l.Registers(); i++ {
			seen |= 1 << s[i]
		}
		for i := 0; i < l.Lanes(); i++ {
			seen |= 1 << s[l.LaneOffset()+i]
		}
		if seen&full != full {
			return false
		}
	}
	return true
}

// IsGoal reports whether every member's first N registers hold 1..N, or,
// with vector lanes, every member's first N lanes do.
func IsGoal(l machine.Layout, js JointState) bool {
	if len(js) == 0 {
		return false
	}
	if allSorted(js, 0, l.Values) {
		return true
	}
	return l.Vector && allSorted(js, l.LaneOffset(), l.Values)
}

func allSorted(js JointState, off, n int) bool {
	for _, s := range js {
		if !s.Sorted(off, n) {
			return false
		}
	}
	return true
}

// RankPatterns counts the distinct patterns of the first N registers across
// members. Every distinct pattern still has to be mapped onto 1..N.
func RankPatterns(l machine.Layout, js JointState) int {
	n := l.Values
	seen := make(map[string]struct{}, len(js))
	for _, s := range js {
		seen[string(s[:n])] = struct{}{}
	}
	return len(seen)
}

// Format renders the members one per line.
func Format(l machine.Layout, js JointState) string {
	lines := make([]string, len(js))
	for i, s := range js {
		lines[i] = s.Format(l)
	}
	return strings.Join(lines, "\n")
}

// Permutations returns every permutation of 1..n in lexicographic order.
func Permutations(n int) [][]uint8 {
	p := make([]uint8, n)
	for i := range p {
		p[i] = uint8(i + 1)
	}
	var out [][]uint8
	for {
		out = append(out, append([]uint8(nil), p...))
		if !nextPermutation(p) {
			return out
		}
	}
}

func nextPermutation(p []uint8) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for a, b := i+1, len(p)-1; a < b; a, b = a+1, b-1 {
		p[a], p[b] = p[b], p[a]
	}
	return true
}
