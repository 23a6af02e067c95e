package heuristic

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
)

func TestSwapDistance(t *testing.T) {
	tests := []struct {
		n    int
		hist []int
	}{
		{1, []int{1}},
		{3, []int{1, 3, 2}},
		{4, []int{1, 6, 11, 6}},
	}
	for _, tt := range tests {
		table := NewSwapDistance(tt.n)
		if got := table.Histogram(); !reflect.DeepEqual(got, tt.hist) {
			t.Errorf("n=%d: Histogram() = %v, want %v", tt.n, got, tt.hist)
		}
	}

	table := NewSwapDistance(4)
	cases := map[string]int{
		"\x01\x02\x03\x04": 0,
		"\x02\x01\x03\x04": 1,
		"\x02\x03\x04\x01": 3,
		"\x02\x01\x04\x03": 2,
	}
	for perm, want := range cases {
		if got, ok := table.Lookup([]uint8(perm)); !ok || got != want {
			t.Errorf("Lookup(%v) = %d, %v, want %d", []uint8(perm), got, ok, want)
		}
	}
	if _, ok := table.Lookup([]uint8{1, 1, 2, 3}); ok {
		t.Error("non-permutation found in swap table")
	}
}

func allStates(l machine.Layout) []machine.State {
	out := []machine.State{{}}
	for slot := 0; slot < l.Width(); slot++ {
		max := uint8(l.Values)
		if !l.IsValueSlot(slot) {
			max = 1
		}
		var next []machine.State
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

// TestMinInstructionsConsistent checks the BFS table against its defining
// recurrence over the whole state space.
func TestMinInstructionsConsistent(t *testing.T) {
	l := machine.Layout{Values: 2, Scratch: 1}
	c := machine.DefaultCatalog(l)
	table := NewMinInstructions(l, c, MinInstructionsOptions{})

	for _, s := range allStates(l) {
		d, ok := table.Lookup(s)
		if !ok {
			for _, ins := range c {
				if _, reach := table.Lookup(machine.Apply(l, ins, s)); reach {
					t.Fatalf("%s missing but %s reaches a tabled state", s.Format(l), ins)
				}
			}
			continue
		}
		if s.Sorted(0, l.Values) {
			if d != 0 {
				t.Fatalf("goal %s has distance %d", s.Format(l), d)
			}
			continue
		}
		best := Unreachable
		for _, ins := range c {
			if nd, reach := table.Lookup(machine.Apply(l, ins, s)); reach && nd < best {
				best = nd
			}
		}
		if best != d-1 {
			t.Fatalf("%s: distance %d but best successor %d", s.Format(l), d, best)
		}
	}
}

func TestMinInstructionsValues(t *testing.T) {
	l := machine.Layout{Values: 2, Scratch: 1}
	c := machine.DefaultCatalog(l)
	table := NewMinInstructions(l, c, MinInstructionsOptions{RecordUseful: true})

	if got, ok := table.Max(jointstate.Initial(l)); !ok || got != 3 {
		t.Errorf("Max(initial) = %d, %v, want 3", got, ok)
	}
	lost := jointstate.FromMembers([]machine.State{{1, 1, 0}})
	if got, ok := table.Max(lost); ok || got != Unreachable {
		t.Errorf("Max(lost rank) = %d, %v, want unreachable", got, ok)
	}

	index := func(ins machine.Instruction) int {
		for i, x := range c {
			if x == ins {
				return i
			}
		}
		t.Fatalf("%s not in catalog", ins)
		return -1
	}
	reversed := jointstate.FromMembers([]machine.State{{2, 1, 0}})
	mask := table.Useful(reversed)
	if !mask[index(machine.Instruction{Op: machine.OpMov, Dst: 2, Src: 0})] {
		t.Error("MOV 3 1 not marked useful")
	}
	if mask[index(machine.Instruction{Op: machine.OpMov, Dst: 0, Src: 1})] {
		t.Error("MOV 1 2 marked useful although it destroys rank 2")
	}

	if NewMinInstructions(l, c, MinInstructionsOptions{}).Useful(reversed) != nil {
		t.Error("Useful without RecordUseful should be nil")
	}
}

func TestMinInstructionsVectorGoal(t *testing.T) {
	l := machine.Layout{Values: 2, Scratch: 0, Vector: true}
	table := NewMinInstructions(l, machine.DefaultCatalog(l), MinInstructionsOptions{})
	// registers reversed, lanes sorted
	if d, ok := table.Lookup(machine.State{2, 1, 0, 0, 1, 2}); !ok || d != 0 {
		t.Errorf("lane goal distance = %d, %v, want 0", d, ok)
	}
	// both reversed: one MIN/MAX pair sorts the lanes
	if d, ok := table.Lookup(machine.State{2, 1, 0, 0, 2, 1}); !ok || d > 3 {
		t.Errorf("reversed lanes distance = %d, %v", d, ok)
	}
}

func TestHeuristics(t *testing.T) {
	l := machine.Layout{Values: 3, Scratch: 1}
	tables := Tables{
		Swap: NewSwapDistance(l.Values),
		Min:  NewMinInstructions(l, machine.DefaultCatalog(l), MinInstructionsOptions{}),
	}
	js := jointstate.Initial(l)

	want := map[string]int{
		NameZero:         0,
		NameRankPatterns: 6,
		NameSwapDistance: 2,
	}
	for name, w := range want {
		h, err := New(name, l, tables)
		if err != nil {
			t.Fatalf("New(%q) = %v", name, err)
		}
		if h.Name() != name {
			t.Errorf("Name() = %q, want %q", h.Name(), name)
		}
		if got := h.Estimate(js); got != w {
			t.Errorf("%s.Estimate(initial) = %d, want %d", name, got, w)
		}
	}

	h, err := New(NameMinInstructions, l, tables)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Estimate(js); got <= 0 || got > 11 {
		t.Errorf("min-instructions estimate = %d, want in (0, 11]", got)
	}

	if _, err := New(NameMinInstructions, l, Tables{}); err == nil {
		t.Error("New without table succeeded")
	}
	if _, err := New("oracle", l, tables); !errors.Is(err, ErrUnknown) {
		t.Errorf("New(oracle) = %v, want ErrUnknown", err)
	}
}

func TestStrategy(t *testing.T) {
	tests := []struct {
		s    Strategy
		want int
	}{
		{AStar, 7},
		{Dijkstra, 4},
		{Greedy, 3},
	}
	for _, tt := range tests {
		if got := tt.s.Priority(4, 3); got != tt.want {
			t.Errorf("%s.Priority(4, 3) = %d, want %d", tt.s, got, tt.want)
		}
		parsed, err := ParseStrategy(tt.s.String())
		if err != nil || parsed != tt.s {
			t.Errorf("ParseStrategy(%q) = %v, %v", tt.s, parsed, err)
		}
	}
	if _, err := ParseStrategy("bfs"); !errors.Is(err, ErrUnknown) {
		t.Errorf("ParseStrategy(bfs) = %v", err)
	}
}

func TestCutoffs(t *testing.T) {
	l := machine.Layout{Values: 2, Scratch: 1}
	table := NewMinInstructions(l, machine.DefaultCatalog(l), MinInstructionsOptions{})
	js := jointstate.Initial(l)

	if (MinInstructionsCutoff{Table: table, MaxLength: 3}).Cut(js, 0) {
		t.Error("cut a state that fits the budget")
	}
	if !(MinInstructionsCutoff{Table: table, MaxLength: 3}).Cut(js, 1) {
		t.Error("kept a state that cannot finish within the budget")
	}

	c := NewRankPatternCutoff(machine.Layout{Values: 3, Scratch: 1}, 1.0, 5)
	two := jointstate.FromMembers([]machine.State{{1, 2, 3}, {2, 1, 3}})
	three := jointstate.FromMembers([]machine.State{{1, 2, 3}, {2, 1, 3}, {3, 2, 1}})
	one := jointstate.FromMembers([]machine.State{{1, 2, 3}})
	if c.Cut(two, 1) {
		t.Error("first state at a length was cut")
	}
	if !c.Cut(three, 1) {
		t.Error("state above the best count was kept")
	}
	if c.Cut(one, 1) || c.Cut(two, 2) {
		t.Error("state at or below the best count was cut")
	}
	if c.Cut(three, 99) {
		t.Error("out-of-range length was cut")
	}
}
