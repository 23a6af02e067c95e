package machine

import (
	"errors"
	"strings"
	"testing"
)

func state(vals ...uint8) State {
	var s State
	copy(s[:], vals)
	return s
}

// TestApply tests the transition function on a 3-value, 1-scratch layout.
func TestApply(t *testing.T) {
	l := Layout{Values: 3, Scratch: 1}
	lt, gt := l.FlagLT(), l.FlagGT()

	tests := []struct {
		name string
		ins  Instruction
		in   State
		want State
	}{
		{"cmp less", Instruction{OpCmp, 0, 1}, state(1, 2, 3, 0, 0, 0), state(1, 2, 3, 0, 1, 0)},
		{"cmp greater", Instruction{OpCmp, 0, 1}, state(2, 1, 3, 0, 1, 0), state(2, 1, 3, 0, 0, 1)},
		{"cmp equal clears", Instruction{OpCmp, 0, 1}, state(2, 2, 3, 0, 1, 1), state(2, 2, 3, 0, 0, 0)},
		{"mov", Instruction{OpMov, 3, 0}, state(2, 1, 3, 0, 0, 0), state(2, 1, 3, 2, 0, 0)},
		{"cmovg taken", Instruction{OpCmovG, 0, 1}, state(2, 1, 3, 0, 0, 1), state(1, 1, 3, 0, 0, 1)},
		{"cmovg skipped", Instruction{OpCmovG, 0, 1}, state(1, 2, 3, 0, 1, 0), state(1, 2, 3, 0, 1, 0)},
		{"cmovl taken", Instruction{OpCmovL, 2, 0}, state(1, 2, 3, 0, 1, 0), state(1, 2, 1, 0, 1, 0)},
		{"cmovl skipped", Instruction{OpCmovL, 2, 0}, state(2, 1, 3, 0, 0, 1), state(2, 1, 3, 0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(l, tt.ins, tt.in)
			if got != tt.want {
				t.Errorf("Apply(%s, %s) = %s, want %s", tt.ins, tt.in.Format(l), got.Format(l), tt.want.Format(l))
			}
			if tt.ins.Op != OpCmp && (got[lt] != tt.in[lt] || got[gt] != tt.in[gt]) {
				t.Errorf("%s changed the flags", tt.ins)
			}
		})
	}
}

// TestApplyVector tests the lane opcodes.
func TestApplyVector(t *testing.T) {
	l := Layout{Values: 2, Scratch: 0, Vector: true}
	off := uint8(l.LaneOffset())

	s := state(2, 1, 0, 0, 2, 1)
	if got := Apply(l, Instruction{OpMin, off, off + 1}, s); got[off] != 1 || got[off+1] != 1 {
		t.Errorf("MIN = %s", got.Format(l))
	}
	if got := Apply(l, Instruction{OpMax, off + 1, off}, s); got[off+1] != 2 || got[off] != 2 {
		t.Errorf("MAX = %s", got.Format(l))
	}
	if got := Apply(l, Instruction{OpMovd, 0, off + 1}, s); got[0] != 1 {
		t.Errorf("MOVD reg<-lane = %s", got.Format(l))
	}
	if got := Apply(l, Instruction{OpMovdqa, off, off + 1}, s); got[off] != 1 {
		t.Errorf("MOVDQA = %s", got.Format(l))
	}
}

// allStates enumerates every state of a layout: values 0..N in value
// slots and 0/1 in the flags.
func allStates(l Layout) []State {
	var slots []int
	for i := 0; i < l.Width(); i++ {
		slots = append(slots, i)
	}
	out := []State{{}}
	for _, slot := range slots {
		max := uint8(l.Values)
		if !l.IsValueSlot(slot) {
			max = 1
		}
		var next []State
		for _, s := range out {
			for v := uint8(0); v <= max; v++ {
				p := s
				p[slot] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// TestInverseMatchesBruteForce checks Inverse against exhaustive forward
// enumeration for every instruction and every state.
func TestInverseMatchesBruteForce(t *testing.T) {
	layouts := []Layout{
		{Values: 2, Scratch: 1},
		{Values: 2, Scratch: 0, Vector: true},
	}
	for _, l := range layouts {
		t.Run(l.String(), func(t *testing.T) {
			space := allStates(l)
			catalog := NewCatalog(l, CatalogOptions{IncludeSelfMoves: true, Vector: true})
			for _, ins := range catalog {
				preds := make(map[State][]State)
				for _, p := range space {
					s := Apply(l, ins, p)
					preds[s] = append(preds[s], p)
				}
				for _, s := range space {
					got := Inverse(l, ins, s)
					want := preds[s]
					if len(got) != len(want) {
						t.Fatalf("Inverse(%s, %s): %d predecessors, want %d", ins, s.Format(l), len(got), len(want))
					}
					seen := make(map[State]bool, len(want))
					for _, p := range want {
						seen[p] = true
					}
					for _, p := range got {
						if !seen[p] {
							t.Fatalf("Inverse(%s, %s) returned non-predecessor %s", ins, s.Format(l), p.Format(l))
						}
						if Apply(l, ins, p) != s {
							t.Fatalf("Apply(Inverse) mismatch for %s", ins)
						}
					}
				}
			}
		})
	}
}

// TestCatalogSize tests the catalog enumeration counts.
func TestCatalogSize(t *testing.T) {
	l := Layout{Values: 3, Scratch: 1}

	if got := len(DefaultCatalog(l)); got != 3*12+6 {
		t.Errorf("core catalog = %d, want %d", got, 3*12+6)
	}
	if got := len(NewCatalog(l, CatalogOptions{IncludeSelfMoves: true})); got != 54 {
		t.Errorf("catalog with self moves = %d, want 54", got)
	}

	lv := Layout{Values: 3, Scratch: 1, Vector: true}
	// core 42 + lanes 3*12 + movd 2*16
	if got := len(DefaultCatalog(lv)); got != 42+36+32 {
		t.Errorf("vector catalog = %d, want %d", got, 42+36+32)
	}
	if err := DefaultCatalog(lv).Validate(lv); err != nil {
		t.Errorf("Validate(vector catalog) = %v", err)
	}
}

// TestCatalogValidate tests setup-time operand checks.
func TestCatalogValidate(t *testing.T) {
	l := Layout{Values: 3, Scratch: 1}

	if err := DefaultCatalog(l).Validate(l); err != nil {
		t.Fatalf("Validate(default) = %v", err)
	}

	bad := []Catalog{
		{{Op: OpMov, Dst: 4, Src: 0}},
		{{Op: OpCmp, Dst: 0, Src: 5}},
		{{Op: OpMin, Dst: 0, Src: 1}},
		{{Op: Opcode(42), Dst: 0, Src: 1}},
	}
	for _, c := range bad {
		if err := c.Validate(l); !errors.Is(err, ErrInvalidInstruction) {
			t.Errorf("Validate(%v) = %v, want ErrInvalidInstruction", c, err)
		}
	}

	err := (Catalog{{Op: OpMax, Dst: 5, Src: 6}}).Validate(l)
	if !errors.Is(err, ErrInvalidInstruction) || !strings.Contains(err.Error(), "vector lanes") {
		t.Errorf("Validate(vector op, scalar layout) = %v", err)
	}
	for _, op := range []Opcode{OpCmp, OpMov, OpCmovG, OpCmovL} {
		if op.IsVector() {
			t.Errorf("%s reported as vector", op)
		}
	}
	for _, op := range []Opcode{OpMin, OpMax, OpMovd, OpMovdqa} {
		if !op.IsVector() {
			t.Errorf("%s not reported as vector", op)
		}
	}

	if err := (Catalog{}).Validate(l); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Validate(empty) = %v, want ErrEmptyCatalog", err)
	}
	if err := DefaultCatalog(l).Validate(Layout{Values: 0}); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("Validate(bad layout) = %v, want ErrInvalidLayout", err)
	}
	if err := (Layout{Values: 8, Scratch: 8, Vector: true}).Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("oversized layout accepted: %v", err)
	}
}

// TestInstructionRendering tests human and assembly output.
func TestInstructionRendering(t *testing.T) {
	l := Layout{Values: 3, Scratch: 1}
	ins := Instruction{Op: OpCmovG, Dst: 0, Src: 3}

	if got := ins.String(); got != "CMOVG 1 4" {
		t.Errorf("String() = %q, want %q", got, "CMOVG 1 4")
	}
	if got := ins.Asm(l); got != "cmovg r8d, eax" {
		t.Errorf("Asm() = %q, want %q", got, "cmovg r8d, eax")
	}

	parsed, err := ParseInstruction("cmovg 1, 4")
	if err != nil {
		t.Fatalf("ParseInstruction() = %v", err)
	}
	if parsed != ins {
		t.Errorf("ParseInstruction() = %v, want %v", parsed, ins)
	}

	for _, s := range []string{"", "CMP 1", "JMP 1 2", "MOV 0 1", "MOV a 1"} {
		if _, err := ParseInstruction(s); !errors.Is(err, ErrInvalidInstruction) {
			t.Errorf("ParseInstruction(%q) = %v, want ErrInvalidInstruction", s, err)
		}
	}

	lv := Layout{Values: 2, Scratch: 0, Vector: true}
	if got := (Instruction{Op: OpMin, Dst: 4, Src: 5}).Asm(lv); got != "pminud xmm1, xmm0" {
		t.Errorf("Asm(min) = %q", got)
	}
}
