package machine

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Size limits for a register state.
const (
	// MaxWidth is the number of byte slots reserved in a State.
	MaxWidth = 24

	// MaxValues bounds N. The joint state holds N! members.
	MaxValues = 8
)

// Errors.
var (
	ErrInvalidLayout      = errors.New("invalid register layout")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrEmptyCatalog       = errors.New("instruction catalog is empty")
)

// Layout describes how a register state is laid out for a problem
// configuration of N values and S scratch registers.
type Layout struct {
	// Values is N, the number of values to sort.
	Values int

	// Scratch is S, the number of additional general registers.
	Scratch int

	// Vector appends one vector lane per general register.
	Vector bool
}

// Registers returns R = N+S.
func (l Layout) Registers() int { return l.Values + l.Scratch }

// FlagLT is the slot index of the less-than flag.
func (l Layout) FlagLT() int { return l.Registers() }

// FlagGT is the slot index of the greater-than flag.
func (l Layout) FlagGT() int { return l.Registers() + 1 }

// LaneOffset is the slot index of the first vector lane.
func (l Layout) LaneOffset() int { return l.Registers() + 2 }

// Lanes returns the number of vector lanes (0 without the vector extension).
func (l Layout) Lanes() int {
	if l.Vector {
		return l.Registers()
	}
	return 0
}

// Width returns the number of meaningful slots in a State.
func (l Layout) Width() int { return l.Registers() + 2 + l.Lanes() }

// IsRegister reports whether slot i is a general register.
func (l Layout) IsRegister(i int) bool { return i >= 0 && i < l.Registers() }

// IsLane reports whether slot i is a vector lane.
func (l Layout) IsLane(i int) bool {
	return l.Vector && i >= l.LaneOffset() && i < l.LaneOffset()+l.Lanes()
}

// IsValueSlot reports whether slot i holds a rank value rather than a flag.
func (l Layout) IsValueSlot(i int) bool { return l.IsRegister(i) || l.IsLane(i) }

// Validate checks the layout against the State limits.
func (l Layout) Validate() error {
	if l.Values < 1 || l.Values > MaxValues {
		return fmt.Errorf("%w: values must be in [1, %d], got %d", ErrInvalidLayout, MaxValues, l.Values)
	}
	if l.Scratch < 0 {
		return fmt.Errorf("%w: scratch must not be negative, got %d", ErrInvalidLayout, l.Scratch)
	}
	if l.Width() > MaxWidth {
		return fmt.Errorf("%w: state width %d exceeds %d slots", ErrInvalidLayout, l.Width(), MaxWidth)
	}
	return nil
}

// String returns a compact description such as "n=3 s=1 vector".
func (l Layout) String() string {
	s := fmt.Sprintf("n=%d s=%d", l.Values, l.Scratch)
	if l.Vector {
		s += " vector"
	}
	return s
}

// State is one permutation's register configuration. Slots past the
// layout width are always zero, so States compare by value.
type State [MaxWidth]uint8

// Compare orders states bytewise.
func (s State) Compare(o State) int {
	return bytes.Compare(s[:], o[:])
}

// Sorted reports whether the N slots starting at off hold 1..N.
func (s State) Sorted(off, n int) bool {
	for i := 0; i < n; i++ {
		if s[off+i] != uint8(i+1) {
			return false
		}
	}
	return true
}

// Format renders the state as "[r0 r1 ... | lt gt | lane0 ...]".
func (s State) Format(l Layout) string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < l.Registers(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", s[i])
	}
	fmt.Fprintf(&b, " | %d %d", s[l.FlagLT()], s[l.FlagGT()])
	if l.Vector {
		b.WriteString(" |")
		for i := 0; i < l.Lanes(); i++ {
			fmt.Fprintf(&b, " %d", s[l.LaneOffset()+i])
		}
	}
	b.WriteByte(']')
	return b.String()
}
