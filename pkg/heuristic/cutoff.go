package heuristic

import (
	"math"

	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
)

// Cutoff decides whether a successor at length may be discarded before it
// reaches the visited store. Cutoffs are consulted in a fixed order from a
// single goroutine, so implementations may keep state.
type Cutoff interface {
	Name() string
	Cut(js jointstate.JointState, length int) bool
}

// MinInstructionsCutoff discards a joint state when its length plus the
// largest per-member relaxed distance exceeds MaxLength. It never discards
// a state that lies on a program of length at most MaxLength.
type MinInstructionsCutoff struct {
	Table     *MinInstructions
	MaxLength int
}

func (c MinInstructionsCutoff) Name() string { return "min-instructions" }

func (c MinInstructionsCutoff) Cut(js jointstate.JointState, length int) bool {
	d, ok := c.Table.Max(js)
	return !ok || length+d > c.MaxLength
}

// RankPatternCutoff discards a joint state whose rank-pattern count exceeds
// Factor times the smallest count seen so far at the same length. Which
// states survive depends on discovery order, so the cutoff can drop every
// shortest program.
type RankPatternCutoff struct {
	layout machine.Layout
	factor float64
	best   []int // smallest count seen per length
}

// NewRankPatternCutoff creates the cutoff for programs up to maxLength.
func NewRankPatternCutoff(l machine.Layout, factor float64, maxLength int) *RankPatternCutoff {
	best := make([]int, maxLength+2)
	for i := range best {
		best[i] = math.MaxInt
	}
	return &RankPatternCutoff{layout: l, factor: factor, best: best}
}

func (c *RankPatternCutoff) Name() string { return "rank-patterns" }

func (c *RankPatternCutoff) Cut(js jointstate.JointState, length int) bool {
	if length < 0 || length >= len(c.best) {
		return false
	}
	n := jointstate.RankPatterns(c.layout, js)
	if n < c.best[length] {
		c.best[length] = n
	}
	return float64(n) > c.factor*float64(c.best[length])
}
