package heuristic

import (
	"errors"
	"fmt"

	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
)

// ErrUnknown is returned for an unrecognised heuristic, strategy or cutoff
// name.
var ErrUnknown = errors.New("unknown evaluation setting")

// Heuristic estimates the remaining work for a joint state.
type Heuristic interface {
	Name() string
	Estimate(js jointstate.JointState) int
}

// Heuristic names accepted by New.
const (
	NameZero            = "zero"
	NameRankPatterns    = "rank-patterns"
	NameMinInstructions = "min-instructions"
	NameSwapDistance    = "swap-distance"
)

// Zero estimates nothing. With it A* degrades to Dijkstra.
type Zero struct{}

func (Zero) Name() string { return NameZero }

func (Zero) Estimate(jointstate.JointState) int { return 0 }

// RankPatterns counts the distinct first-N register patterns. It is not
// admissible but ranks candidates well in practice.
type RankPatterns struct {
	Layout machine.Layout
}

func (h RankPatterns) Name() string { return NameRankPatterns }

func (h RankPatterns) Estimate(js jointstate.JointState) int {
	return jointstate.RankPatterns(h.Layout, js)
}

// MaxMinInstructions is the largest per-member relaxed instruction count.
// It never overstates the remaining length, so A* with it stays optimal.
type MaxMinInstructions struct {
	Table *MinInstructions
}

func (h MaxMinInstructions) Name() string { return NameMinInstructions }

func (h MaxMinInstructions) Estimate(js jointstate.JointState) int {
	d, _ := h.Table.Max(js)
	return d
}

// MaxSwaps is the largest swap distance over members whose first N
// registers still form a permutation.
type MaxSwaps struct {
	Layout machine.Layout
	Table  *SwapDistance
}

func (h MaxSwaps) Name() string { return NameSwapDistance }

func (h MaxSwaps) Estimate(js jointstate.JointState) int {
	max := 0
	for _, s := range js {
		if d, ok := h.Table.Lookup(s[:h.Layout.Values]); ok && d > max {
			max = d
		}
	}
	return max
}

// Tables holds the precomputed tables a heuristic or cutoff may need.
type Tables struct {
	Swap *SwapDistance
	Min  *MinInstructions
}

// New returns the heuristic called name. Table-backed heuristics require
// the matching table.
func New(name string, l machine.Layout, t Tables) (Heuristic, error) {
	switch name {
	case NameZero:
		return Zero{}, nil
	case NameRankPatterns, "":
		return RankPatterns{Layout: l}, nil
	case NameMinInstructions:
		if t.Min == nil {
			return nil, fmt.Errorf("heuristic %s: min-instructions table not built", name)
		}
		return MaxMinInstructions{Table: t.Min}, nil
	case NameSwapDistance:
		if t.Swap == nil {
			return nil, fmt.Errorf("heuristic %s: swap-distance table not built", name)
		}
		return MaxSwaps{Layout: l, Table: t.Swap}, nil
	}
	return nil, fmt.Errorf("%w: heuristic %q", ErrUnknown, name)
}

// Strategy turns a length and an estimate into a frontier priority.
// Lower priorities are expanded first.
type Strategy uint8

const (
	// AStar orders by length plus estimate.
	AStar Strategy = iota

	// Dijkstra orders by length alone.
	Dijkstra

	// Greedy orders by estimate alone.
	Greedy
)

var strategyNames = [...]string{
	AStar:    "astar",
	Dijkstra: "dijkstra",
	Greedy:   "greedy",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool { return int(s) < len(strategyNames) }

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: strategy %q", ErrUnknown, name)
}

// Priority combines length and estimate.
func (s Strategy) Priority(length, estimate int) int {
	switch s {
	case Dijkstra:
		return length
	case Greedy:
		return estimate
	}
	return length + estimate
}

// UsesEstimate reports whether the strategy reads the heuristic at all.
func (s Strategy) UsesEstimate() bool { return s != Dijkstra }
