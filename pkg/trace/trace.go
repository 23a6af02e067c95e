// Package trace stores the instruction histories of open search nodes as a
// shared tree of parent links.
//
// Nodes live in an arena addressed by NodeID and carry explicit reference
// counts. A node is referenced by each child and by the holder that called
// Extend for it, and is recycled when the count drops to zero.
// The arena is not safe for concurrent use.
package trace

import (
	"fmt"

	"github.com/fortiblox/regsort/pkg/machine"
)

// NodeID addresses a node in an Arena.
type NodeID int32

// Root is the empty program. It has no node and is never released.
const Root NodeID = -1

type node struct {
	ins    machine.Instruction
	parent NodeID
	depth  int32
	refs   int32
}

// Arena owns every trace node of one search.
type Arena struct {
	nodes []node
	free  []NodeID
	live  int
	peak  int
}

// NewArena creates an arena with room for sizeHint nodes.
func NewArena(sizeHint int) *Arena {
	return &Arena{nodes: make([]node, 0, sizeHint)}
}

// Extend appends ins to the program ending at parent and returns the new
// node holding one reference for the caller.
func (a *Arena) Extend(parent NodeID, ins machine.Instruction) NodeID {
	depth := int32(1)
	if parent != Root {
		p := a.at(parent)
		p.refs++
		depth = p.depth + 1
	}

	n := node{ins: ins, parent: parent, depth: depth, refs: 1}
	var id NodeID
	if k := len(a.free); k > 0 {
		id = a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[id] = n
	} else {
		id = NodeID(len(a.nodes))
		a.nodes = append(a.nodes, n)
	}

	a.live++
	if a.live > a.peak {
		a.peak = a.live
	}
	return id
}

// Release drops a reference to id. Nodes reaching zero are recycled and
// release their parent in turn.
func (a *Arena) Release(id NodeID) {
	for id != Root {
		n := a.at(id)
		n.refs--
		if n.refs > 0 {
			return
		}
		parent := n.parent
		*n = node{parent: Root}
		a.free = append(a.free, id)
		a.live--
		id = parent
	}
}

// Reconstruct returns the program ending at id in execution order.
func (a *Arena) Reconstruct(id NodeID) []machine.Instruction {
	prog := make([]machine.Instruction, a.Depth(id))
	for i := len(prog) - 1; id != Root; i-- {
		n := a.at(id)
		prog[i] = n.ins
		id = n.parent
	}
	return prog
}

// Depth returns the program length ending at id.
func (a *Arena) Depth(id NodeID) int {
	if id == Root {
		return 0
	}
	return int(a.at(id).depth)
}

// Live returns the number of referenced nodes.
func (a *Arena) Live() int { return a.live }

// Peak returns the largest Live value seen.
func (a *Arena) Peak() int { return a.peak }

func (a *Arena) at(id NodeID) *node {
	if id < 0 || int(id) >= len(a.nodes) || a.nodes[id].refs <= 0 {
		panic(fmt.Sprintf("trace: use of released node %d", id))
	}
	return &a.nodes[id]
}
