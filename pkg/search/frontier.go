package search

import (
	"container/heap"

	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/trace"
)

// entry is one open search node.
type entry struct {
	priority int
	seq      uint64
	length   int
	state    jointstate.JointState
	key      []byte
	node     trace.NodeID
}

// frontier is a min-heap on priority. Equal priorities pop in insertion
// order, which makes runs repeatable across store backends.
type frontier struct {
	items []*entry
	next  uint64
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) Less(i, j int) bool {
	a, b := f.items[i], f.items[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (f *frontier) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }

func (f *frontier) Push(x any) { f.items = append(f.items, x.(*entry)) }

func (f *frontier) Pop() any {
	n := len(f.items)
	e := f.items[n-1]
	f.items[n-1] = nil
	f.items = f.items[:n-1]
	return e
}

func (f *frontier) push(e *entry) {
	e.seq = f.next
	f.next++
	heap.Push(f, e)
}

func (f *frontier) pop() *entry {
	return heap.Pop(f).(*entry)
}

// drain releases every open entry's trace node.
func (f *frontier) drain(a *trace.Arena) {
	for _, e := range f.items {
		a.Release(e.node)
	}
	f.items = nil
}
