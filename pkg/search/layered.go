package search

import (
	"context"

	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
	"golang.org/x/sync/errgroup"
)

// successor is a viable child computed by a worker.
type successor struct {
	ins   machine.Instruction
	state jointstate.JointState
	key   []byte
}

// expansion is one worker's output for one parent entry.
type expansion struct {
	children []successor
	stats    Stats
}

// runLayered processes all entries of length k together. Workers only read
// the generation and write their own expansion slot; the visited store,
// cutoffs and trace arena are touched only in the merge that follows
// g.Wait, in parent then catalog order, so results match a sequential
// breadth-first search.
func (d *Driver) runLayered(ctx context.Context, sink Sink) (Outcome, error) {
	root, err := d.seed()
	if err != nil {
		return Aborted, err
	}
	l := d.cfg.Layout

	gen := []*entry{root}
	defer func() {
		for _, e := range gen {
			d.arena.Release(e.node)
		}
	}()

	for length := 0; len(gen) > 0; length++ {
		if err := ctx.Err(); err != nil {
			return Aborted, err
		}
		d.stats.Length = length
		d.stats.setOpen(len(gen))

		var parents []*entry
		for _, e := range gen {
			d.stats.Visited++
			if jointstate.IsGoal(l, e.state) {
				if err := d.emit(sink, e); err != nil {
					return Aborted, err
				}
				if !d.cfg.AllSolutions {
					return SolutionFound, nil
				}
				continue
			}
			if length >= d.cfg.MaxLength {
				d.stats.Bounded++
				continue
			}
			parents = append(parents, e)
		}

		results := make([]expansion, len(parents))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.cfg.Workers)
		for i, e := range parents {
			i, e := i, e
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = d.expand(e)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Aborted, err
		}

		next, err := d.merge(parents, results, length+1)
		if err != nil {
			return Aborted, err
		}
		for _, e := range gen {
			d.arena.Release(e.node)
		}
		gen = next

		d.publish(Searching)
		if d.cfg.ProgressEvery > 0 {
			d.log.WithFields(d.stats.Fields()).WithField("generation", length+1).Info("generation merged")
		}
	}

	if d.stats.Solutions > 0 {
		return SolutionFound, nil
	}
	return Exhausted, nil
}

// expand generates the viable children of e. It runs on a worker and
// touches nothing shared.
func (d *Driver) expand(e *entry) expansion {
	var out expansion
	l := d.cfg.Layout
	mask := d.candidates(e.state)
	for idx, ins := range d.catalog {
		if mask != nil && !mask[idx] {
			continue
		}
		next := jointstate.Step(l, ins, e.state)
		out.stats.Generated++
		if !jointstate.Viable(l, next) {
			out.stats.Unviable++
			continue
		}
		out.children = append(out.children, successor{
			ins:   ins,
			state: next,
			key:   jointstate.Key(l, next, d.cfg.KeyMode),
		})
	}
	return out
}

// merge is the barrier: it folds worker counts, applies cutoffs, records
// children in the visited store and builds the next generation.
func (d *Driver) merge(parents []*entry, results []expansion, length int) ([]*entry, error) {
	var next []*entry
	for i, res := range results {
		d.stats.Expanded++
		d.stats.addWorker(res.stats)
		for _, c := range res.children {
			if d.cut(c.state, length) {
				d.stats.Cut++
				continue
			}
			accepted, err := d.store.Put(c.key, length)
			if err != nil {
				return nil, &CapacityError{Op: "put", Err: err}
			}
			if !accepted {
				d.stats.Duplicate++
				continue
			}
			next = append(next, &entry{
				length: length,
				state:  c.state,
				key:    c.key,
				node:   d.arena.Extend(parents[i].node, c.ins),
			})
		}
	}
	d.stats.setOpen(len(next))
	return next, nil
}
