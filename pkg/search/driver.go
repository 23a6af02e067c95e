// Package search implements the best-first search for the shortest program
// that sorts every ordering of N values at once.
//
// A Driver owns the frontier, the trace arena and the counters of one run,
// and consults a visited.Store for the shortest length known per canonical
// key. The sequential driver pops the entry with the lowest priority under
// the configured strategy. The layered driver expands one generation at a
// time across worker goroutines and merges at a single barrier.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fortiblox/regsort/pkg/heuristic"
	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
	"github.com/fortiblox/regsort/pkg/trace"
	"github.com/fortiblox/regsort/pkg/visited"
	"github.com/sirupsen/logrus"
)

// length limits accepted by New.
const maxProgramLength = 1 << 12

// Config holds search options.
type Config struct {
	// Layout is the register layout (N, S and optional vector lanes).
	Layout machine.Layout

	// Catalog is the instruction list to search over. Nil uses the
	// default catalog for Layout.
	Catalog machine.Catalog

	// MaxLength is the longest program considered.
	MaxLength int

	// Strategy orders the frontier.
	Strategy heuristic.Strategy

	// Heuristic names the ranking heuristic.
	Heuristic string

	// KeyMode selects the canonical key.
	KeyMode jointstate.KeyMode

	// AllSolutions keeps searching after the first solution and emits
	// every goal entry popped.
	AllSolutions bool

	// MinInstructionCutoff prunes states that cannot be sorted within
	// MaxLength according to the min-instructions table.
	MinInstructionCutoff bool

	// RankPatternFactor enables the rank-pattern cutoff when positive.
	RankPatternFactor float64

	// UsefulOnly restricts expansion to instructions that bring some
	// member closer to sorted. This may lose optimality.
	UsefulOnly bool

	// Layered selects the generation-synchronous parallel driver.
	Layered bool

	// Workers bounds concurrent expansion in the layered driver.
	Workers int

	// ProgressEvery is the number of pops between progress log lines.
	// Zero disables progress logging.
	ProgressEvery int

	// Logger receives progress and outcome lines. Nil uses the standard
	// logger.
	Logger logrus.FieldLogger
}

// DefaultConfig returns the standard configuration: three values, one
// scratch register, programs up to 11 instructions, A* on rank patterns
// with the min-instructions cutoff.
func DefaultConfig() Config {
	return Config{
		Layout:               machine.Layout{Values: 3, Scratch: 1},
		MaxLength:            11,
		Strategy:             heuristic.AStar,
		Heuristic:            heuristic.NameRankPatterns,
		KeyMode:              jointstate.KeyExact,
		MinInstructionCutoff: true,
		Workers:              4,
		ProgressEvery:        100000,
	}
}

// Solution is one emitted program.
type Solution struct {
	Program []machine.Instruction `json:"program"`
	Length  int                   `json:"length"`
	Index   uint64                `json:"index"`
	Layout  machine.Layout        `json:"layout"`
	Elapsed time.Duration         `json:"elapsed"`
}

// Sink receives solutions as they are found.
type Sink interface {
	Emit(s Solution) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Solution) error

// Emit implements Sink.
func (f SinkFunc) Emit(s Solution) error { return f(s) }

// Result summarises a finished run.
type Result struct {
	Outcome Outcome
	Best    []machine.Instruction
	Stats   Stats
}

// Driver runs one search.
type Driver struct {
	cfg     Config
	catalog machine.Catalog
	store   visited.Store
	est     heuristic.Heuristic
	cutoffs []heuristic.Cutoff
	tables  heuristic.Tables
	log     logrus.FieldLogger

	arena *trace.Arena
	open  frontier
	stats Stats
	best  []machine.Instruction
	start time.Time

	mu      sync.RWMutex
	outcome Outcome
	shared  Stats
}

// New validates cfg, builds the precomputed tables it needs and returns a
// driver bound to store. The store must be empty: a run cannot resume from
// the entries of an earlier one, because the frontier that produced them is
// not persisted and stored lengths would reject the states it held. A
// non-empty store is a configuration error wrapping visited.ErrStoreNotEmpty.
func New(cfg Config, store visited.Store) (*Driver, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = machine.DefaultCatalog(cfg.Layout)
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, configError("layout", "registers do not fit", err)
	}
	if err := cfg.Catalog.Validate(cfg.Layout); err != nil {
		return nil, configError("catalog", "catalog does not match the registers", err)
	}
	if cfg.MaxLength < 0 || cfg.MaxLength > maxProgramLength {
		return nil, configError("max_length", fmt.Sprintf("must be in [0, %d], got %d", maxProgramLength, cfg.MaxLength), nil)
	}
	if cfg.RankPatternFactor < 0 {
		return nil, configError("rank_pattern_cutoff", "factor must not be negative", nil)
	}
	if !cfg.Strategy.Valid() {
		return nil, configError("strategy", "unknown strategy", heuristic.ErrUnknown)
	}
	if cfg.Layered && cfg.Workers < 1 {
		return nil, configError("workers", "layered search needs at least one worker", nil)
	}
	if store == nil {
		return nil, configError("store", "visited store is required", nil)
	}
	if n := store.Len(); n > 0 {
		return nil, configError("store", fmt.Sprintf("holds %d entries from an earlier run; reset it", n), visited.ErrStoreNotEmpty)
	}

	d := &Driver{
		cfg:     cfg,
		catalog: cfg.Catalog,
		store:   store,
		log: cfg.Logger.WithFields(logrus.Fields{
			"layout":   cfg.Layout.String(),
			"strategy": cfg.Strategy.String(),
		}),
		arena: trace.NewArena(1024),
	}
	d.buildTables()

	est, err := heuristic.New(cfg.Heuristic, cfg.Layout, d.tables)
	if err != nil {
		return nil, configError("heuristic", "cannot build heuristic", err)
	}
	d.est = est
	d.log = d.log.WithField("heuristic", est.Name())

	if cfg.MinInstructionCutoff {
		d.cutoffs = append(d.cutoffs, heuristic.MinInstructionsCutoff{Table: d.tables.Min, MaxLength: cfg.MaxLength})
	}
	if cfg.RankPatternFactor > 0 {
		d.cutoffs = append(d.cutoffs, heuristic.NewRankPatternCutoff(cfg.Layout, cfg.RankPatternFactor, cfg.MaxLength))
	}
	return d, nil
}

func (d *Driver) buildTables() {
	cfg := d.cfg
	needMin := cfg.MinInstructionCutoff || cfg.UsefulOnly || cfg.Heuristic == heuristic.NameMinInstructions
	if needMin {
		start := time.Now()
		d.tables.Min = heuristic.NewMinInstructions(cfg.Layout, d.catalog, heuristic.MinInstructionsOptions{
			RecordUseful: cfg.UsefulOnly,
		})
		d.log.WithFields(logrus.Fields{
			"states":  d.tables.Min.Len(),
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("computed min-instructions table")
	}
	if cfg.Heuristic == heuristic.NameSwapDistance {
		d.tables.Swap = heuristic.NewSwapDistance(cfg.Layout.Values)
		d.log.WithField("permutations", d.tables.Swap.Len()).Info("computed swap-distance table")
	}
}


// Snapshot returns a consistent view of the driver. It is safe to call
// from any goroutine while Run is in progress.
func (d *Driver) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := Snapshot{
		Outcome:   d.outcome,
		Layout:    d.cfg.Layout.String(),
		Strategy:  d.cfg.Strategy.String(),
		Heuristic: d.est.Name(),
		MaxLength: d.cfg.MaxLength,
		Stats:     d.shared,
		StoreSize: d.store.Len(),
	}
	if len(d.best) > 0 {
		snap.BestLength = len(d.best)
	}
	return snap
}

// publish copies the working counters into the shared snapshot.
func (d *Driver) publish(outcome Outcome) {
	d.stats.Elapsed = time.Since(d.start)
	d.mu.Lock()
	d.outcome = outcome
	d.shared = d.stats
	d.mu.Unlock()
}

// Run searches until a solution is found (or, in all-solutions mode, until
// the frontier empties), the frontier empties, or ctx is done. Exhaustion
// is reported through Result.Outcome, never as an error. A non-nil error
// always comes with outcome Aborted.
func (d *Driver) Run(ctx context.Context, sink Sink) (Result, error) {
	d.mu.Lock()
	if d.outcome != Idle {
		d.mu.Unlock()
		return Result{Outcome: d.outcome}, ErrAlreadyRun
	}
	d.outcome = Searching
	d.mu.Unlock()

	d.start = time.Now()
	d.log.WithField("max_length", d.cfg.MaxLength).Info("search started")

	var (
		outcome Outcome
		err     error
	)
	if d.cfg.Layered {
		outcome, err = d.runLayered(ctx, sink)
	} else {
		outcome, err = d.runSequential(ctx, sink)
	}
	if err != nil {
		outcome = Aborted
	}
	d.publish(outcome)

	if metaErr := d.recordMeta(outcome); metaErr != nil && err == nil {
		err = metaErr
		outcome = Aborted
		d.publish(outcome)
	}

	result := Result{Outcome: outcome, Best: d.best, Stats: d.stats}
	log := d.log.WithFields(d.stats.Fields()).WithField("solutions", d.stats.Solutions)
	switch {
	case err != nil:
		log.WithError(err).Error("search aborted")
	case outcome == SolutionFound:
		log.WithField("best_length", len(d.best)).Info("solution found")
	default:
		log.Info("search exhausted")
	}
	return result, err
}

func (d *Driver) recordMeta(outcome Outcome) error {
	meta, err := d.store.Meta()
	if err != nil {
		return &CapacityError{Op: "read metadata", Err: err}
	}
	meta.Layout = d.cfg.Layout.String()
	meta.KeyMode = d.cfg.KeyMode.String()
	meta.Outcome = outcome.String()
	meta.BestLength = len(d.best)
	meta.Entries = d.store.Len()
	meta.UpdatedAt = time.Now().UTC()
	if err := d.store.SetMeta(meta); err != nil {
		return &CapacityError{Op: "write metadata", Err: err}
	}
	return nil
}

// seed records the initial joint state at length 0.
func (d *Driver) seed() (*entry, error) {
	js := jointstate.Initial(d.cfg.Layout)
	key := jointstate.Key(d.cfg.Layout, js, d.cfg.KeyMode)
	if _, err := d.store.Put(key, 0); err != nil {
		return nil, &CapacityError{Op: "put", Err: err}
	}
	return &entry{
		priority: d.priority(0, js),
		state:    js,
		key:      key,
		node:     trace.Root,
	}, nil
}

func (d *Driver) priority(length int, js jointstate.JointState) int {
	est := 0
	if d.cfg.Strategy.UsesEstimate() {
		est = d.est.Estimate(js)
	}
	return d.cfg.Strategy.Priority(length, est)
}

// emit reconstructs the program at e and hands it to the sink.
func (d *Driver) emit(sink Sink, e *entry) error {
	prog := d.arena.Reconstruct(e.node)
	d.stats.Solutions++
	if d.best == nil || len(prog) < len(d.best) {
		d.mu.Lock()
		d.best = prog
		d.mu.Unlock()
	}
	d.log.WithFields(logrus.Fields{
		"length": len(prog),
		"index":  d.stats.Solutions,
	}).Debug("solution")
	if sink == nil {
		return nil
	}
	err := sink.Emit(Solution{
		Program: prog,
		Length:  len(prog),
		Index:   d.stats.Solutions,
		Layout:  d.cfg.Layout,
		Elapsed: time.Since(d.start),
	})
	if err != nil {
		return fmt.Errorf("emit solution: %w", err)
	}
	return nil
}

// candidates returns the catalog mask for expanding js, or nil for all.
func (d *Driver) candidates(js jointstate.JointState) []bool {
	if !d.cfg.UsefulOnly {
		return nil
	}
	return d.tables.Min.Useful(js)
}

// cut runs every cutoff in order.
func (d *Driver) cut(js jointstate.JointState, length int) bool {
	for _, c := range d.cutoffs {
		if c.Cut(js, length) {
			return true
		}
	}
	return false
}

func (d *Driver) runSequential(ctx context.Context, sink Sink) (Outcome, error) {
	root, err := d.seed()
	if err != nil {
		return Aborted, err
	}
	d.open.push(root)
	defer d.open.drain(d.arena)

	l := d.cfg.Layout
	for d.open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return Aborted, err
		}

		e := d.open.pop()
		d.stats.Visited++
		d.stats.Length = e.length
		d.stats.setOpen(d.open.Len())
		if d.cfg.ProgressEvery > 0 && d.stats.Visited%uint64(d.cfg.ProgressEvery) == 0 {
			d.publish(Searching)
			d.log.WithFields(d.stats.Fields()).Info("progress")
		}

		done, err := d.visit(sink, e, l)
		d.arena.Release(e.node)
		if err != nil {
			return Aborted, err
		}
		if done {
			return SolutionFound, nil
		}
	}

	if d.stats.Solutions > 0 {
		return SolutionFound, nil
	}
	return Exhausted, nil
}

// visit handles one popped entry. It reports done when the search should
// stop with a solution.
func (d *Driver) visit(sink Sink, e *entry, l machine.Layout) (bool, error) {
	stored, ok, err := d.store.Get(e.key)
	if err != nil {
		return false, &CapacityError{Op: "get", Err: err}
	}
	if ok && stored < e.length {
		d.stats.Stale++
		return false, nil
	}

	if jointstate.IsGoal(l, e.state) {
		if err := d.emit(sink, e); err != nil {
			return false, err
		}
		return !d.cfg.AllSolutions, nil
	}

	if e.length >= d.cfg.MaxLength {
		d.stats.Bounded++
		return false, nil
	}

	d.stats.Expanded++
	mask := d.candidates(e.state)
	length := e.length + 1
	for idx, ins := range d.catalog {
		if mask != nil && !mask[idx] {
			continue
		}
		next := jointstate.Step(l, ins, e.state)
		d.stats.Generated++
		if !jointstate.Viable(l, next) {
			d.stats.Unviable++
			continue
		}
		if d.cut(next, length) {
			d.stats.Cut++
			continue
		}

		key := jointstate.Key(l, next, d.cfg.KeyMode)
		accepted, err := d.store.Put(key, length)
		if err != nil {
			return false, &CapacityError{Op: "put", Err: err}
		}
		if !accepted {
			d.stats.Duplicate++
			continue
		}

		d.open.push(&entry{
			priority: d.priority(length, next),
			length:   length,
			state:    next,
			key:      key,
			node:     d.arena.Extend(e.node, ins),
		})
	}
	d.stats.setOpen(d.open.Len())
	return false, nil
}
