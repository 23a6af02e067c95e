package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fortiblox/regsort/pkg/config"
	"github.com/fortiblox/regsort/pkg/search"
	"github.com/fortiblox/regsort/pkg/sink"
	"github.com/fortiblox/regsort/pkg/status"
	"github.com/fortiblox/regsort/pkg/visited"
)

type searchOpts struct {
	values       int
	scratch      int
	vector       bool
	maxLength    int
	strategy     string
	heuristic    string
	keyMode      string
	all          bool
	noMinCutoff  bool
	rankCutoff   float64
	usefulOnly   bool
	parallel     bool
	workers      int
	backend      string
	storePath    string
	maxEntries   uint64
	reset        bool
	format       string
	archive      string
	statusAddr   string
	progressStep int
}

func newSearchCmd() *cobra.Command {
	var o searchOpts
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for the shortest sorting program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadConfig()
			if err != nil {
				return err
			}
			o.apply(cmd.Flags(), &f)
			if err := f.Validate(); err != nil {
				return err
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&o.values, "values", "n", 0, "number of values to sort")
	fl.IntVarP(&o.scratch, "scratch", "s", 0, "number of scratch registers")
	fl.BoolVar(&o.vector, "vector", false, "add vector lanes and MIN/MAX/MOVD/MOVDQA")
	fl.IntVarP(&o.maxLength, "max-length", "l", 0, "longest program considered")
	fl.StringVar(&o.strategy, "strategy", "", "frontier order: astar, dijkstra or greedy")
	fl.StringVar(&o.heuristic, "heuristic", "", "zero, rank-patterns, min-instructions or swap-distance")
	fl.StringVar(&o.keyMode, "key-mode", "", "canonical key: exact or renaming")
	fl.BoolVar(&o.all, "all", false, "emit every solution within the bound")
	fl.BoolVar(&o.noMinCutoff, "no-min-cutoff", false, "disable the min-instructions cutoff")
	fl.Float64Var(&o.rankCutoff, "rank-pattern-cutoff", 0, "rank-pattern cutoff factor, 0 disables")
	fl.BoolVar(&o.usefulOnly, "useful-only", false, "expand only instructions that help some member")
	fl.BoolVar(&o.parallel, "parallel", false, "use the layered parallel driver")
	fl.IntVar(&o.workers, "workers", 0, "worker goroutines for --parallel")
	fl.StringVar(&o.backend, "store", "", "visited store backend: memory, bolt or badger")
	fl.StringVar(&o.storePath, "store-path", "", "directory for an on-disk store")
	fl.Uint64Var(&o.maxEntries, "max-entries", 0, "bound on the in-memory store, 0 for none")
	fl.BoolVar(&o.reset, "reset", false, "wipe an existing on-disk store")
	fl.StringVar(&o.format, "format", "", "solution format: human or asm")
	fl.StringVar(&o.archive, "archive", "", "also write solutions to this zstd archive")
	fl.StringVar(&o.statusAddr, "status-addr", "", "serve status and metrics on this address")
	fl.IntVar(&o.progressStep, "progress-every", 0, "pops between progress lines")
	return cmd
}

// apply copies every flag set on the command line over the file values.
func (o *searchOpts) apply(fl *pflag.FlagSet, f *config.File) {
	set := fl.Changed
	if set("values") {
		f.Problem.Values = o.values
	}
	if set("scratch") {
		f.Problem.Scratch = o.scratch
	}
	if set("vector") {
		f.Problem.Vector = o.vector
	}
	if set("max-length") {
		f.Problem.MaxLength = o.maxLength
	}
	if set("strategy") {
		f.Search.Strategy = o.strategy
	}
	if set("heuristic") {
		f.Search.Heuristic = o.heuristic
	}
	if set("key-mode") {
		f.Search.KeyMode = o.keyMode
	}
	if set("all") {
		f.Search.AllSolutions = o.all
	}
	if set("no-min-cutoff") {
		f.Search.MinInstructionCutoff = !o.noMinCutoff
	}
	if set("rank-pattern-cutoff") {
		f.Search.RankPatternCutoff = o.rankCutoff
	}
	if set("useful-only") {
		f.Search.UsefulOnly = o.usefulOnly
	}
	if set("parallel") {
		f.Search.Parallel = o.parallel
	}
	if set("workers") {
		f.Search.Workers = o.workers
	}
	if set("progress-every") {
		f.Search.ProgressEvery = o.progressStep
	}
	if set("store") {
		f.Store.Backend = o.backend
	}
	if set("store-path") {
		f.Store.Path = o.storePath
	}
	if set("max-entries") {
		f.Store.MaxEntries = o.maxEntries
	}
	if set("reset") {
		f.Store.Reset = o.reset
	}
	if set("format") {
		f.Output.Format = o.format
	}
	if set("archive") {
		f.Output.Archive = o.archive
	}
	if set("status-addr") {
		f.Status.Addr = o.statusAddr
	}
}

func runSearch(ctx context.Context, out io.Writer, f config.File) error {
	log, err := setupLogger(f)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storeCfg, err := f.OpenStore(log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("close visited store")
		}
	}()

	searchCfg, err := f.SearchOptions(log)
	if err != nil {
		return err
	}
	driver, err := search.New(searchCfg, store)
	if err != nil {
		return err
	}

	format, err := sink.ParseFormat(f.Output.Format)
	if err != nil {
		return err
	}
	sinks := sink.Multi{sink.NewWriter(out, format)}
	if f.Output.Archive != "" {
		archive, err := sink.CreateArchive(f.Output.Archive)
		if err != nil {
			return err
		}
		defer func() {
			if err := archive.Close(); err != nil {
				log.WithError(err).Warn("close archive")
				return
			}
			log.WithFields(logrus.Fields{"path": f.Output.Archive, "solutions": archive.Count()}).Info("archive written")
		}()
		sinks = append(sinks, archive)
	}

	if f.Status.Addr != "" {
		srv := status.New(status.Config{Addr: f.Status.Addr}, driver, log)
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.WithError(err).Error("status server stopped")
			}
		}()
		defer srv.Stop()
	}

	log.WithFields(logrus.Fields{
		"layout":      searchCfg.Layout.String(),
		"max_length":  searchCfg.MaxLength,
		"strategy":    searchCfg.Strategy.String(),
		"heuristic":   searchCfg.Heuristic,
		"store":       storeCfg.Backend,
		"fingerprint": storeCfg.Fingerprint.Short(),
	}).Info("starting search")

	res, runErr := driver.Run(ctx, sinks)
	printSummary(out, driver.Snapshot(), store.Stats())

	switch {
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintf(out, "search aborted: interrupted before a result for %s\n", searchCfg.Layout)
		return fmt.Errorf("search interrupted: %w", runErr)
	case runErr != nil:
		return runErr
	case res.Outcome == search.Exhausted:
		fmt.Fprintf(out, "search exhausted: no sorting program of length <= %d found for %s\n", searchCfg.MaxLength, searchCfg.Layout)
	}
	return nil
}

func printSummary(out io.Writer, snap search.Snapshot, st visited.Stats) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"metric", "value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	best := "-"
	if snap.BestLength > 0 {
		best = strconv.Itoa(snap.BestLength)
	}
	table.AppendBulk([][]string{
		{"outcome", snap.Outcome.String()},
		{"layout", snap.Layout},
		{"strategy", snap.Strategy + "/" + snap.Heuristic},
		{"best length", best},
		{"solutions", u(snap.Stats.Solutions)},
		{"visited", u(snap.Stats.Visited)},
		{"expanded", u(snap.Stats.Expanded)},
		{"generated", u(snap.Stats.Generated)},
		{"unviable", u(snap.Stats.Unviable)},
		{"cut", u(snap.Stats.Cut)},
		{"duplicate", u(snap.Stats.Duplicate)},
		{"stale", u(snap.Stats.Stale)},
		{"max open", strconv.Itoa(snap.Stats.MaxOpen)},
		{"store entries", u(st.Entries)},
		{"store improved", u(st.Improved)},
		{"elapsed", snap.Stats.Elapsed.Round(time.Millisecond).String()},
	})
	table.Render()
}
