// Package config loads the regsort YAML configuration and converts it into
// the option structs of the search, visited and sink packages.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/fortiblox/regsort/pkg/heuristic"
	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
	"github.com/fortiblox/regsort/pkg/search"
	"github.com/fortiblox/regsort/pkg/sink"
	"github.com/fortiblox/regsort/pkg/visited"
)

// EnvScratchDir names the directory under which an on-disk store without
// an explicit path gets a fresh subdirectory.
const EnvScratchDir = "REGSORT_SCRATCH_DIR"

// File is the top-level configuration document.
type File struct {
	Problem ProblemConfig `yaml:"problem"`
	Search  SearchConfig  `yaml:"search"`
	Store   StoreConfig   `yaml:"store"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Status  StatusConfig  `yaml:"status"`
}

// ProblemConfig describes the machine and the length bound.
type ProblemConfig struct {
	Values    int  `yaml:"values"`
	Scratch   int  `yaml:"scratch"`
	Vector    bool `yaml:"vector"`
	MaxLength int  `yaml:"max_length"`
	SelfMoves bool `yaml:"self_moves"`
}

// SearchConfig selects the strategy and pruning.
type SearchConfig struct {
	Strategy             string  `yaml:"strategy"`
	Heuristic            string  `yaml:"heuristic"`
	KeyMode              string  `yaml:"key_mode"`
	AllSolutions         bool    `yaml:"all_solutions"`
	MinInstructionCutoff bool    `yaml:"min_instruction_cutoff"`
	RankPatternCutoff    float64 `yaml:"rank_pattern_cutoff"`
	UsefulOnly           bool    `yaml:"useful_only"`
	ProgressEvery        int     `yaml:"progress_every"`
	Parallel             bool    `yaml:"parallel"`
	Workers              int     `yaml:"workers"`
}

// StoreConfig selects the visited-store backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	MaxEntries uint64 `yaml:"max_entries"`
	FlushEvery int    `yaml:"flush_every"`
	NoSync     bool   `yaml:"no_sync"`
	Reset      bool   `yaml:"reset"`
}

// OutputConfig controls how solutions are written.
type OutputConfig struct {
	Format  string `yaml:"format"`
	Archive string `yaml:"archive"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StatusConfig controls the status server. An empty Addr disables it.
type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the standard configuration: three values, one scratch
// register, programs up to 11 instructions, A* on rank patterns with the
// min-instructions cutoff and an in-memory store.
func Default() File {
	sc := search.DefaultConfig()
	vc := visited.DefaultConfig()
	return File{
		Problem: ProblemConfig{
			Values:    sc.Layout.Values,
			Scratch:   sc.Layout.Scratch,
			MaxLength: sc.MaxLength,
		},
		Search: SearchConfig{
			Strategy:             sc.Strategy.String(),
			Heuristic:            sc.Heuristic,
			KeyMode:              sc.KeyMode.String(),
			MinInstructionCutoff: sc.MinInstructionCutoff,
			ProgressEvery:        sc.ProgressEvery,
			Workers:              sc.Workers,
		},
		Store: StoreConfig{
			Backend:    string(vc.Backend),
			FlushEvery: vc.FlushEvery,
		},
		Output: OutputConfig{Format: string(sink.FormatHuman)},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path returns the defaults.
func Load(path string) (File, error) {
	f := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return f, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return f, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

// Layout returns the machine layout described by the problem section.
func (f File) Layout() machine.Layout {
	return machine.Layout{Values: f.Problem.Values, Scratch: f.Problem.Scratch, Vector: f.Problem.Vector}
}

// Validate reports the first invalid field as a *search.ConfigError.
func (f File) Validate() error {
	if err := f.Layout().Validate(); err != nil {
		return invalid("problem", "bad layout", err)
	}
	if f.Problem.MaxLength < 0 {
		return invalid("problem.max_length", "must not be negative", nil)
	}
	if _, err := heuristic.ParseStrategy(f.Search.Strategy); err != nil {
		return invalid("search.strategy", "unknown", err)
	}
	switch f.Search.Heuristic {
	case "", heuristic.NameZero, heuristic.NameRankPatterns, heuristic.NameMinInstructions, heuristic.NameSwapDistance:
	default:
		return invalid("search.heuristic", fmt.Sprintf("unknown heuristic %q", f.Search.Heuristic), heuristic.ErrUnknown)
	}
	if _, err := jointstate.ParseKeyMode(f.Search.KeyMode); err != nil {
		return invalid("search.key_mode", "unknown", err)
	}
	if f.Search.RankPatternCutoff < 0 {
		return invalid("search.rank_pattern_cutoff", "must not be negative", nil)
	}
	if f.Search.Parallel && f.Search.Workers < 1 {
		return invalid("search.workers", "must be at least 1 in parallel mode", nil)
	}
	if _, err := visited.ParseBackend(f.Store.Backend); err != nil {
		return invalid("store.backend", "unknown", err)
	}
	if f.Store.FlushEvery < 0 {
		return invalid("store.flush_every", "must not be negative", nil)
	}
	if _, err := sink.ParseFormat(f.Output.Format); err != nil {
		return invalid("output.format", "unknown", err)
	}
	if _, err := logrus.ParseLevel(f.Log.Level); err != nil {
		return invalid("log.level", "unknown", err)
	}
	switch f.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format", fmt.Sprintf("expected text or json, got %q", f.Log.Format), nil)
	}
	return nil
}

func invalid(field, reason string, err error) error {
	return &search.ConfigError{Field: field, Reason: reason, Err: err}
}

// Catalog builds the instruction catalog for the problem section.
func (f File) Catalog() machine.Catalog {
	return machine.NewCatalog(f.Layout(), machine.CatalogOptions{
		IncludeSelfMoves: f.Problem.SelfMoves,
		Vector:           f.Problem.Vector,
	})
}

// SearchOptions converts the file into driver options.
func (f File) SearchOptions(log logrus.FieldLogger) (search.Config, error) {
	strategy, err := heuristic.ParseStrategy(f.Search.Strategy)
	if err != nil {
		return search.Config{}, invalid("search.strategy", "unknown", err)
	}
	mode, err := jointstate.ParseKeyMode(f.Search.KeyMode)
	if err != nil {
		return search.Config{}, invalid("search.key_mode", "unknown", err)
	}
	return search.Config{
		Layout:               f.Layout(),
		Catalog:              f.Catalog(),
		MaxLength:            f.Problem.MaxLength,
		Strategy:             strategy,
		Heuristic:            f.Search.Heuristic,
		KeyMode:              mode,
		AllSolutions:         f.Search.AllSolutions,
		MinInstructionCutoff: f.Search.MinInstructionCutoff,
		RankPatternFactor:    f.Search.RankPatternCutoff,
		UsefulOnly:           f.Search.UsefulOnly,
		Layered:              f.Search.Parallel,
		Workers:              f.Search.Workers,
		ProgressEvery:        f.Search.ProgressEvery,
		Logger:               log,
	}, nil
}

// StoreOptions converts the store section into visited options. An on-disk
// backend without a path gets a fresh directory under $REGSORT_SCRATCH_DIR
// (or the system temp directory).
func (f File) StoreOptions(log logrus.FieldLogger) (visited.Config, error) {
	backend, err := visited.ParseBackend(f.Store.Backend)
	if err != nil {
		return visited.Config{}, invalid("store.backend", "unknown", err)
	}
	mode, err := jointstate.ParseKeyMode(f.Search.KeyMode)
	if err != nil {
		return visited.Config{}, invalid("search.key_mode", "unknown", err)
	}
	cfg := visited.Config{
		Backend:     backend,
		Path:        f.Store.Path,
		MaxEntries:  f.Store.MaxEntries,
		FlushEvery:  f.Store.FlushEvery,
		NoSync:      f.Store.NoSync,
		Reset:       f.Store.Reset,
		Fingerprint: visited.Fingerprint(f.Layout(), f.Catalog(), mode),
		Logger:      log,
	}
	if backend != visited.BackendMemory && cfg.Path == "" {
		dir, err := visited.ScratchDir(os.Getenv(EnvScratchDir))
		if err != nil {
			return visited.Config{}, err
		}
		cfg.Path = dir
	}
	return cfg, nil
}

// OpenStore opens the visited store for the file. A store written under a
// different problem or catalog is reported as a configuration error. A
// matching store still holds the previous run's entries and search.New
// refuses it, so searching again over the same path needs store.reset.
func (f File) OpenStore(log logrus.FieldLogger) (visited.Store, visited.Config, error) {
	cfg, err := f.StoreOptions(log)
	if err != nil {
		return nil, cfg, err
	}
	store, err := visited.Open(cfg)
	if errors.Is(err, visited.ErrFingerprintMismatch) {
		return nil, cfg, invalid("store.path", "written by another configuration; set store.reset to wipe it", err)
	}
	if err != nil {
		return nil, cfg, fmt.Errorf("open visited store: %w", err)
	}
	return store, cfg, nil
}

// NewLogger builds a logger from the log section writing to out.
func (f File) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(f.Log.Level)
	if err != nil {
		return nil, invalid("log.level", "unknown", err)
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if strings.EqualFold(f.Log.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
