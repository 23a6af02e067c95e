package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/regsort/pkg/heuristic"
	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
	"github.com/fortiblox/regsort/pkg/search"
	"github.com/fortiblox/regsort/pkg/visited"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regsort.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultMatchesSearchDefaults(t *testing.T) {
	f := Default()
	require.NoError(t, f.Validate())

	cfg, err := f.SearchOptions(nil)
	require.NoError(t, err)

	want := search.DefaultConfig()
	assert.Equal(t, want.Layout, cfg.Layout)
	assert.Equal(t, want.MaxLength, cfg.MaxLength)
	assert.Equal(t, want.Strategy, cfg.Strategy)
	assert.Equal(t, want.Heuristic, cfg.Heuristic)
	assert.Equal(t, want.KeyMode, cfg.KeyMode)
	assert.Equal(t, want.MinInstructionCutoff, cfg.MinInstructionCutoff)
	assert.Equal(t, want.Workers, cfg.Workers)
	assert.Equal(t, machine.DefaultCatalog(want.Layout), cfg.Catalog)
}

func TestLoadEmptyPath(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
problem:
  values: 2
  scratch: 1
  max_length: 6
search:
  strategy: dijkstra
  key_mode: renaming
  parallel: true
  workers: 2
store:
  backend: bolt
  path: /tmp/regsort-test-store
log:
  level: debug
  format: json
`)
	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, machine.Layout{Values: 2, Scratch: 1}, f.Layout())
	assert.Equal(t, 6, f.Problem.MaxLength)
	assert.Equal(t, "bolt", f.Store.Backend)
	// Unset keys keep their defaults.
	assert.Equal(t, heuristic.NameRankPatterns, f.Search.Heuristic)
	assert.Equal(t, 4096, f.Store.FlushEvery)

	cfg, err := f.SearchOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, heuristic.Dijkstra, cfg.Strategy)
	assert.Equal(t, jointstate.KeyRenaming, cfg.KeyMode)
	assert.True(t, cfg.Layered)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "problem: [not, a, mapping]"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "search:\n  strategy: bogus\n"))
	require.Error(t, err)
	assert.True(t, search.IsConfigurationError(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*File)
		field string
	}{
		{"zero values", func(f *File) { f.Problem.Values = 0 }, "problem"},
		{"too many values", func(f *File) { f.Problem.Values = machine.MaxValues + 1 }, "problem"},
		{"negative length", func(f *File) { f.Problem.MaxLength = -1 }, "problem.max_length"},
		{"strategy", func(f *File) { f.Search.Strategy = "bfs" }, "search.strategy"},
		{"heuristic", func(f *File) { f.Search.Heuristic = "magic" }, "search.heuristic"},
		{"key mode", func(f *File) { f.Search.KeyMode = "fuzzy" }, "search.key_mode"},
		{"factor", func(f *File) { f.Search.RankPatternCutoff = -0.5 }, "search.rank_pattern_cutoff"},
		{"workers", func(f *File) { f.Search.Parallel = true; f.Search.Workers = 0 }, "search.workers"},
		{"backend", func(f *File) { f.Store.Backend = "sled" }, "store.backend"},
		{"flush", func(f *File) { f.Store.FlushEvery = -1 }, "store.flush_every"},
		{"format", func(f *File) { f.Output.Format = "intel" }, "output.format"},
		{"log level", func(f *File) { f.Log.Level = "loud" }, "log.level"},
		{"log format", func(f *File) { f.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			tt.edit(&f)
			err := f.Validate()
			require.Error(t, err)
			var ce *search.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.ErrorIs(t, err, search.ErrConfiguration)
		})
	}
}

func TestStoreOptionsMemory(t *testing.T) {
	cfg, err := Default().StoreOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, visited.BackendMemory, cfg.Backend)
	assert.Empty(t, cfg.Path)
	assert.False(t, cfg.Fingerprint.IsZero())
}

func TestStoreOptionsScratchDir(t *testing.T) {
	root := t.TempDir()
	t.Setenv(EnvScratchDir, root)

	f := Default()
	f.Store.Backend = "badger"
	cfg, err := f.StoreOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "visited-0"), cfg.Path)

	again, err := f.StoreOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "visited-1"), again.Path)
}

func TestStoreOptionsFingerprintTracksProblem(t *testing.T) {
	a := Default()
	b := Default()
	b.Problem.Scratch = 2
	fa, err := a.StoreOptions(nil)
	require.NoError(t, err)
	fb, err := b.StoreOptions(nil)
	require.NoError(t, err)
	assert.NotEqual(t, fa.Fingerprint, fb.Fingerprint)
}

func TestSelfMovesEnlargeCatalog(t *testing.T) {
	f := Default()
	base := len(f.Catalog())
	f.Problem.SelfMoves = true
	r := f.Layout().Registers()
	assert.Equal(t, base+3*r, len(f.Catalog()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	f := Default()
	f.Log = LogConfig{Level: "warn", Format: "json"}

	log, err := f.NewLogger(&buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.WithField("k", 1).Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json formatter expected, got %q", out)
	assert.Contains(t, out, `"msg":"shown"`)
}

func TestOpenStoreFingerprintMismatch(t *testing.T) {
	dir := t.TempDir()
	f := Default()
	f.Store.Backend = "bolt"
	f.Store.Path = dir

	store, _, err := f.OpenStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	f.Problem.Scratch = 2
	_, _, err = f.OpenStore(nil)
	require.Error(t, err)
	assert.True(t, search.IsConfigurationError(err))
	assert.ErrorIs(t, err, visited.ErrFingerprintMismatch)

	f.Store.Reset = true
	store, cfg, err := f.OpenStore(nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Path)
	require.NoError(t, store.Close())
}
