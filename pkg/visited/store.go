// Package visited provides the visited store: a map from canonical joint
// state key to the shortest program length that reached it.
//
// Stored lengths only ever decrease. Put rejects any length that is not
// strictly shorter than the one already recorded, so the first visit at a
// given length wins and repeats are counted as duplicates.
//
// Three backends share the same semantics: a bounded in-memory map, a
// bbolt B+tree file and a badger LSM directory. The on-disk backends buffer
// writes and flush them in batches.
package visited

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fortiblox/regsort/internal/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("visited store closed")

	// ErrCapacityExceeded is returned when a bounded store is full.
	ErrCapacityExceeded = errors.New("visited store capacity exceeded")

	// ErrFingerprintMismatch is returned when an existing store was built
	// for a different configuration.
	ErrFingerprintMismatch = errors.New("visited store fingerprint mismatch")

	// ErrStoreNotEmpty is returned by callers that need a fresh store.
	ErrStoreNotEmpty = errors.New("visited store is not empty")

	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown visited store backend")
)

// Store is the key to best-length map consulted during expansion.
type Store interface {
	// Get returns the recorded length for key.
	Get(key []byte) (length int, ok bool, err error)

	// Put records length for key if it is strictly shorter than any
	// recorded value. It reports whether the value was accepted.
	Put(key []byte, length int) (accepted bool, err error)

	// Len returns the number of distinct keys.
	Len() uint64

	// Stats returns the store counters.
	Stats() Stats

	// Meta returns the stored run metadata.
	Meta() (Meta, error)

	// SetMeta replaces the run metadata.
	SetMeta(m Meta) error

	// Flush writes buffered entries to the backend.
	Flush() error

	// Close flushes and releases the store.
	Close() error
}

// Stats contains visited store counters.
type Stats struct {
	// Entries is the number of distinct keys.
	Entries uint64 `json:"entries"`

	// Inserted counts puts of previously unseen keys.
	Inserted uint64 `json:"inserted"`

	// Improved counts puts that shortened an existing entry.
	Improved uint64 `json:"improved"`

	// Rejected counts puts refused because the stored length was not longer.
	Rejected uint64 `json:"rejected"`

	// Flushes counts batch writes to disk.
	Flushes uint64 `json:"flushes"`
}

// counters are shared by every backend so Stats reads never block.
type counters struct {
	entries  atomic.Uint64
	inserted atomic.Uint64
	improved atomic.Uint64
	rejected atomic.Uint64
	flushes  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Entries:  c.entries.Load(),
		Inserted: c.inserted.Load(),
		Improved: c.improved.Load(),
		Rejected: c.rejected.Load(),
		Flushes:  c.flushes.Load(),
	}
}

// record applies the strict put policy given the current entry.
func (c *counters) record(old uint32, found bool, length uint32) bool {
	switch {
	case !found:
		c.entries.Add(1)
		c.inserted.Add(1)
		return true
	case length < old:
		c.improved.Add(1)
		return true
	default:
		c.rejected.Add(1)
		return false
	}
}

// Meta describes the run a store belongs to.
type Meta struct {
	Fingerprint types.Fingerprint `json:"fingerprint"`
	Layout      string            `json:"layout,omitempty"`
	KeyMode     string            `json:"key_mode,omitempty"`
	Outcome     string            `json:"outcome,omitempty"`
	BestLength  int               `json:"best_length,omitempty"`
	Entries     uint64            `json:"entries"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Backend names a store implementation.
type Backend string

// Supported backends.
const (
	BackendMemory Backend = "memory"
	BackendBolt   Backend = "bolt"
	BackendBadger Backend = "badger"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMemory, BackendBolt, BackendBadger:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Config holds visited store options.
type Config struct {
	// Backend selects the implementation.
	Backend Backend

	// Path is the directory for an on-disk store.
	Path string

	// MaxEntries bounds the in-memory store. Zero means unbounded.
	MaxEntries uint64

	// FlushEvery is the number of buffered writes that triggers a flush
	// on the on-disk backends.
	FlushEvery int

	// NoSync disables fsync on commit.
	NoSync bool

	// Reset wipes an existing store on open.
	Reset bool

	// Fingerprint is checked against, then written to, the store metadata.
	// A zero fingerprint skips the check.
	Fingerprint types.Fingerprint

	// Logger receives backend diagnostics. Nil uses the standard logger.
	Logger logrus.FieldLogger
}

// DefaultConfig returns the default in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMemory,
		FlushEvery: 4096,
	}
}

// Open opens the store selected by cfg.
func Open(cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = DefaultConfig().FlushEvery
	}

	var (
		e   engine
		err error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(cfg.MaxEntries), nil
	case BackendBolt:
		e, err = openBolt(cfg)
	case BackendBadger:
		e, err = openBadger(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	s, err := newDiskStore(e, cfg)
	if err != nil {
		e.close()
		return nil, err
	}
	return s, nil
}

// ScratchDir picks a fresh visited-<n> directory under root, creating root
// when missing. Existing directories are never reused.
func ScratchDir(root string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("create scratch root: %w", err)
	}
	for n := 0; ; n++ {
		dir := filepath.Join(root, fmt.Sprintf("visited-%d", n))
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create scratch dir: %w", err)
		}
	}
}

// encodeLength stores a length as 4 little-endian bytes.
func encodeLength(length uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], length)
	return buf[:]
}

func decodeLength(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("corrupt length value of %d bytes", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

func checkLength(length int) (uint32, error) {
	if length < 0 || length > 1<<31 {
		return 0, fmt.Errorf("length %d out of range", length)
	}
	return uint32(length), nil
}
