package visited

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// engine is the raw key/value layer under a disk store.
type engine interface {
	name() string
	get(key []byte) (uint32, bool, error)
	write(batch map[string]uint32) error
	count() (uint64, error)
	readMeta() ([]byte, error)
	writeMeta(data []byte) error
	reset() error
	close() error
}

// diskStore buffers puts in memory and writes them to an engine in batches.
// Reads consult the buffer first, so a pending improvement is never lost to
// a stale on-disk value.
type diskStore struct {
	mu         sync.RWMutex
	e          engine
	pending    map[string]uint32
	flushEvery int
	log        logrus.FieldLogger
	closed     bool
	counters
}

func newDiskStore(e engine, cfg Config) (*diskStore, error) {
	log := cfg.Logger.WithFields(logrus.Fields{"backend": e.name(), "path": cfg.Path})

	if cfg.Reset {
		if err := e.reset(); err != nil {
			return nil, fmt.Errorf("reset store: %w", err)
		}
		log.Info("visited store reset")
	}

	s := &diskStore{
		e:          e,
		pending:    make(map[string]uint32, cfg.FlushEvery),
		flushEvery: cfg.FlushEvery,
		log:        log,
	}

	meta, found, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	if found && !cfg.Fingerprint.IsZero() && !meta.Fingerprint.Equals(cfg.Fingerprint) {
		return nil, fmt.Errorf("%w: store %s, configuration %s",
			ErrFingerprintMismatch, meta.Fingerprint.Short(), cfg.Fingerprint.Short())
	}

	n, err := e.count()
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	s.entries.Store(n)

	if !found && !cfg.Fingerprint.IsZero() {
		if err := s.SetMeta(Meta{Fingerprint: cfg.Fingerprint}); err != nil {
			return nil, err
		}
	}

	log.WithField("entries", n).Debug("visited store opened")
	return s, nil
}

// Get implements Store.
func (s *diskStore) Get(key []byte) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false, ErrClosed
	}
	v, ok, err := s.lookup(key)
	return int(v), ok, err
}

func (s *diskStore) lookup(key []byte) (uint32, bool, error) {
	if v, ok := s.pending[string(key)]; ok {
		return v, true, nil
	}
	v, ok, err := s.e.get(key)
	if err != nil {
		return 0, false, fmt.Errorf("%s get: %w", s.e.name(), err)
	}
	return v, ok, nil
}

// Put implements Store.
func (s *diskStore) Put(key []byte, length int) (bool, error) {
	n, err := checkLength(length)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	old, found, err := s.lookup(key)
	if err != nil {
		return false, err
	}
	if !s.record(old, found, n) {
		return false, nil
	}
	s.pending[string(key)] = n
	if len(s.pending) >= s.flushEvery {
		if err := s.flushLocked(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Len implements Store.
func (s *diskStore) Len() uint64 { return s.entries.Load() }

// Stats implements Store.
func (s *diskStore) Stats() Stats { return s.snapshot() }

// Flush implements Store.
func (s *diskStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

func (s *diskStore) flushLocked() error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.e.write(s.pending); err != nil {
		return fmt.Errorf("%s flush %d entries: %w", s.e.name(), len(s.pending), err)
	}
	s.flushes.Add(1)
	s.pending = make(map[string]uint32, s.flushEvery)
	return nil
}

// Meta implements Store.
func (s *diskStore) Meta() (Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Meta{}, ErrClosed
	}
	m, _, err := s.loadMeta()
	return m, err
}

func (s *diskStore) loadMeta() (Meta, bool, error) {
	var m Meta
	data, err := s.e.readMeta()
	if err != nil {
		return m, false, fmt.Errorf("read metadata: %w", err)
	}
	if data == nil {
		return m, false, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, false, fmt.Errorf("decode metadata: %w", err)
	}
	return m, true, nil
}

// SetMeta implements Store. Pending entries are flushed first so the
// metadata never describes more than is on disk.
func (s *diskStore) SetMeta(m Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := s.e.writeMeta(data); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *diskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.flushLocked()
	if err := s.e.close(); err != nil {
		return fmt.Errorf("close %s: %w", s.e.name(), err)
	}
	return flushErr
}
