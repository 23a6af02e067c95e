package visited

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// Key prefixes for BadgerDB storage.
var (
	// prefixLength is the prefix for length entries.
	// Key format: prefixLength + canonical key
	prefixLength = []byte{0x01}

	// prefixMeta is the prefix for metadata.
	prefixMeta = []byte{0x02}

	metaRun = append(append([]byte(nil), prefixMeta...), "run"...)
)

type badgerEngine struct {
	db *badger.DB
}

// badgerLogger routes badger's chatty info output to debug.
type badgerLogger struct {
	logrus.FieldLogger
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.FieldLogger.Debugf(format, args...)
}

func openBadger(cfg Config) (*badgerEngine, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("badger store: path is required")
	}
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(!cfg.NoSync).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{cfg.Logger.WithField("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &badgerEngine{db: db}, nil
}

func lengthKey(key []byte) []byte {
	k := make([]byte, 0, len(prefixLength)+len(key))
	k = append(k, prefixLength...)
	return append(k, key...)
}

func (e *badgerEngine) name() string { return string(BackendBadger) }

func (e *badgerEngine) get(key []byte) (uint32, bool, error) {
	var (
		length uint32
		found  bool
	)
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lengthKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			length, err = decodeLength(val)
			return err
		})
	})
	return length, found, err
}

func (e *badgerEngine) write(batch map[string]uint32) error {
	wb := e.db.NewWriteBatch()
	defer wb.Cancel()
	for k, v := range batch {
		if err := wb.Set(lengthKey([]byte(k)), encodeLength(v)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (e *badgerEngine) count() (uint64, error) {
	var n uint64
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefixLength
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (e *badgerEngine) readMeta() ([]byte, error) {
	var data []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaRun)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

func (e *badgerEngine) writeMeta(data []byte) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaRun, data)
	})
}

func (e *badgerEngine) reset() error { return e.db.DropAll() }

func (e *badgerEngine) close() error { return e.db.Close() }
