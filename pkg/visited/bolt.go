package visited

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names for BoltDB.
var (
	// bucketLengths maps canonical key to shortest length.
	bucketLengths = []byte("lengths")

	// bucketMeta stores run metadata.
	bucketMeta = []byte("meta")

	keyMeta = []byte("run")
)

// boltFile is the database file name inside the store directory.
const boltFile = "visited.db"

type boltEngine struct {
	db *bolt.DB
}

func openBolt(cfg Config) (*boltEngine, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("bolt store: path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	opts := &bolt.Options{
		Timeout:        5 * time.Second,
		NoSync:         cfg.NoSync,
		NoFreelistSync: true,
	}
	db, err := bolt.Open(filepath.Join(cfg.Path, boltFile), 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	e := &boltEngine{db: db}
	if err := e.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return e, nil
}

func (e *boltEngine) initBuckets() error {
	return e.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketLengths, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (e *boltEngine) name() string { return string(BackendBolt) }

func (e *boltEngine) get(key []byte) (uint32, bool, error) {
	var (
		length uint32
		found  bool
	)
	err := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketLengths).Get(key)
		if v == nil {
			return nil
		}
		found = true
		var err error
		length, err = decodeLength(v)
		return err
	})
	return length, found, err
}

func (e *boltEngine) write(batch map[string]uint32) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLengths)
		for k, v := range batch {
			if err := b.Put([]byte(k), encodeLength(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *boltEngine) count() (uint64, error) {
	var n uint64
	err := e.db.View(func(tx *bolt.Tx) error {
		n = uint64(tx.Bucket(bucketLengths).Stats().KeyN)
		return nil
	})
	return n, err
}

func (e *boltEngine) readMeta() ([]byte, error) {
	var data []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyMeta); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

func (e *boltEngine) writeMeta(data []byte) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyMeta, data)
	})
}

func (e *boltEngine) reset() error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketLengths, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return fmt.Errorf("delete bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.initBuckets()
}

func (e *boltEngine) close() error { return e.db.Close() }
