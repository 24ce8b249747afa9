package kvstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("kv")

// BoltKV is a flat-file Store backed by a single-bucket bbolt database.
// Create and Update run inside one write transaction, so the existence
// check and the put are atomic.
type BoltKV struct {
	db   *bbolt.DB
	path string
}

func NewBolt(path string) *BoltKV {
	return &BoltKV{path: path}
}

func (kv *BoltKV) Connect(ctx context.Context) error {
	if kv.db != nil {
		return nil
	}
	db, err := initializeDB(kv.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	kv.db = db
	return nil
}

func initializeDB(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0o600, bbolt.DefaultOptions)
	if err != nil {
		return nil, err
	}

	// create the kv bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (kv *BoltKV) Disconnect(ctx context.Context) error {
	if kv.db == nil {
		return nil
	}
	err := kv.db.Close()
	kv.db = nil
	return err
}

func (kv *BoltKV) Create(ctx context.Context, key string, value []byte) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	return kv.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket.Get([]byte(key)) != nil {
			return ErrAlreadyExists
		}
		return bucket.Put([]byte(key), value)
	})
}

func (kv *BoltKV) Read(ctx context.Context, key string) ([]byte, error) {
	if kv.db == nil {
		return nil, ErrNotConnected
	}
	var value []byte
	err := kv.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// copy the value to avoid returning a reference to the mmap.
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (kv *BoltKV) Update(ctx context.Context, key string, value []byte) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	return kv.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return bucket.Put([]byte(key), value)
	})
}

func (kv *BoltKV) Delete(ctx context.Context, key string) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	// bbolt's Delete is a no-op for absent keys, which matches the
	// idempotent contract.
	return kv.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
}

func (kv *BoltKV) Keys(ctx context.Context) ([]string, error) {
	if kv.db == nil {
		return nil, ErrNotConnected
	}
	var keys []string
	err := kv.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Snapshot writes a consistent copy of the database file to w. The copy
// can be fed back through Restore to roll the store back.
func (kv *BoltKV) Snapshot(w io.Writer) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	return kv.db.View(func(tx *bbolt.Tx) error {
		_, err := tx.WriteTo(w)
		return err
	})
}

// Restore replaces the database file with the snapshot read from r.
// Restore is called in isolation, no lock is needed.
func (kv *BoltKV) Restore(r io.Reader) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	if err := kv.db.Close(); err != nil {
		return err
	}
	kv.db = nil

	// stage the snapshot in a temp file next to the db, then rename
	f, err := os.CreateTemp(filepath.Dir(kv.path), "*.snapshot")
	if err != nil {
		return err
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), kv.path); err != nil {
		return err
	}

	db, err := initializeDB(kv.path)
	if err != nil {
		return err
	}
	kv.db = db
	return nil
}
