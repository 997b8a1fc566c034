package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// PreferencesBucket holds every key of the bolt backend.
const PreferencesBucket = "Preferences"

// Bolt is a KV backed by a bbolt file.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt creates or opens the bolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(PreferencesBucket)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", PreferencesBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(PreferencesBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", PreferencesBucket)
		}
		if data := bucket.Get([]byte(key)); data != nil {
			value, ok = string(data), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, ok, nil
}

func (b *Bolt) Set(key, value string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(PreferencesBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", PreferencesBucket)
		}
		return bucket.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Close closes the database file.
func (b *Bolt) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
