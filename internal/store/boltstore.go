package store

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/heysubinoy/kvweb/pkg/kv"
)

// BoltStore is a kv.Store persisted to a single local Bolt database file.
type BoltStore struct {
	db *bolt.DB
}

var _ kv.Store = (*BoltStore)(nil)

var bucketName = []byte("records")

// OpenBoltStore opens (creating if needed) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open bolt database %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketName); err != nil {
			return fmt.Errorf("could not ensure bucket %q exists: %w", bucketName, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (value string, found bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		// The returned slice is only valid for the life of the transaction.
		if v := tx.Bucket(bucketName).Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return value, found, err
}

func (s *BoltStore) Set(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketName).Put([]byte(key), []byte(value)); err != nil {
			return fmt.Errorf("could not put %.40q: %w", key, err)
		}
		return nil
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) (existed bool, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(key))
	})
	return existed, err
}

func (s *BoltStore) Keys(_ context.Context) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
