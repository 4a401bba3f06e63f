package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// BoltStore is the default, embedded ordered keyed byte store backend,
// analogous to the "sled"-style engine treated as an external collaborator
// in the protocol specification: here it's a real, locally-opened bbolt
// database file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db at %s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

// Namespace implements Store.
func (s *BoltStore) Namespace(name string) (Bucket, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: create namespace %s: %w", name, err)
	}
	return &boltBucket{db: s.db, name: []byte(name)}, nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltBucket struct {
	db   *bolt.DB
	name []byte
}

func (b *boltBucket) Get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.name).Get(key)
		if v == nil {
			return ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *boltBucket) Put(key, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.name).Put(key, value)
	})
}

func (b *boltBucket) Contains(key []byte) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(b.name).Get(key) != nil
		return nil
	})
	return found, err
}

func (b *boltBucket) ForEach(fn func(key, value []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(b.name).ForEach(fn)
	})
}
