// Package store abstracts the embedded ordered keyed byte store that backs
// the key store and graph store. Loading, TLS material, and the concrete
// storage engine choice are a collaborator's concern; this package exposes
// only the minimal namespaced byte-store contract both need.
package store

import "errors"

// ErrNotFound is returned by Bucket.Get when the key does not exist.
var ErrNotFound = errors.New("store: key not found")

// Store is an ordered keyed byte store, namespaced into independent buckets
// (the "dag" and "keys" namespaces of the on-disk format).
type Store interface {
	// Namespace returns the bucket for the given name, creating it if
	// this is the first use.
	Namespace(name string) (Bucket, error)
	// Close releases the underlying storage engine.
	Close() error
}

// Bucket is a single namespace within a Store: a byte-keyed, byte-valued
// map with ordered iteration by key.
type Bucket interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// Put stores value under key, overwriting any existing value.
	Put(key, value []byte) error
	// Contains reports whether key is present.
	Contains(key []byte) (bool, error)
	// ForEach calls fn for every key/value pair in ascending key order,
	// stopping early if fn returns an error.
	ForEach(fn func(key, value []byte) error) error
}
