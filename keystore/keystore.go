package keystore

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nuts-foundation/nuts-go/store"
)

const namespace = "keys"

// KeyStore is the persistent key_id -> PublicKey mapping (C2). Keys are
// insert-once: once a key_id is bound to a key, KeyStore.Add refuses to
// rebind it, mirroring pki.rs's KeyStore::add check against contains_key
// before inserting.
type KeyStore struct {
	bucket store.Bucket
}

// ErrKeyExists is returned by Add when key_id is already bound.
var ErrKeyExists = fmt.Errorf("keystore: key already exists")

// Open returns a KeyStore backed by the "keys" namespace of s.
func Open(s store.Store) (*KeyStore, error) {
	b, err := s.Namespace(namespace)
	if err != nil {
		return nil, fmt.Errorf("keystore: open namespace: %w", err)
	}
	return &KeyStore{bucket: b}, nil
}

// Get returns the PublicKey bound to keyID, or store.ErrNotFound.
func (ks *KeyStore) Get(keyID string) (PublicKey, error) {
	packed, err := ks.bucket.Get([]byte(keyID))
	if err != nil {
		return PublicKey{}, err
	}
	var raw []byte
	if err := msgpack.Unmarshal(packed, &raw); err != nil {
		return PublicKey{}, fmt.Errorf("keystore: stored jwk for %s is corrupt: %w", keyID, err)
	}
	pk, err := ParsePublicKeyJWK(raw)
	if err != nil {
		return PublicKey{}, fmt.Errorf("keystore: stored jwk for %s is corrupt: %w", keyID, err)
	}
	return pk, nil
}

// Contains reports whether keyID is already bound.
func (ks *KeyStore) Contains(keyID string) (bool, error) {
	return ks.bucket.Contains([]byte(keyID))
}

// Add binds keyID to key, refusing to overwrite an existing binding.
func (ks *KeyStore) Add(keyID string, key PublicKey) error {
	exists, err := ks.bucket.Contains([]byte(keyID))
	if err != nil {
		return fmt.Errorf("keystore: check existing key %s: %w", keyID, err)
	}
	if exists {
		return ErrKeyExists
	}
	return ks.put(keyID, key)
}

// Set replaces (or creates) the binding for keyID unconditionally,
// bypassing the insert-once check that Add enforces.
func (ks *KeyStore) Set(keyID string, key PublicKey) error {
	return ks.put(keyID, key)
}

// put MessagePack-encodes the key's JWK before persisting it, matching
// the on-disk format of the "keys" namespace.
func (ks *KeyStore) put(keyID string, key PublicKey) error {
	packed, err := msgpack.Marshal(key.MarshalJWK())
	if err != nil {
		return fmt.Errorf("keystore: encode jwk for %s: %w", keyID, err)
	}
	return ks.bucket.Put([]byte(keyID), packed)
}

// List returns every key_id currently bound, in store iteration order.
func (ks *KeyStore) List() ([]string, error) {
	var ids []string
	err := ks.bucket.ForEach(func(key, _ []byte) error {
		ids = append(ids, string(key))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("keystore: list: %w", err)
	}
	return ids, nil
}
