package store

import "sort"

// MemoryStore is an in-process Store, used in tests and as the zero-config
// fallback the way storage.InMemoryStorage is the teacher's fallback
// transient store.
type MemoryStore struct {
	namespaces map[string]*memoryBucket
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string]*memoryBucket)}
}

func (s *MemoryStore) Namespace(name string) (Bucket, error) {
	if b, ok := s.namespaces[name]; ok {
		return b, nil
	}
	b := &memoryBucket{data: make(map[string][]byte)}
	s.namespaces[name] = b
	return b, nil
}

func (s *MemoryStore) Close() error { return nil }

type memoryBucket struct {
	data map[string][]byte
}

func (b *memoryBucket) Get(key []byte) ([]byte, error) {
	v, ok := b.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *memoryBucket) Put(key, value []byte) error {
	b.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (b *memoryBucket) Contains(key []byte) (bool, error) {
	_, ok := b.data[string(key)]
	return ok, nil
}

func (b *memoryBucket) ForEach(fn func(key, value []byte) error) error {
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), b.data[k]); err != nil {
			return err
		}
	}
	return nil
}
