package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/garyburd/redigo/redis"
)

// RedisStore is an optional Store backend, wired the same way the teacher
// wires Redis as a transient storage engine (connection pool, AUTH on
// dial, periodic liveness check on borrow). Redis has no native ordered
// key scan, so ForEach fetches every key of the namespace with KEYS and
// sorts them before visiting. Key order is not insertion order here, as
// with BoltStore; graphstore.Open restores insertion order from the
// ordinal stored in each record.
type RedisStore struct {
	pool *redis.Pool
}

// NewRedisStore creates a RedisStore connecting to address, authenticating
// with password if non-empty.
func NewRedisStore(address, password string) *RedisStore {
	pool := &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			c, err := redis.Dial("tcp", address)
			if err != nil {
				return nil, err
			}
			if password != "" {
				if _, err := c.Do("AUTH", password); err != nil {
					c.Close()
					return nil, err
				}
			}
			return c, nil
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &RedisStore{pool: pool}
}

func (s *RedisStore) Namespace(name string) (Bucket, error) {
	return &redisBucket{pool: s.pool, prefix: name + ":"}, nil
}

func (s *RedisStore) Close() error {
	return s.pool.Close()
}

type redisBucket struct {
	pool   *redis.Pool
	prefix string
}

func (b *redisBucket) Get(key []byte) ([]byte, error) {
	conn := b.pool.Get()
	defer conn.Close()
	v, err := redis.Bytes(conn.Do("GET", b.prefix+string(key)))
	if err == redis.ErrNil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis GET: %w", err)
	}
	return v, nil
}

func (b *redisBucket) Put(key, value []byte) error {
	conn := b.pool.Get()
	defer conn.Close()
	_, err := conn.Do("SET", b.prefix+string(key), value)
	if err != nil {
		return fmt.Errorf("store: redis SET: %w", err)
	}
	return nil
}

func (b *redisBucket) Contains(key []byte) (bool, error) {
	conn := b.pool.Get()
	defer conn.Close()
	ok, err := redis.Bool(conn.Do("EXISTS", b.prefix+string(key)))
	if err != nil {
		return false, fmt.Errorf("store: redis EXISTS: %w", err)
	}
	return ok, nil
}

func (b *redisBucket) ForEach(fn func(key, value []byte) error) error {
	conn := b.pool.Get()
	defer conn.Close()
	keys, err := redis.Strings(conn.Do("KEYS", b.prefix+"*"))
	if err != nil {
		return fmt.Errorf("store: redis KEYS: %w", err)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := redis.Bytes(conn.Do("GET", k))
		if err == redis.ErrNil {
			continue
		}
		if err != nil {
			return fmt.Errorf("store: redis GET during ForEach: %w", err)
		}
		if err := fn([]byte(k[len(b.prefix):]), v); err != nil {
			return err
		}
	}
	return nil
}
