package cart

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-storefront-orders.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	"sync"
)

// ErrBusy is returned when a session's cart kept changing underneath an
// update and every retry lost the race.
var ErrBusy = errors.New("cart is being updated by another request")

// Storage is a durable string key/value store scoped to one shopper session.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Update reads key, passes it to fn and stores fn's result. No other
	// writer of the same key can land in between. fn may run more than once.
	Update(ctx context.Context, key string, fn func(value string, found bool) (string, error)) error
}

// Backend hands out the storage of a session.
type Backend interface {
	Storage(session string) Storage
}

// RedisBackend keeps each session's cart in Redis without a TTL.
type RedisBackend struct {
	Redis redis.UniversalClient
	// Retries bounds optimistic retries of one update; 0 means 10.
	Retries int
}

func (b RedisBackend) Storage(session string) Storage {
	retries := b.Retries
	if retries <= 0 {
		retries = 10
	}
	return redisStorage{rdb: b.Redis, session: session, retries: retries}
}

type redisStorage struct {
	rdb     redis.UniversalClient
	session string
	retries int
}

func (s redisStorage) key(k string) string { return fmt.Sprintf(redisx.KeyCart, s.session, k) }

func (s redisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	return get(ctx, s.rdb, s.key(key))
}

// Update is a WATCH/MULTI read-modify-write; a concurrent write to the key
// aborts the EXEC and the whole read-modify-write is retried.
func (s redisStorage) Update(ctx context.Context, key string, fn func(string, bool) (string, error)) error {
	k := s.key(key)
	txf := func(tx *redis.Tx) error {
		cur, found, err := get(ctx, tx, k)
		if err != nil {
			return err
		}
		next, err := fn(cur, found)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}
	for i := 0; i < s.retries; i++ {
		err := s.rdb.Watch(ctx, txf, k)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return ErrBusy
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, rdb getter, key string) (string, bool, error) {
	v, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// MemoryBackend is an in-process Backend for tests and local runs.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: map[string]map[string]string{}}
}

func (b *MemoryBackend) Storage(session string) Storage {
	return &memoryStorage{b: b, session: session}
}

type memoryStorage struct {
	b       *MemoryBackend
	session string
}

func (s *memoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	v, ok := s.b.data[s.session][key]
	return v, ok, nil
}

func (s *memoryStorage) Update(_ context.Context, key string, fn func(string, bool) (string, error)) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	cur, found := s.b.data[s.session][key]
	next, err := fn(cur, found)
	if err != nil {
		return err
	}
	if s.b.data[s.session] == nil {
		s.b.data[s.session] = map[string]string{}
	}
	s.b.data[s.session][key] = next
	return nil
}
