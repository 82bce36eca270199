package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStorage_KeyLayoutAndNoTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	s, err := Load(ctx, RedisBackend{Redis: rdb}.Storage("sess-42"), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, s.Items())

	_, err = s.AddItem(ctx, candidate("p1", "red", "M", 2, 100))
	require.NoError(t, err)

	key := "cart:sess-42:family-trend-cart"
	require.True(t, mr.Exists(key))
	assert.Zero(t, mr.TTL(key), "cart must not expire")
	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.Contains(t, raw, `"product_id":"p1"`)
	assert.Equal(t, []string{key}, mr.Keys())
}

func TestRedisStorage_MissingKeyIsNotFound(t *testing.T) {
	_, rdb := newRedis(t)
	v, found, err := RedisBackend{Redis: rdb}.Storage("nobody").Get(context.Background(), Namespace)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestRedisStorage_ErrorsSurface(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	st := RedisBackend{Redis: rdb}.Storage("s1")

	require.NoError(t, rdb.Ping(ctx).Err())
	mr.SetError("ERR injected failure")
	_, err := Load(ctx, st, nil, nil)
	assert.Error(t, err)

	err = st.Update(ctx, Namespace, func(string, bool) (string, error) { return "[]", nil })
	assert.Error(t, err)

	mr.SetError("")
	boom := errors.New("boom")
	err = st.Update(ctx, Namespace, func(string, bool) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("cart:s1:family-trend-cart"))
}

func TestRedisStorage_TwoStoresSameSession(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	backend := RedisBackend{Redis: rdb}

	a, err := Load(ctx, backend.Storage("s1"), nil, nil)
	require.NoError(t, err)
	b, err := Load(ctx, backend.Storage("s1"), nil, nil)
	require.NoError(t, err)

	_, err = a.AddItem(ctx, candidate("p1", "", "", 1, 10))
	require.NoError(t, err)
	_, err = b.AddItem(ctx, candidate("p2", "", "", 1, 20))
	require.NoError(t, err)

	reloaded, err := Load(ctx, backend.Storage("s1"), nil, nil)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items(), 2)
}

func TestRedisStorage_ConcurrentAddsRetry(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	backend := RedisBackend{Redis: rdb, Retries: 50}

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := Load(ctx, backend.Storage("s1"), nil, nil)
			if !assert.NoError(t, err) {
				return
			}
			_, err = s.AddItem(ctx, candidate(fmt.Sprintf("p%d", i), "", "", 1, 10))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s, err := Load(ctx, backend.Storage("s1"), nil, nil)
	require.NoError(t, err)
	assert.Len(t, s.Items(), n)
}

func TestRedisStorage_WriteBetweenReadAndExecRetries(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	st := RedisBackend{Redis: rdb, Retries: 3}.Storage("s1")

	calls := 0
	err := st.Update(ctx, "k", func(cur string, found bool) (string, error) {
		calls++
		if calls == 1 {
			// another writer lands after our read
			require.NoError(t, mr.Set("cart:s1:k", "theirs"))
			return "mine", nil
		}
		return cur + "+mine", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	got, _ := mr.Get("cart:s1:k")
	assert.Equal(t, "theirs+mine", got)
}

func TestRedisStorage_GivesUpWhenAlwaysContended(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	st := RedisBackend{Redis: rdb, Retries: 2}.Storage("s1")

	calls := 0
	err := st.Update(ctx, "k", func(string, bool) (string, error) {
		calls++
		require.NoError(t, mr.Set("cart:s1:k", fmt.Sprint(calls)))
		return "mine", nil
	})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 2, calls)
}
