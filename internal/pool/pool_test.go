package pool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPoolReclassification(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPool()

	req := &domain.Request{ID: 3, Title: "login page", EstimatedHours: decimal.NewFromInt(10)}
	require.NoError(t, p.MarkUnassigned(ctx, req.ID, req))
	require.NoError(t, p.MarkUnassigned(ctx, 1, nil))

	ok, err := p.Contains(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, "login page", list[1].Title)

	require.NoError(t, p.MarkAssigned(ctx, 3))
	ok, err = p.Contains(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	// 重复移除不报错
	require.NoError(t, p.MarkAssigned(ctx, 3))
}

func TestMemoryPoolRebuildReplacesContents(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPool()
	require.NoError(t, p.MarkUnassigned(ctx, 9, nil))

	require.NoError(t, p.Rebuild(ctx, []*domain.Request{{ID: 2}, {ID: 5}}))

	list, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, int64(5), list[1].ID)
}

// 以下测试需要真实的 redis，设置 REDIS_ADDR 后运行
func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR 未设置")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err())

	return rdb
}

func TestRedisPool(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	key := fmt.Sprintf("test:pool:%d", time.Now().UnixNano())
	t.Cleanup(func() { rdb.Del(context.Background(), key, key+":snapshots") })

	p := NewRedisPool(rdb, key, 2*time.Second)

	req := &domain.Request{ID: 42, Title: "export csv", EstimatedHours: decimal.RequireFromString("12.5")}
	require.NoError(t, p.MarkUnassigned(ctx, req.ID, req))

	list, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "export csv", list[0].Title)
	assert.True(t, list[0].EstimatedHours.Equal(decimal.RequireFromString("12.5")))

	require.NoError(t, p.MarkAssigned(ctx, req.ID))
	ok, err := p.Contains(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Rebuild(ctx, []*domain.Request{{ID: 1}, {ID: 2}}))
	list, err = p.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRedisLockerSerializes(t *testing.T) {
	rdb := redisClient(t)
	key := fmt.Sprintf("test:lock:%d", time.Now().UnixNano())

	l := NewRedisLocker(rdb, 5*time.Second, 10*time.Millisecond, 500)

	var (
		mu      sync.Mutex
		holders int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			holders++
			maxSeen = max(maxSeen, holders)
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()

			assert.NoError(t, unlock(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestRedisLockerGivesUp(t *testing.T) {
	rdb := redisClient(t)
	key := fmt.Sprintf("test:lock:%d", time.Now().UnixNano())

	l := NewRedisLocker(rdb, 5*time.Second, time.Millisecond, 2)
	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	defer func() { _ = unlock(context.Background()) }()

	_, err = l.Lock(context.Background(), key)
	assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict))
}
