package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/redis/go-redis/v9"
)

// 只有持有 token 的一方才能释放锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 SET NX PX 的分布式锁，多实例部署时按需求串行化修改
type RedisLocker struct {
	rdb        lockClient
	ttl        time.Duration
	retryDelay time.Duration
	maxRetries int
}

type lockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

func NewRedisLocker(rdb lockClient, ttl, retryDelay time.Duration, maxRetries int) *RedisLocker {
	return &RedisLocker{
		rdb:        rdb,
		ttl:        ttl,
		retryDelay: retryDelay,
		maxRetries: maxRetries,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		if attempt >= l.maxRetries {
			return nil, fmt.Errorf("%w: 获取锁 %s 超时", domain.ErrConcurrencyConflict, key)
		}

		select {
		case <-time.After(l.retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, ctx.Err())
		}
	}

	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}
