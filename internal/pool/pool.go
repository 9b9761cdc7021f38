package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisPool 用一个 set 保存待分配需求的 ID，并用 hash 保存需求快照供列表展示
type RedisPool struct {
	rdb     redis.Cmdable
	key     string
	timeout time.Duration
}

func NewRedisPool(rdb redis.Cmdable, key string, timeout time.Duration) *RedisPool {
	return &RedisPool{
		rdb:     rdb,
		key:     key,
		timeout: timeout,
	}
}

func (p *RedisPool) snapshotKey() string {
	return p.key + ":snapshots"
}

func (p *RedisPool) MarkAssigned(ctx context.Context, requestID int64) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	id := strconv.FormatInt(requestID, 10)
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, p.key, id)
		pipe.HDel(ctx, p.snapshotKey(), id)
		return nil
	})
	return err
}

func (p *RedisPool) MarkUnassigned(ctx context.Context, requestID int64, snapshot *domain.Request) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	id := strconv.FormatInt(requestID, 10)
	var data []byte
	if snapshot != nil {
		b, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		data = b
	}

	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, p.key, id)
		if data != nil {
			pipe.HSet(ctx, p.snapshotKey(), id, data)
		}
		return nil
	})
	return err
}

func (p *RedisPool) Contains(ctx context.Context, requestID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.rdb.SIsMember(ctx, p.key, strconv.FormatInt(requestID, 10)).Result()
}

// List 返回队列中所有需求的快照，按 ID 排序，没有快照的需求只包含 ID
func (p *RedisPool) List(ctx context.Context) ([]*domain.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ids, err := p.rdb.SMembers(ctx, p.key).Result()
	if err != nil {
		return nil, err
	}

	requests := make([]*domain.Request, 0, len(ids))
	if len(ids) == 0 {
		return requests, nil
	}

	snapshots, err := p.rdb.HMGet(ctx, p.snapshotKey(), ids...).Result()
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		requestID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("待分配队列中存在非法的需求 ID %q", id)
		}

		req := &domain.Request{ID: requestID}
		if raw, ok := snapshots[i].(string); ok {
			if err := json.Unmarshal([]byte(raw), req); err != nil {
				return nil, err
			}
		}
		requests = append(requests, req)
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].ID < requests[j].ID
	})

	return requests, nil
}

// Rebuild 用数据库中的结果替换整个队列，启动时调用
func (p *RedisPool) Rebuild(ctx context.Context, requests []*domain.Request) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	members := make([]any, 0, len(requests))
	snapshots := make(map[string]any, len(requests))
	for _, req := range requests {
		id := strconv.FormatInt(req.ID, 10)
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		members = append(members, id)
		snapshots[id] = data
	}

	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key, p.snapshotKey())
		if len(members) > 0 {
			pipe.SAdd(ctx, p.key, members...)
			pipe.HSet(ctx, p.snapshotKey(), snapshots)
		}
		return nil
	})
	return err
}

// MemoryPool 进程内的队列实现，没有配置 redis 时使用
type MemoryPool struct {
	mu       sync.Mutex
	requests map[int64]*domain.Request
}

func NewMemoryPool() *MemoryPool {
	return &MemoryPool{requests: make(map[int64]*domain.Request)}
}

func (p *MemoryPool) MarkAssigned(_ context.Context, requestID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.requests, requestID)
	return nil
}

func (p *MemoryPool) MarkUnassigned(_ context.Context, requestID int64, snapshot *domain.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snapshot == nil {
		snapshot = &domain.Request{ID: requestID}
	}
	copied := *snapshot
	p.requests[requestID] = &copied
	return nil
}

func (p *MemoryPool) Contains(_ context.Context, requestID int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.requests[requestID]
	return ok, nil
}

func (p *MemoryPool) List(_ context.Context) ([]*domain.Request, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	requests := make([]*domain.Request, 0, len(p.requests))
	for _, req := range p.requests {
		copied := *req
		requests = append(requests, &copied)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].ID < requests[j].ID
	})
	return requests, nil
}

func (p *MemoryPool) Rebuild(_ context.Context, requests []*domain.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = make(map[int64]*domain.Request, len(requests))
	for _, req := range requests {
		copied := *req
		p.requests[req.ID] = &copied
	}
	return nil
}
