package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
)

// Locker 按需求串行化确认、修改和删除操作
type Locker interface {
	// Lock 获取 key 对应的锁，无法获取时返回 domain.ErrConcurrencyConflict
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

func requestLockKey(requestID int64) string {
	return fmt.Sprintf("lock:request:%d", requestID)
}

// LocalLocker 进程内的按 key 互斥锁，单实例部署或测试时使用
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	kl, exists := l.locks[key]
	if !exists {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
		return nil
	}, nil
}

func (l *LocalLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
