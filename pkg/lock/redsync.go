package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// KeyLocker 基于redsync的按键互斥锁
type KeyLocker struct {
	rs         *redsync.Redsync
	expiry     time.Duration
	tries      int
	retryDelay time.Duration
}

// NewKeyLocker 创建按键互斥锁
func NewKeyLocker(client redis.UniversalClient, expiry time.Duration) *KeyLocker {
	if expiry <= 0 {
		expiry = 10 * time.Second
	}
	return &KeyLocker{
		rs:         redsync.New(goredis.NewPool(client)),
		expiry:     expiry,
		tries:      64,
		retryDelay: 50 * time.Millisecond,
	}
}

// Lock 获取指定键的锁，返回的函数用于释放锁
func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.retryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return func() {
		// 锁过期后释放失败无需处理，过期即释放
		_, _ = mutex.UnlockContext(context.Background())
	}, nil
}
