// Package lock 提供周期租约，保证多个副本不会同时清空报表库。
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	xerrors "Lotus-Dashboard/internal/errors"
)

// ErrLeaseLost 表示租约已过期或被他人持有。
var ErrLeaseLost = errors.New("周期租约已丢失")

// Lease 是一次已获得的租约。TTL 为 0 表示租约不会过期，无需续期。
type Lease interface {
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
	TTL() time.Duration
}

// Locker 尝试获取租约，已被他人持有时返回 ok=false 且不报错。
type Locker interface {
	TryLock(ctx context.Context) (lease Lease, ok bool, err error)
}

// Noop 在未配置 Redis 时使用，总是成功。
type Noop struct{}

// TryLock 实现 Locker。
func (Noop) TryLock(context.Context) (Lease, bool, error) {
	return noopLease{}, true, nil
}

type noopLease struct{}

func (noopLease) Refresh(context.Context) error { return nil }
func (noopLease) Release(context.Context) error { return nil }
func (noopLease) TTL() time.Duration             { return 0 }

// 只删除自己持有的 key，避免误删过期后被他人重新获取的租约。
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

const refreshScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisConfig 描述 Redis 租约参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// RedisLocker 使用 SET NX PX 实现租约。
type RedisLocker struct {
	client redisClient
	closer func() error
	key    string
	ttl    time.Duration
}

// NewRedisLocker 连接 Redis 并确认可达。
func NewRedisLocker(ctx context.Context, cfg RedisConfig) (*RedisLocker, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, xerrors.Wrap(xerrors.CodeLockFailure, err, "连接 Redis 失败")
	}
	l := newRedisLocker(client, cfg.Key, cfg.TTL)
	l.closer = client.Close
	return l, nil
}

func newRedisLocker(client redisClient, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = "lotus:dashboard:cron"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// TryLock 实现 Locker。
func (l *RedisLocker) TryLock(ctx context.Context) (Lease, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, xerrors.Wrap(xerrors.CodeLockFailure, err, "获取周期租约失败",
			xerrors.WithMetadata("key", l.key))
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{locker: l, token: token}, true, nil
}

// Close 关闭底层连接。
func (l *RedisLocker) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer()
}

type redisLease struct {
	locker *RedisLocker
	token  string
}

// Refresh 把租约有效期重置为完整 TTL，租约已不属于自己时返回 ErrLeaseLost。
func (r *redisLease) Refresh(ctx context.Context) error {
	n, err := r.locker.client.Eval(ctx, refreshScript, []string{r.locker.key}, r.token, r.locker.ttl.Milliseconds()).Int64()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeLockFailure, err, fmt.Sprintf("续期周期租约 %s 失败", r.locker.key))
	}
	if n == 0 {
		return xerrors.Wrap(xerrors.CodeLockFailure, ErrLeaseLost, fmt.Sprintf("周期租约 %s 已不属于本实例", r.locker.key),
			xerrors.WithRetryable(false))
	}
	return nil
}

func (r *redisLease) TTL() time.Duration { return r.locker.ttl }

func (r *redisLease) Release(ctx context.Context) error {
	if err := r.locker.client.Eval(ctx, releaseScript, []string{r.locker.key}, r.token).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeLockFailure, err, fmt.Sprintf("释放周期租约 %s 失败", r.locker.key))
	}
	return nil
}

// KeepAlive 每隔 TTL/3 续期一次租约，直到返回的 stop 被调用。
// 租约丢失时取消返回的 ctx，使后续写入中止；其他续期错误交给 onErr 后继续重试。
func KeepAlive(ctx context.Context, lease Lease, onErr func(error)) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	ttl := lease.TTL()
	if ttl <= 0 {
		return ctx, func() { cancel(nil) }
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := lease.Refresh(ctx)
			if err == nil {
				continue
			}
			if onErr != nil {
				onErr(err)
			}
			if errors.Is(err, ErrLeaseLost) {
				cancel(err)
				return
			}
		}
	}()
	return ctx, func() {
		close(done)
		<-stopped
		cancel(nil)
	}
}
