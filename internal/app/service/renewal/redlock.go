package renewal

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"go.uber.org/zap"
)

// RedisLocker is the redsync-backed Locker used by worker deployments so that
// overlapping cron ticks across replicas collapse into one scan.
type RedisLocker struct {
	rs  *redsync.Redsync
	log *zap.SugaredLogger
}

func NewRedisLocker(rs *redsync.Redsync, log *zap.SugaredLogger) *RedisLocker {
	return &RedisLocker{rs: rs, log: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool) {
	mu := l.rs.NewMutex(name, redsync.WithExpiry(ttl), redsync.WithTries(1))
	if err := mu.LockContext(ctx); err != nil {
		return nil, false
	}
	release := func() {
		if _, err := mu.UnlockContext(ctx); err != nil {
			l.log.Warnw("failed to release scan lock", "lock", name, "error", err)
		}
	}
	return release, true
}
