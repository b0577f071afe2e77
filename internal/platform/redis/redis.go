package redis

import (
	"context"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/taskbench/backend/pkg/config"
)

func NewClient(cfg *cfgpkg.Config) *goredisv9.Client {
	return goredisv9.NewClient(&goredisv9.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewRedsync builds the distributed-lock factory used to keep the renewal
// scan a cluster-wide singleton.
func NewRedsync(rdb *goredisv9.Client) *redsync.Redsync {
	return redsync.New(goredis.NewPool(rdb))
}

func registerClose(lc fx.Lifecycle, l *zap.SugaredLogger, rdb *goredisv9.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			l.Infow("closing redis connection")
			return rdb.Close()
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Provide(NewRedsync),
	fx.Invoke(registerClose),
)
