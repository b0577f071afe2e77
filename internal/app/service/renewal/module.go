package renewal

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/taskbench/backend/pkg/config"
)

var Module = fx.Options(
	fx.Provide(
		NewRedisLocker,
		func(l *RedisLocker) Locker { return l },
		NewScheduler,
	),
	fx.Invoke(registerCron),
)

func registerCron(lc fx.Lifecycle, cfg *config.Config, sched *Scheduler, log *zap.SugaredLogger) error {
	c := cron.New()
	_, err := c.AddFunc(cfg.Renewal.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Renewal.ScanTimeout())
		defer cancel()
		if err := sched.RunOnce(ctx); err != nil {
			log.Errorw("renewal scan failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			log.Infow("renewal cron started", "schedule", cfg.Renewal.Cron)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}
