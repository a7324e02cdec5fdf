package lock

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/landedcost/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)

// NewRedisClient returns nil when REDIS_ADDR is not configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		OnStop: func(context.Context) error {
			log.Info("closing redis client")
			return client.Close()
		},
	})

	return client
}

func NewLocker(cfg config.Config, client *redis.Client, log *zap.Logger) Locker {
	if client == nil {
		log.Info("using in-process pool locks")
		return NewKeyedMutex()
	}
	log.Info("using redis pool locks", zap.String("addr", cfg.RedisAddr))
	return NewRedisLocker(client, cfg.AppName+":lock:")
}
