package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/agencyflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("realtime",
	fx.Provide(NewHub),
	fx.Provide(provideRedisClient),
	fx.Provide(providePublisher),
	fx.Invoke(registerBridge),
)

// provideRedisClient returns nil when Redis is not configured.
func provideRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func providePublisher(client *redis.Client, hub *Hub, log *zap.Logger) Publisher {
	if client == nil {
		return hub
	}
	return NewRedisPublisher(client, log)
}

func registerBridge(lc fx.Lifecycle, client *redis.Client, hub *Hub, log *zap.Logger) {
	if client == nil {
		return
	}
	bridge := NewBridge(client, hub, log)
	lc.Append(fx.Hook{
		OnStart: bridge.Start,
		OnStop:  bridge.Stop,
	})
}
