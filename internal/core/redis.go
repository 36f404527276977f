package core

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/duynhne/smartbrain-service/config"
)

// NewRedis creates the session store client and verifies it with a ping.
// REDIS_URL wins over REDIS_HOST/REDIS_PORT.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	return opts, nil
}
