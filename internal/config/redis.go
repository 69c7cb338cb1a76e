package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig addresses the Redis server used for the availability cache
// and the rate limiter.
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
}

// NewRedisClient connects to Redis and pings it with a short timeout.  It
// returns nil when Redis is disabled or unreachable; callers then run
// without caching and rate limiting.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if !cfg.Enabled || cfg.Addr == "" {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
