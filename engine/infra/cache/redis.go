// Package cache provides the Redis connection used by the checkpoint store.
package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client   redis.UniversalClient
	embedded *miniredis.Miniredis
	config   *Config
	once     sync.Once // guarantees idempotent, race-free Close
	ctx      context.Context
}

const fallbackRedisPingTimeout time.Duration = 10 * time.Second

// NewRedis connects to the configured server, or starts an embedded
// miniredis when cfg names no server.
func NewRedis(ctx context.Context, cfg *Config) (*Redis, error) {
	log := logger.FromContext(ctx).With("component", "infra_redis")
	ctx = logger.ContextWithLogger(ctx, log)
	if cfg == nil {
		cfg = &Config{}
	}
	var embedded *miniredis.Miniredis
	if cfg.Embedded() {
		srv, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("starting embedded Redis: %w", err)
		}
		embedded = srv
		cfg = withAddr(cfg, srv.Addr())
	}
	client, err := buildRedisClient(cfg)
	if err != nil {
		stopEmbedded(embedded)
		return nil, err
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = fallbackRedisPingTimeout
	}
	if err := pingRedis(ctx, client, timeout); err != nil {
		client.Close()
		stopEmbedded(embedded)
		return nil, err
	}
	log.Info("Redis connection established",
		"addr", redactedAddr(cfg), "db", cfg.DB, "embedded", embedded != nil, "tls_enabled", cfg.TLSEnabled)
	return &Redis{
		client:   client,
		embedded: embedded,
		config:   cfg,
		ctx:      ctx,
	}, nil
}

func withAddr(cfg *Config, addr string) *Config {
	out := *cfg
	out.Addr = addr
	return &out
}

func stopEmbedded(srv *miniredis.Miniredis) {
	if srv != nil {
		srv.Close()
	}
}

// buildRedisClient configures the Redis client from the provided config.
func buildRedisClient(cfg *Config) (redis.UniversalClient, error) {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		applyConfigToOptions(opt, cfg)
		return redis.NewClient(opt), nil
	}
	opt := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	applyConfigToOptions(opt, cfg)
	return redis.NewClient(opt), nil
}

// pingRedis validates connectivity within the configured timeout.
func pingRedis(ctx context.Context, client redis.UniversalClient, timeout time.Duration) error {
	pingCtx, pingCancel := context.WithTimeout(ctx, timeout)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	return nil
}

// applyConfigToOptions applies configuration to Redis options
func applyConfigToOptions(opt *redis.Options, cfg *Config) {
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.TLSEnabled {
		if cfg.TLSConfig != nil {
			opt.TLSConfig = cfg.TLSConfig
		} else {
			host, _, err := net.SplitHostPort(opt.Addr)
			if err != nil {
				host = opt.Addr
			}
			opt.TLSConfig = &tls.Config{
				ServerName: host,
				MinVersion: tls.VersionTLS12,
			}
		}
	}
}

func redactedAddr(cfg *Config) string {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err == nil {
			return opt.Addr
		}
		return "[invalid url]"
	}
	return cfg.Addr
}

// Close shuts down the Redis connection and the embedded server if any.
func (r *Redis) Close() error {
	var err error
	r.once.Do(func() {
		err = r.client.Close()
		stopEmbedded(r.embedded)
		if err != nil {
			logger.FromContext(r.ctx).Error("Redis connection close failed", "error", err)
		} else {
			logger.FromContext(r.ctx).Debug("Redis connection closed")
		}
	})
	return err
}

// Client returns the underlying Redis client
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

// Embedded reports whether the connection points at the in-process server.
func (r *Redis) Embedded() bool {
	return r.embedded != nil
}

// HealthCheck pings the server.
func (r *Redis) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
