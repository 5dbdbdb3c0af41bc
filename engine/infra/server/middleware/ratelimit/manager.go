package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel/metric"
)

const globalRoute = "global"

// Manager owns one limiter per configured route plus the global limiter.
// Limits are tracked in Redis when a client is given, otherwise in memory.
type Manager struct {
	config   *Config
	global   *limiter.Limiter
	routes   map[string]*limiter.Limiter
	excluded map[string]struct{}
	metrics  *limiterMetrics
	store    string
}

// NewManager builds a Manager. redisClient and meter may be nil.
func NewManager(ctx context.Context, cfg *Config, redisClient redis.UniversalClient, meter metric.Meter) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, driver, err := newStore(cfg, redisClient)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		config:   cfg,
		global:   limiter.New(store, cfg.GlobalRate.ToLimiterRate()),
		routes:   make(map[string]*limiter.Limiter, len(cfg.RouteRates)),
		excluded: make(map[string]struct{}, len(cfg.ExcludedPaths)),
		metrics:  newLimiterMetrics(ctx, meter),
		store:    driver,
	}
	for route, rate := range cfg.RouteRates {
		if rate.Disabled {
			continue
		}
		m.routes[route] = limiter.New(store, rate.ToLimiterRate())
	}
	for _, path := range cfg.ExcludedPaths {
		m.excluded[path] = struct{}{}
	}
	logger.FromContext(ctx).Debug("Rate limiter initialized",
		"store", driver, "limit", cfg.GlobalRate.Limit, "period", cfg.GlobalRate.Period)
	return m, nil
}

func newStore(cfg *Config, redisClient redis.UniversalClient) (limiter.Store, string, error) {
	opts := limiter.StoreOptions{
		Prefix:          cfg.Prefix,
		MaxRetry:        cfg.MaxRetry,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	if redisClient == nil {
		return memory.NewStoreWithOptions(opts), "memory", nil
	}
	store, err := sredis.NewStoreWithOptions(redisClient, opts)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return store, "redis", nil
}

// Store reports which backend tracks the limits.
func (m *Manager) Store() string {
	return m.store
}

// Middleware limits requests by client address, using the route limiter
// when the matched route has one.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isExcluded(c) {
			c.Next()
			return
		}
		route := globalRoute
		lim := m.global
		if routeLimiter, ok := m.routes[c.FullPath()]; ok {
			route = c.FullPath()
			lim = routeLimiter
		}
		ctx := c.Request.Context()
		key := route + ":" + c.ClientIP()
		result, err := lim.Get(ctx, key)
		if err != nil {
			logger.FromContext(ctx).Warn("Rate limit check failed, allowing request", "route", route, "error", err)
			c.Next()
			return
		}
		if !m.config.DisableHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))
		}
		if result.Reached {
			m.metrics.recordBlocked(ctx, route)
			router.RespondWithError(c, http.StatusTooManyRequests, router.ErrRateLimitedCode,
				"rate limit exceeded", map[string]any{"limit": result.Limit, "reset": result.Reset})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (m *Manager) isExcluded(c *gin.Context) bool {
	path := c.Request.URL.Path
	if _, ok := m.excluded[path]; ok {
		return true
	}
	for excluded := range m.excluded {
		if strings.HasSuffix(excluded, "/*") && strings.HasPrefix(path, strings.TrimSuffix(excluded, "*")) {
			return true
		}
	}
	return false
}
