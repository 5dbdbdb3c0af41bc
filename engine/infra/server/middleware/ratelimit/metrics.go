package ratelimit

import (
	"context"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type limiterMetrics struct {
	blocked metric.Int64Counter
}

func newLimiterMetrics(ctx context.Context, meter metric.Meter) *limiterMetrics {
	if meter == nil {
		return &limiterMetrics{}
	}
	blocked, err := meter.Int64Counter(
		"aoe_rate_limit_blocks_total",
		metric.WithDescription("Total number of requests blocked by rate limiting"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create rate limit counter", "error", err)
		return &limiterMetrics{}
	}
	return &limiterMetrics{blocked: blocked}
}

func (m *limiterMetrics) recordBlocked(ctx context.Context, route string) {
	if m.blocked == nil {
		return
	}
	m.blocked.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
