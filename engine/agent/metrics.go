package agent

import (
	"context"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type registryMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
}

func newRegistryMetrics(meter metric.Meter) *registryMetrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("agents")
	}
	m := &registryMetrics{}
	var err error
	m.hits, err = meter.Int64Counter(
		"aoe_agent_cache_hits_total",
		metric.WithDescription("Agent instance cache hits"),
	)
	if err != nil {
		logger.Error("Failed to create agent cache hits counter", "error", err)
	}
	m.misses, err = meter.Int64Counter(
		"aoe_agent_cache_misses_total",
		metric.WithDescription("Agent instance cache misses"),
	)
	if err != nil {
		logger.Error("Failed to create agent cache misses counter", "error", err)
	}
	m.evictions, err = meter.Int64Counter(
		"aoe_agent_cache_evictions_total",
		metric.WithDescription("Agent instances evicted by the LRU bound"),
	)
	if err != nil {
		logger.Error("Failed to create agent cache evictions counter", "error", err)
	}
	return m
}

func (m *registryMetrics) hit(ctx context.Context, agentID string) {
	if m.hits != nil {
		m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_id", agentID)))
	}
}

func (m *registryMetrics) miss(ctx context.Context, agentID string) {
	if m.misses != nil {
		m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("agent_id", agentID)))
	}
}

func (m *registryMetrics) evicted(ctx context.Context, n int64) {
	if m.evictions != nil {
		m.evictions.Add(ctx, n)
	}
}
