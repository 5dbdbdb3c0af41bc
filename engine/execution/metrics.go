package execution

import (
	"context"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/monitoring/metrics"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type trackerMetrics struct {
	startedTotal  metric.Int64Counter
	finishedTotal metric.Int64Counter
	running       metric.Int64UpDownCounter
	duration      metric.Float64Histogram
}

func newTrackerMetrics(meter metric.Meter) *trackerMetrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("executions")
	}
	m := &trackerMetrics{}
	var err error
	m.startedTotal, err = meter.Int64Counter(
		"aoe_executions_started_total",
		metric.WithDescription("Agent executions started"),
	)
	if err != nil {
		logger.Error("Failed to create executions started counter", "error", err)
	}
	m.finishedTotal, err = meter.Int64Counter(
		"aoe_executions_finished_total",
		metric.WithDescription("Agent executions that reached a terminal status"),
	)
	if err != nil {
		logger.Error("Failed to create executions finished counter", "error", err)
	}
	m.running, err = meter.Int64UpDownCounter(
		"aoe_executions_running",
		metric.WithDescription("Agent executions currently running"),
	)
	if err != nil {
		logger.Error("Failed to create executions running counter", "error", err)
	}
	m.duration, err = meter.Float64Histogram(
		"aoe_execution_duration_seconds",
		metric.WithDescription("Time from execution start to its terminal status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.ExecutionDurationBuckets...),
	)
	if err != nil {
		logger.Error("Failed to create execution duration histogram", "error", err)
	}
	return m
}

func (m *trackerMetrics) started(ctx context.Context, agentID string) {
	attrs := metric.WithAttributes(attribute.String("agent_id", agentID))
	if m.startedTotal != nil {
		m.startedTotal.Add(ctx, 1, attrs)
	}
	if m.running != nil {
		m.running.Add(ctx, 1, attrs)
	}
}

func (m *trackerMetrics) finished(ctx context.Context, rec *Record) {
	attrs := metric.WithAttributes(
		attribute.String("agent_id", rec.AgentID),
		attribute.String("status", rec.Status.String()),
	)
	if m.finishedTotal != nil {
		m.finishedTotal.Add(ctx, 1, attrs)
	}
	if m.duration != nil && rec.CompletedAt != nil {
		m.duration.Record(ctx, rec.CompletedAt.Sub(rec.StartedAt).Seconds(), attrs)
	}
	if m.running != nil {
		m.running.Add(ctx, -1, metric.WithAttributes(attribute.String("agent_id", rec.AgentID)))
	}
}
