package llm

import (
	"context"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type llmMetrics struct {
	requests metric.Int64Counter
	retries  metric.Int64Counter
}

func newLLMMetrics(meter metric.Meter) *llmMetrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("llm")
	}
	m := &llmMetrics{}
	var err error
	m.requests, err = meter.Int64Counter(
		"aoe_llm_requests_total",
		metric.WithDescription("LLM generation calls by outcome"),
	)
	if err != nil {
		logger.Error("Failed to create LLM requests counter", "error", err)
	}
	m.retries, err = meter.Int64Counter(
		"aoe_llm_retries_total",
		metric.WithDescription("LLM calls retried after a transient failure"),
	)
	if err != nil {
		logger.Error("Failed to create LLM retries counter", "error", err)
	}
	return m
}

func (m *llmMetrics) request(ctx context.Context, provider core.ProviderName, outcome string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", string(provider)),
		attribute.String("outcome", outcome),
	))
}

func (m *llmMetrics) retried(ctx context.Context, provider core.ProviderName) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", string(provider))))
}
