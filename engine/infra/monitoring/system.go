package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type systemMetrics struct {
	registration metric.Registration
}

// newSystemMetrics records build info once and observes uptime on every
// collection.
func newSystemMetrics(ctx context.Context, meter metric.Meter) *systemMetrics {
	log := logger.FromContext(ctx)
	info := version.Get()
	buildInfo, err := meter.Float64Gauge(
		"aoe_build_info",
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		log.Error("Failed to create build info gauge", "error", err)
	} else {
		buildInfo.Record(ctx, 1, metric.WithAttributes(
			attribute.String("version", info.Version),
			attribute.String("commit_hash", info.CommitHash),
			attribute.String("go_version", runtime.Version()),
		))
	}
	uptime, err := meter.Float64ObservableGauge(
		"aoe_uptime_seconds",
		metric.WithDescription("Service uptime in seconds"),
	)
	if err != nil {
		log.Error("Failed to create uptime gauge", "error", err)
		return &systemMetrics{}
	}
	started := time.Now()
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(uptime, time.Since(started).Seconds())
		return nil
	}, uptime)
	if err != nil {
		log.Error("Failed to register uptime callback", "error", err)
	}
	log.Debug("System metrics initialized", "version", info.Version, "commit", info.CommitHash)
	return &systemMetrics{registration: reg}
}

func (m *systemMetrics) unregister(ctx context.Context) {
	if m.registration == nil {
		return
	}
	if err := m.registration.Unregister(); err != nil {
		logger.FromContext(ctx).Error("Failed to unregister uptime callback", "error", err)
	}
	m.registration = nil
}
