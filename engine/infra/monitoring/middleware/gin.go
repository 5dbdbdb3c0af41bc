package middleware

import (
	"strconv"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/monitoring/metrics"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpInstruments struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) *httpInstruments {
	if meter == nil {
		return nil
	}
	inst := &httpInstruments{}
	var err error
	inst.requestsTotal, err = meter.Int64Counter(
		"aoe_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		logger.Error("Failed to create http requests total counter", "error", err)
		return nil
	}
	inst.requestDuration, err = meter.Float64Histogram(
		"aoe_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.HTTPDurationBuckets...),
	)
	if err != nil {
		logger.Error("Failed to create http request duration histogram", "error", err)
		return nil
	}
	inst.requestsInFlight, err = meter.Int64UpDownCounter(
		"aoe_http_requests_in_flight",
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		logger.Error("Failed to create http requests in flight counter", "error", err)
		return nil
	}
	return inst
}

// HTTPMetrics returns a Gin middleware that collects request counts,
// latency and in-flight requests labelled by route template.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	inst := newHTTPInstruments(meter)
	return func(c *gin.Context) {
		if inst == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		start := time.Now()
		inst.requestsInFlight.Add(ctx, 1)
		defer inst.requestsInFlight.Add(ctx, -1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", path),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		inst.requestsTotal.Add(ctx, 1, attrs)
		inst.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
