package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	requestCountMetric    = "http.server.request.count"
	requestDurationMetric = "http.server.request.duration"
)

// RequestOption customises RequestLogger.
type RequestOption func(*requestOptions)

type requestOptions struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider records request metrics on provider instead of the global one.
func WithMeterProvider(provider metric.MeterProvider) RequestOption {
	return func(o *requestOptions) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

type requestMetrics struct {
	count    metric.Int64Counter
	duration metric.Float64Histogram
}

func newRequestMetrics(provider metric.MeterProvider) requestMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentation)

	m := requestMetrics{count: noop.Int64Counter{}, duration: noop.Float64Histogram{}}
	if count, err := meter.Int64Counter(requestCountMetric,
		metric.WithDescription("Completed HTTP requests."),
		metric.WithUnit("{request}"),
	); err == nil {
		m.count = count
	} else {
		otel.Handle(err)
	}
	if duration, err := meter.Float64Histogram(requestDurationMetric,
		metric.WithDescription("Time to serve an HTTP request."),
		metric.WithUnit("s"),
	); err == nil {
		m.duration = duration
	} else {
		otel.Handle(err)
	}
	return m
}

func (m requestMetrics) record(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributeSet(attribute.NewSet(
		semconv.HTTPRequestMethodKey.String(method),
		semconv.HTTPRoute(route),
		semconv.HTTPResponseStatusCode(status),
	))
	m.count.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
