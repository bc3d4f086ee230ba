package otel

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds the API instruments.
type Metrics struct {
	requests otelmetric.Int64Counter
	duration otelmetric.Float64Histogram
	signIns  otelmetric.Int64Counter
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp otelmetric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)
	requests, err := meter.Int64Counter("qna.http.requests",
		otelmetric.WithDescription("HTTP requests served, by route and status."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("qna.http.duration",
		otelmetric.WithDescription("HTTP request latency."),
		otelmetric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	signIns, err := meter.Int64Counter("qna.auth.signins",
		otelmetric.WithDescription("Sign-in attempts, by outcome."))
	if err != nil {
		return nil, err
	}
	return &Metrics{requests: requests, duration: duration, signIns: signIns}, nil
}

// RecordRequest counts one served request. A nil Metrics records nothing.
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSignIn counts one sign-in attempt with outcome success or failure.
func (m *Metrics) RecordSignIn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.signIns.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}
