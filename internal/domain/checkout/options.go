package checkout

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/order"
)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Orchestrator.
type Option func(*Orchestrator, *options)

// WithIDGenerator replaces the random UUID order id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator, _ *options) {
		o.newID = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator, _ *options) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(o *Orchestrator, _ *options) {
		o.lg = lg
	}
}

// WithNotifiers adds notifiers called after every completed sale.
func WithNotifiers(n ...order.Notifier) Option {
	return func(o *Orchestrator, _ *options) {
		o.notifiers = append(o.notifiers, n...)
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(_ *Orchestrator, cfg *options) {
		cfg.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(_ *Orchestrator, cfg *options) {
		cfg.meterProvider = mp
	}
}
