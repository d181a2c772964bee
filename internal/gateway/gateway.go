// Package gateway implements payment.Gateway over the HTTP earn endpoint of
// the payment service.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/settings"
	"github.com/xenking/pos-till/internal/wire"
)

// Header names carrying the gateway credentials.
const (
	HeaderServiceCode = "X-Service-Code"
	HeaderPosAppID    = "X-Pos-App-Id"
)

const (
	// DefaultTimeout bounds one charge call.
	DefaultTimeout = 30 * time.Second

	maxResponseBody = 1 << 20

	timeoutMessage     = "Payment gateway did not respond in time"
	unavailableMessage = "Payment gateway is temporarily unavailable"
)

// BreakerConfig tunes the circuit breaker around the gateway.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state counters.
	Interval time.Duration
	// OpenTimeout is how long the breaker stays open.
	OpenTimeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// Config configures the client.
type Config struct {
	Timeout time.Duration
	Breaker BreakerConfig
}

// Client charges orders through the payment gateway. Credentials and the
// endpoint are read from settings on every call.
type Client struct {
	settings settings.Source
	http     *http.Client
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker
	lg       *zap.Logger
}

var _ payment.Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*options)

type options struct {
	transport      http.RoundTripper
	lg             *zap.Logger
	tracerProvider trace.TracerProvider
}

// WithTransport replaces http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithTracerProvider sets the tracer provider of the client transport.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// New creates a Client.
func New(src settings.Source, cfg Config, opts ...Option) *Client {
	o := options{
		transport:      http.DefaultTransport,
		lg:             zap.NewNop(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	b := cfg.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 1
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = 30 * time.Second
	}
	if b.ConsecutiveFailures == 0 {
		b.ConsecutiveFailures = 5
	}

	lg := o.lg
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isSuccessful,
	})

	return &Client{
		settings: src,
		http: &http.Client{
			Transport: otelhttp.NewTransport(o.transport,
				otelhttp.WithTracerProvider(o.tracerProvider),
			),
		},
		timeout: cfg.Timeout,
		cb:      cb,
		lg:      lg,
	}
}

// Charge posts req to the earn endpoint. Missing credentials fail with
// payment.MissingConfigurationError before any network call. Every other
// failure is a *payment.GatewayError.
func (c *Client) Charge(ctx context.Context, req payment.Request) (*payment.Receipt, error) {
	cfg := c.settings.Current()
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	body := wire.Marshal(func(e *jx.Encoder) {
		wire.EncodeChargeRequest(e, req)
	})

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.post(ctx, cfg, req.OrderID, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &payment.GatewayError{Message: unavailableMessage, Err: err}
		}
		return nil, err
	}
	return res.(*payment.Receipt), nil
}

func (c *Client) post(ctx context.Context, cfg settings.Config, orderID string, body []byte) (*payment.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, &payment.GatewayError{Message: payment.DefaultGatewayMessage, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderServiceCode, cfg.ServiceCode)
	httpReq.Header.Set(HeaderPosAppID, cfg.PosAppID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			c.lg.Warn("Payment gateway timeout",
				zap.String("order_id", orderID),
				zap.Duration("timeout", c.timeout),
			)
			return nil, &payment.GatewayError{Message: timeoutMessage, Timeout: true, Err: err}
		}
		return nil, &payment.GatewayError{Message: payment.DefaultGatewayMessage, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &payment.GatewayError{Status: resp.StatusCode, Message: payment.DefaultGatewayMessage, Err: err}
	}
	msg := wire.DecodeMessage(data)

	c.lg.Info("Payment gateway responded",
		zap.String("order_id", orderID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg == "" {
			msg = payment.DefaultGatewayMessage
		}
		return nil, &payment.GatewayError{Status: resp.StatusCode, Message: msg}
	}
	return &payment.Receipt{OrderID: orderID, Status: resp.StatusCode, Message: msg}, nil
}

// isSuccessful keeps gateway rejections (4xx) from tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var gwErr *payment.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Status >= 400 && gwErr.Status < 500
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
