package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
)

var (
	// ErrEmptyCart is returned when checking out a cart without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoPendingOrder is returned by Pay and Cancel outside AwaitingPayment.
	ErrNoPendingOrder = errors.New("no order awaiting payment")
)

// State of the orchestrator.
type State string

const (
	StateIdle            State = "idle"
	StateAwaitingPayment State = "awaiting_payment"
)

// Orchestrator sequences order id generation, payment and order finalisation
// for one cart. It is not safe for concurrent use.
type Orchestrator struct {
	tillID  string
	cart    *cart.Cart
	gateway payment.Gateway
	orders  order.Repository

	state   State
	orderID string

	newID     func() string
	now       func() time.Time
	notifiers []order.Notifier
	lg        *zap.Logger
	tracer    trace.Tracer
	completed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates an idle orchestrator for the cart of tillID.
func New(tillID string, c *cart.Cart, gateway payment.Gateway, orders order.Repository, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		tillID:  tillID,
		cart:    c,
		gateway: gateway,
		orders:  orders,
		state:   StateIdle,
		newID:   uuid.NewString,
		now:     time.Now,
		lg:      zap.NewNop(),
	}
	cfg := options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o, &cfg)
	}

	o.tracer = cfg.tracerProvider.Tracer("pos/checkout")
	meter := cfg.meterProvider.Meter("pos/checkout")

	var err error
	if o.completed, err = meter.Int64Counter("pos.checkout.completed",
		metric.WithDescription("Completed sales"),
	); err != nil {
		return nil, errors.Wrap(err, "completed counter")
	}
	if o.failed, err = meter.Int64Counter("pos.checkout.payment_failed",
		metric.WithDescription("Failed payment attempts"),
	); err != nil {
		return nil, errors.Wrap(err, "payment failed counter")
	}
	return o, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// PendingOrderID returns the id of the order awaiting payment, or "".
func (o *Orchestrator) PendingOrderID() string {
	return o.orderID
}

// Begin moves Idle → AwaitingPayment and returns the new order id. Calling it
// while a payment is pending returns the pending id.
func (o *Orchestrator) Begin() (string, error) {
	if o.state == StateAwaitingPayment {
		return o.orderID, nil
	}
	if o.cart.IsEmpty() {
		return "", ErrEmptyCart
	}

	o.orderID = o.newID()
	o.state = StateAwaitingPayment
	o.lg.Info("Checkout started",
		zap.String("till_id", o.tillID),
		zap.String("order_id", o.orderID),
	)
	return o.orderID, nil
}

// Cancel discards the pending order id. The cart is left untouched.
func (o *Orchestrator) Cancel() error {
	if o.state != StateAwaitingPayment {
		return ErrNoPendingOrder
	}
	o.lg.Info("Checkout cancelled",
		zap.String("till_id", o.tillID),
		zap.String("order_id", o.orderID),
	)
	o.reset()
	return nil
}

// Pay settles the pending order with method and charges it through the
// gateway. On failure the orchestrator stays in AwaitingPayment with the same
// order id and the cart is untouched, so the call can be retried. On success
// the completed order is stored, the cart is cleared and the orchestrator
// returns to Idle.
func (o *Orchestrator) Pay(ctx context.Context, method payment.Method) (_ *order.Order, rerr error) {
	if o.state != StateAwaitingPayment {
		return nil, ErrNoPendingOrder
	}

	ctx, span := o.tracer.Start(ctx, "checkout.Pay", trace.WithAttributes(
		attribute.String("pos.till_id", o.tillID),
		attribute.String("pos.order_id", o.orderID),
	))
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	snap := o.cart.Snapshot()
	if len(snap.Items) == 0 {
		return nil, ErrEmptyCart
	}

	paid, err := payment.Settle(method, snap.Total)
	if err != nil {
		return nil, errors.Wrap(err, "settle")
	}

	req := payment.Request{
		OrderID:    o.orderID,
		Amount:     snap.Total,
		CustomerID: snap.CustomerID,
		OrderDate:  o.now(),
	}
	if snap.Voucher != nil {
		req.PromotionID = snap.Voucher.GUID
	}

	attrs := metric.WithAttributes(
		attribute.String("pos.till_id", o.tillID),
		attribute.String("pos.payment_method", string(paid.Method)),
	)
	if _, err := o.gateway.Charge(ctx, req); err != nil {
		o.failed.Add(ctx, 1, attrs)
		o.lg.Warn("Payment failed",
			zap.String("till_id", o.tillID),
			zap.String("order_id", o.orderID),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "charge")
	}

	completed, err := order.Build(o.orderID, o.tillID, snap, paid, req.OrderDate)
	if err != nil {
		return nil, errors.Wrap(err, "build order")
	}

	// The gateway has already taken the money, so history failures must not
	// undo the sale.
	if err := o.orders.Create(ctx, completed); err != nil {
		o.lg.Error("Append order history",
			zap.String("order_id", completed.ID),
			zap.Error(err),
		)
	}

	o.cart.Clear()
	o.reset()
	o.completed.Add(ctx, 1, attrs)
	o.lg.Info("Checkout completed",
		zap.String("till_id", o.tillID),
		zap.String("order_id", completed.ID),
		zap.String("total", completed.Total.String()),
		zap.String("method", string(completed.PaymentMethod)),
	)

	for _, n := range o.notifiers {
		if err := n.Publish(ctx, completed); err != nil {
			o.lg.Warn("Publish completed order",
				zap.String("order_id", completed.ID),
				zap.Error(err),
			)
		}
	}
	return completed, nil
}

func (o *Orchestrator) reset() {
	o.state = StateIdle
	o.orderID = ""
}
