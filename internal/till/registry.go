package till

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/domain/checkout"
	"github.com/xenking/pos-till/internal/domain/device"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
	"github.com/xenking/pos-till/internal/receipt"
)

// Deps are the collaborators shared by every till.
type Deps struct {
	Products product.Catalog
	Vouchers voucher.Catalog
	Orders   order.Repository
	Gateway  payment.Gateway
	// Printer receives printed receipts of every till.
	Printer  receipt.Printer
	Receipts *receipt.Formatter
	// Money formats amounts in voucher messages.
	Money     cart.AmountFormatter
	Notifiers []order.Notifier
	// EnforceStock rejects cart quantities above product stock.
	EnforceStock bool
	// AllowedTills restricts the till ids; empty accepts any id.
	AllowedTills []string
	// MaxTills caps the number of sessions; zero means DefaultMaxTills.
	MaxTills int
	// ScannerDial and PrinterDial open the peripherals; nil connects
	// immediately.
	ScannerDial device.DialFunc
	PrinterDial device.DialFunc

	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// DefaultMaxTills is the session cap when Deps.MaxTills is zero.
const DefaultMaxTills = 64

var (
	// ErrUnknownTill is returned for till ids outside Deps.AllowedTills.
	ErrUnknownTill = errors.New("unknown till")
	// ErrTooManyTills is returned when a new session would exceed the cap.
	ErrTooManyTills = errors.New("too many tills")
)

// Registry holds one Session per till id, created on first use.
type Registry struct {
	deps    Deps
	allowed map[string]struct{}

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Receipts == nil {
		deps.Receipts = &receipt.Formatter{}
	}
	if deps.MaxTills <= 0 {
		deps.MaxTills = DefaultMaxTills
	}
	r := &Registry{deps: deps, sessions: make(map[string]*Session)}
	if len(deps.AllowedTills) > 0 {
		r.allowed = make(map[string]struct{}, len(deps.AllowedTills))
		for _, id := range deps.AllowedTills {
			r.allowed[id] = struct{}{}
		}
	}
	return r
}

// Get returns the session of tillID, creating it when needed.
func (r *Registry) Get(tillID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[tillID]; ok {
		return s, nil
	}
	if r.allowed != nil {
		if _, ok := r.allowed[tillID]; !ok {
			return nil, errors.Wrapf(ErrUnknownTill, "%q", tillID)
		}
	}
	if len(r.sessions) >= r.deps.MaxTills {
		return nil, errors.Wrapf(ErrTooManyTills, "limit %d", r.deps.MaxTills)
	}
	s, err := r.newSession(tillID)
	if err != nil {
		return nil, errors.Wrapf(err, "create till %q", tillID)
	}
	r.sessions[tillID] = s
	r.deps.Logger.Info("Till session created", zap.String("till_id", tillID))
	return s, nil
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) newSession(tillID string) (*Session, error) {
	d := r.deps
	lg := d.Logger.With(zap.String("till_id", tillID))

	cartOpts := []cart.Option{cart.WithVouchers(d.Vouchers)}
	if d.Money != nil {
		cartOpts = append(cartOpts, cart.WithFormatter(d.Money))
	}
	if d.EnforceStock {
		cartOpts = append(cartOpts, cart.WithStockPolicy(cart.EnforceStock()))
	}
	c := cart.New(cartOpts...)

	checkoutOpts := []checkout.Option{
		checkout.WithLogger(lg),
		checkout.WithNotifiers(d.Notifiers...),
	}
	if d.TracerProvider != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithTracerProvider(d.TracerProvider))
	}
	if d.MeterProvider != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithMeterProvider(d.MeterProvider))
	}
	orch, err := checkout.New(tillID, c, d.Gateway, d.Orders, checkoutOpts...)
	if err != nil {
		return nil, err
	}

	output := d.Printer
	if output == nil {
		output = receipt.PrinterFunc(func(context.Context, string) error { return nil })
	}

	return &Session{
		id:       tillID,
		cart:     c,
		checkout: orch,
		products: d.Products,
		orders:   d.Orders,
		scanner:  device.New(device.KindScanner, d.ScannerDial),
		printer:  device.New(device.KindPrinter, d.PrinterDial),
		output:   output,
		receipts: d.Receipts,
		lg:       lg,
	}, nil
}
