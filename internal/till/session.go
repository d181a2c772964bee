// Package till serialises the operations of one point-of-sale terminal:
// cart edits, scanning, checkout, printing and device control.
package till

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/domain/checkout"
	"github.com/xenking/pos-till/internal/domain/device"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/receipt"
)

var (
	// ErrProductNotFound is returned when adding an unknown product.
	ErrProductNotFound = errors.New("product not found")
	// ErrOutOfStock is returned when adding a product with no stock left.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrScannerNotReady is returned for scans while the scanner is
	// disconnected.
	ErrScannerNotReady = errors.New("scanner is not connected")
	// ErrUnknownDevice is returned for device kinds the till does not have.
	ErrUnknownDevice = errors.New("unknown device")
)

// View is the state of a till shown to the cashier.
type View struct {
	TillID         string
	Cart           cart.Snapshot
	Checkout       checkout.State
	PendingOrderID string
}

// DeviceStatus is the connection state of one peripheral.
type DeviceStatus struct {
	Kind  device.Kind
	State device.State
	Ready bool
}

// Session is one till. All methods are safe for concurrent use; they run one
// at a time, including the payment call.
type Session struct {
	id string

	mu       sync.Mutex
	cart     *cart.Cart
	checkout *checkout.Orchestrator

	products product.Catalog
	orders   order.Repository
	scanner  *device.Device
	printer  *device.Device
	output   receipt.Printer
	receipts *receipt.Formatter
	lg       *zap.Logger
}

// ID returns the till id.
func (s *Session) ID() string {
	return s.id
}

// View returns the current cart and checkout state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	return View{
		TillID:         s.id,
		Cart:           s.cart.Snapshot(),
		Checkout:       s.checkout.State(),
		PendingOrderID: s.checkout.PendingOrderID(),
	}
}

// AddItem adds quantity units of the catalog product productID.
func (s *Session) AddItem(ctx context.Context, productID string, quantity int) (View, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return View{}, errors.Wrap(err, "find product")
	}
	if p == nil {
		return View{}, errors.Wrapf(ErrProductNotFound, "%q", productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.add(*p, quantity); err != nil {
		return View{}, err
	}
	return s.view(), nil
}

func (s *Session) add(p product.Product, quantity int) error {
	if !p.InStock() {
		return errors.Wrapf(ErrOutOfStock, "%s", p.Name)
	}
	return s.cart.AddItem(p, quantity)
}

// UpdateQuantity sets the quantity of a cart line; zero or less removes it.
func (s *Session) UpdateQuantity(productID string, quantity int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.UpdateQuantity(productID, quantity); err != nil {
		return View{}, err
	}
	return s.view(), nil
}

// RemoveItem deletes a cart line.
func (s *Session) RemoveItem(productID string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveItem(productID)
	return s.view()
}

// Clear starts a new sale: the cart is emptied and a pending checkout is
// abandoned.
func (s *Session) Clear() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout.State() == checkout.StateAwaitingPayment {
		_ = s.checkout.Cancel()
	}
	s.cart.Clear()
	return s.view()
}

// SetCustomerID sets or, with "", clears the customer id.
func (s *Session) SetCustomerID(id string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetCustomerID(id)
	return s.view()
}

// ApplyVoucherCode applies a voucher typed in by the cashier.
func (s *Session) ApplyVoucherCode(ctx context.Context, code string) (cart.ApplyResult, View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.cart.ApplyVoucherByCode(ctx, code)
	return res, s.view()
}

// ApplyVoucherGUID applies a voucher read from a QR code.
func (s *Session) ApplyVoucherGUID(ctx context.Context, guid string) (cart.ApplyResult, View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.cart.ApplyVoucherByGUID(ctx, guid)
	return res, s.view()
}

// RemoveVoucher clears the applied voucher.
func (s *Session) RemoveVoucher() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveVoucher()
	return s.view()
}

// BeginCheckout moves the till to AwaitingPayment and returns the order id.
func (s *Session) BeginCheckout() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.Begin()
}

// Pay settles and charges the pending order.
func (s *Session) Pay(ctx context.Context, method payment.Method) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.Pay(ctx, method)
}

// CancelCheckout discards the pending order id and keeps the cart.
func (s *Session) CancelCheckout() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkout.Cancel(); err != nil {
		return View{}, err
	}
	return s.view(), nil
}

// Orders returns the completed orders of this till, newest first.
func (s *Session) Orders(ctx context.Context, limit int) ([]order.Order, error) {
	return s.orders.List(ctx, s.id, limit)
}

// Order returns a completed order of this till.
func (s *Session) Order(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.TillID != s.id {
		return nil, order.ErrNotFound
	}
	return o, nil
}

// Receipt renders the receipt of a completed order.
func (s *Session) Receipt(ctx context.Context, orderID string) (string, error) {
	o, err := s.Order(ctx, orderID)
	if err != nil {
		return "", err
	}
	return s.receipts.Format(o), nil
}

// Print sends the receipt of orderID to the printer. The rendered text is
// returned even when printing fails, so it can be shown on screen instead.
func (s *Session) Print(ctx context.Context, orderID string) (string, error) {
	text, err := s.Receipt(ctx, orderID)
	if err != nil {
		return "", err
	}
	if err := receipt.Gated(s.printer, s.output).Print(ctx, text); err != nil {
		return text, err
	}
	s.lg.Info("Receipt printed", zap.String("till_id", s.id), zap.String("order_id", orderID))
	return text, nil
}

// Devices returns the state of the till peripherals.
func (s *Session) Devices() []DeviceStatus {
	out := make([]DeviceStatus, 0, 2)
	for _, d := range []*device.Device{s.scanner, s.printer} {
		state := d.State()
		out = append(out, DeviceStatus{Kind: d.Kind(), State: state, Ready: state == device.StateConnected})
	}
	return out
}

// Connect connects a peripheral.
func (s *Session) Connect(ctx context.Context, kind device.Kind) (DeviceStatus, error) {
	d, err := s.device(kind)
	if err != nil {
		return DeviceStatus{}, err
	}
	if err := d.Connect(ctx); err != nil {
		return DeviceStatus{}, err
	}
	s.lg.Info("Device connected", zap.String("till_id", s.id), zap.String("device", string(kind)))
	return DeviceStatus{Kind: kind, State: d.State(), Ready: d.IsReady()}, nil
}

// Disconnect disconnects a peripheral.
func (s *Session) Disconnect(kind device.Kind) (DeviceStatus, error) {
	d, err := s.device(kind)
	if err != nil {
		return DeviceStatus{}, err
	}
	d.Disconnect()
	return DeviceStatus{Kind: kind, State: d.State(), Ready: d.IsReady()}, nil
}

func (s *Session) device(kind device.Kind) (*device.Device, error) {
	switch kind {
	case device.KindScanner:
		return s.scanner, nil
	case device.KindPrinter:
		return s.printer, nil
	default:
		return nil, errors.Wrapf(ErrUnknownDevice, "%q", kind)
	}
}
