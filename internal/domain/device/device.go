package device

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrInvalidTransition is returned when a transition is not allowed from the
// current state.
var ErrInvalidTransition = errors.New("invalid device state transition")

// Kind names a till peripheral.
type Kind string

const (
	KindScanner Kind = "scanner"
	KindPrinter Kind = "printer"
)

// Valid reports whether k is a known peripheral.
func (k Kind) Valid() bool {
	return k == KindScanner || k == KindPrinter
}

// State of a peripheral connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// DialFunc opens the connection to the physical device.
type DialFunc func(ctx context.Context) error

// Device is the connection state machine of one peripheral:
// Disconnected → Connecting → Connected, and back to Disconnected from any
// state. Safe for concurrent use.
type Device struct {
	kind Kind
	dial DialFunc

	mu    sync.Mutex
	state State
}

// New creates a disconnected device. A nil dial connects immediately.
func New(kind Kind, dial DialFunc) *Device {
	if dial == nil {
		dial = func(context.Context) error { return nil }
	}
	return &Device{kind: kind, dial: dial, state: StateDisconnected}
}

// Kind returns the peripheral kind.
func (d *Device) Kind() Kind {
	return d.kind
}

// State returns the current state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsReady reports whether the device is connected.
func (d *Device) IsReady() bool {
	return d.State() == StateConnected
}

// Connect dials the device. Connecting an already connected device is a
// no-op; connecting while another Connect is in flight fails with
// ErrInvalidTransition. A dial error returns the device to Disconnected.
func (d *Device) Connect(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case StateConnected:
		d.mu.Unlock()
		return nil
	case StateConnecting:
		d.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "%s is already connecting", d.kind)
	}
	d.state = StateConnecting
	d.mu.Unlock()

	err := d.dial(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateConnecting {
		// Disconnected while dialing.
		return errors.Wrapf(ErrInvalidTransition, "%s was disconnected while connecting", d.kind)
	}
	if err != nil {
		d.state = StateDisconnected
		return errors.Wrapf(err, "connect %s", d.kind)
	}
	d.state = StateConnected
	return nil
}

// Disconnect moves the device to Disconnected from any state.
func (d *Device) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateDisconnected
}
