package receipt

import (
	"context"
	"io"
	"sync"

	"github.com/go-faster/errors"
)

// ErrPrinterNotReady is returned when printing to a disconnected printer.
var ErrPrinterNotReady = errors.New("printer is not connected")

// Printer outputs rendered receipts.
type Printer interface {
	Print(ctx context.Context, text string) error
}

// Readiness is the capability check of a peripheral.
type Readiness interface {
	IsReady() bool
}

// WriterPrinter writes receipts to an io.Writer, separated by a form feed.
type WriterPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterPrinter creates a WriterPrinter.
func NewWriterPrinter(w io.Writer) *WriterPrinter {
	return &WriterPrinter{w: w}
}

// Print writes text followed by a form feed.
func (p *WriterPrinter) Print(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, text+"\f"); err != nil {
		return errors.Wrap(err, "write receipt")
	}
	return nil
}

type gated struct {
	device  Readiness
	printer Printer
}

// Gated returns a Printer that fails with ErrPrinterNotReady unless device
// reports ready.
func Gated(device Readiness, printer Printer) Printer {
	return &gated{device: device, printer: printer}
}

func (g *gated) Print(ctx context.Context, text string) error {
	if !g.device.IsReady() {
		return ErrPrinterNotReady
	}
	return g.printer.Print(ctx, text)
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(ctx context.Context, text string) error

// Print calls f.
func (f PrinterFunc) Print(ctx context.Context, text string) error {
	return f(ctx, text)
}
