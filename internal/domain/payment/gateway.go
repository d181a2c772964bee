package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Request is one charge sent to the payment gateway.
type Request struct {
	OrderID    string
	Amount     decimal.Decimal
	CustomerID string
	// PromotionID is the applied voucher GUID, empty when none.
	PromotionID string
	OrderDate   time.Time
}

// Receipt is the gateway's acknowledgement of a successful charge.
type Receipt struct {
	OrderID string
	Status  int
	Message string
}

// Gateway charges an order.
type Gateway interface {
	Charge(ctx context.Context, req Request) (*Receipt, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, req Request) (*Receipt, error)

// Charge calls f.
func (f GatewayFunc) Charge(ctx context.Context, req Request) (*Receipt, error) {
	return f(ctx, req)
}

var (
	// ErrMissingConfiguration is matched by every MissingConfigurationError.
	ErrMissingConfiguration = errors.New("payment gateway is not configured")
	// ErrGateway is matched by every GatewayError.
	ErrGateway = errors.New("payment gateway error")
	// ErrTimeout is matched by GatewayErrors caused by a timeout.
	ErrTimeout = errors.New("payment gateway timeout")
)

// MissingConfigurationError lists the gateway settings that are absent.
type MissingConfigurationError struct {
	Fields []string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("payment gateway is not configured: missing %s", strings.Join(e.Fields, ", "))
}

// Is makes errors.Is(err, ErrMissingConfiguration) succeed.
func (e *MissingConfigurationError) Is(target error) bool {
	return target == ErrMissingConfiguration
}

// DefaultGatewayMessage is used when the gateway response carries no message.
const DefaultGatewayMessage = "Payment API call failed"

// GatewayError is a failed charge. Message is safe to show to the cashier.
type GatewayError struct {
	// Status is the HTTP status, 0 when no response was received.
	Status  int
	Message string
	Timeout bool
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("payment gateway: %d: %s", e.Status, e.Message)
	}
	return "payment gateway: " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is matches ErrGateway, and ErrTimeout for timeouts.
func (e *GatewayError) Is(target error) bool {
	switch target {
	case ErrGateway:
		return true
	case ErrTimeout:
		return e.Timeout
	default:
		return false
	}
}
