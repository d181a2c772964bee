package payment

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind is the wire tag of a payment method.
type Kind string

const (
	KindCash    Kind = "cash"
	KindCard    Kind = "card"
	KindDigital Kind = "digital"
)

// Valid reports whether k is a known payment method tag.
func (k Kind) Valid() bool {
	switch k {
	case KindCash, KindCard, KindDigital:
		return true
	default:
		return false
	}
}

// Method is the closed set of ways a sale can be paid: Cash, Card or Digital.
type Method interface {
	Kind() Kind
	method()
}

// Cash is paid with notes handed to the cashier.
type Cash struct {
	Received decimal.Decimal
}

// Card is paid by bank card.
type Card struct{}

// Digital is paid through a wallet or bank transfer QR.
type Digital struct{}

func (Cash) Kind() Kind    { return KindCash }
func (Card) Kind() Kind    { return KindCard }
func (Digital) Kind() Kind { return KindDigital }

func (Cash) method()    {}
func (Card) method()    {}
func (Digital) method() {}

// ErrUnknownMethod is returned by ParseMethod for unrecognised tags.
var ErrUnknownMethod = errors.New("unknown payment method")

// ParseMethod builds a Method from its wire tag. received is only used for
// cash.
func ParseMethod(tag string, received decimal.Decimal) (Method, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(tag))) {
	case KindCash:
		return Cash{Received: received}, nil
	case KindCard:
		return Card{}, nil
	case KindDigital:
		return Digital{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownMethod, "%q", tag)
	}
}

// ErrInsufficientCash is matched by every InsufficientCashError.
var ErrInsufficientCash = errors.New("insufficient cash received")

// InsufficientCashError reports cash tendered below the amount due.
type InsufficientCashError struct {
	Received decimal.Decimal
	Amount   decimal.Decimal
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("received %s, amount due %s", e.Received, e.Amount)
}

// Is makes errors.Is(err, ErrInsufficientCash) succeed.
func (e *InsufficientCashError) Is(target error) bool {
	return target == ErrInsufficientCash
}

// Details is the settled payment of a sale.
type Details struct {
	Method Kind
	Amount decimal.Decimal
	// Change is only set for cash.
	Change decimal.NullDecimal
}

// Settle computes the payment details of m for amount. Cash must cover the
// amount; change is never negative.
func Settle(m Method, amount decimal.Decimal) (Details, error) {
	switch m := m.(type) {
	case Cash:
		if m.Received.LessThan(amount) {
			return Details{}, &InsufficientCashError{Received: m.Received, Amount: amount}
		}
		change := decimal.Max(decimal.Zero, m.Received.Sub(amount))
		return Details{
			Method: KindCash,
			Amount: amount,
			Change: decimal.NewNullDecimal(change),
		}, nil
	case Card:
		return Details{Method: KindCard, Amount: amount}, nil
	case Digital:
		return Details{Method: KindDigital, Amount: amount}, nil
	case nil:
		return Details{}, errors.Wrap(ErrUnknownMethod, "no payment method")
	default:
		return Details{}, errors.Wrapf(ErrUnknownMethod, "%T", m)
	}
}
