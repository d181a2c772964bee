package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/auth"
	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/domain/checkout"
	"github.com/xenking/pos-till/internal/domain/device"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/settings"
	"github.com/xenking/pos-till/internal/till"
	"github.com/xenking/pos-till/internal/validate"
	"github.com/xenking/pos-till/internal/wire"
)

// requestError is a client error detected by the handler itself.
type requestError struct {
	msg    string
	fields map[string]string
}

func (e *requestError) Error() string { return e.msg }

// errForbidden is returned when a valid key lacks the route scope.
var errForbidden = errors.New("forbidden")

// errorResponse maps err to a status code and a message safe for clients.
func errorResponse(err error) (status int, msg string, fields map[string]string) {
	var (
		reqErr     *requestError
		verrs      validator.ValidationErrors
		gwErr      *payment.GatewayError
		missingErr *payment.MissingConfigurationError
		cashErr    *payment.InsufficientCashError
		stockErr   *cart.InsufficientStockError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.msg, reqErr.fields
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "validation failed", validate.Fields(err)
	case errors.Is(err, wire.ErrBadRequest),
		errors.Is(err, payment.ErrUnknownMethod),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrQuantityLimit):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, settings.ErrInvalid):
		return http.StatusBadRequest, err.Error(), nil

	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", nil
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "forbidden", nil

	case errors.Is(err, till.ErrProductNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "product not found", nil
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "order not found", nil
	case errors.Is(err, till.ErrUnknownDevice):
		return http.StatusNotFound, "unknown device", nil
	case errors.Is(err, till.ErrUnknownTill):
		return http.StatusNotFound, "unknown till", nil
	case errors.Is(err, till.ErrTooManyTills):
		return http.StatusServiceUnavailable, "too many tills", nil

	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoPendingOrder),
		errors.Is(err, device.ErrInvalidTransition),
		errors.Is(err, till.ErrScannerNotReady):
		return http.StatusConflict, rootMessage(err), nil

	case errors.As(err, &stockErr):
		return http.StatusUnprocessableEntity, stockErr.Error(), nil
	case errors.Is(err, till.ErrOutOfStock):
		return http.StatusUnprocessableEntity, till.ErrOutOfStock.Error(), nil
	case errors.As(err, &cashErr):
		return http.StatusUnprocessableEntity, "insufficient cash: " + cashErr.Error(), nil

	case errors.As(err, &missingErr):
		fields := make(map[string]string, len(missingErr.Fields))
		for _, f := range missingErr.Fields {
			fields[f] = f + " is required"
		}
		return http.StatusFailedDependency, missingErr.Error(), fields
	case errors.As(err, &gwErr):
		if gwErr.Timeout {
			return http.StatusGatewayTimeout, gwErr.Message, nil
		}
		return http.StatusBadGateway, gwErr.Message, nil
	}
	return http.StatusInternalServerError, "internal server error", nil
}

// rootMessage is the message of the sentinel at the bottom of err.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, fields := errorResponse(err)
	lg := logger(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		wire.EncodeError(e, msg, fields)
	})
}
