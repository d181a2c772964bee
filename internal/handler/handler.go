// Package handler serves the till HTTP API.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/auth"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/settings"
	"github.com/xenking/pos-till/internal/till"
	"github.com/xenking/pos-till/internal/validate"
)

const (
	// DefaultMaxBodyBytes bounds request bodies.
	DefaultMaxBodyBytes = 64 << 10
	// DefaultOrderLimit is the page size of the order history.
	DefaultOrderLimit = 50
	maxOrderLimit     = 500
)

// SettingsService reads and updates the gateway configuration.
type SettingsService interface {
	Current() settings.Config
	Update(ctx context.Context, p settings.Patch) (settings.Config, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	MaxBodyBytes int64
	OrderLimit   int
}

// Handler serves the till API. Tills are addressed by the {till} path
// segment and created on first use.
type Handler struct {
	tills    *till.Registry
	products product.Catalog
	settings SettingsService
	auth     *auth.Authenticator

	maxBody    int64
	orderLimit int
}

// New constructs a Handler. A nil authenticator disables API key checks.
func New(cfg Config, tills *till.Registry, products product.Catalog, s SettingsService, authn *auth.Authenticator) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.OrderLimit <= 0 {
		cfg.OrderLimit = DefaultOrderLimit
	}
	return &Handler{
		tills:      tills,
		products:   products,
		settings:   s,
		auth:       authn,
		maxBody:    cfg.MaxBodyBytes,
		orderLimit: min(cfg.OrderLimit, maxOrderLimit),
	}
}

// Register adds the API routes to mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	tillScope := h.secure(auth.ScopeTill)
	adminScope := h.secure(auth.ScopeAdmin)

	mux.Handle("GET /api/products", tillScope(h.listProducts))
	mux.Handle("GET /api/products/{id}", tillScope(h.getProduct))
	mux.Handle("GET /api/products/barcode/{code}", tillScope(h.getProductByBarcode))
	mux.Handle("GET /api/categories", tillScope(h.listCategories))

	mux.Handle("GET /api/tills/{till}/cart", tillScope(h.getCart))
	mux.Handle("DELETE /api/tills/{till}/cart", tillScope(h.clearCart))
	mux.Handle("POST /api/tills/{till}/cart/items", tillScope(h.addItem))
	mux.Handle("PUT /api/tills/{till}/cart/items/{productId}", tillScope(h.updateQuantity))
	mux.Handle("DELETE /api/tills/{till}/cart/items/{productId}", tillScope(h.removeItem))
	mux.Handle("PUT /api/tills/{till}/cart/customer", tillScope(h.setCustomer))
	mux.Handle("POST /api/tills/{till}/cart/voucher", tillScope(h.applyVoucher))
	mux.Handle("DELETE /api/tills/{till}/cart/voucher", tillScope(h.removeVoucher))
	mux.Handle("POST /api/tills/{till}/scan", tillScope(h.scan))

	mux.Handle("POST /api/tills/{till}/checkout", tillScope(h.beginCheckout))
	mux.Handle("POST /api/tills/{till}/checkout/payment", tillScope(h.pay))
	mux.Handle("DELETE /api/tills/{till}/checkout", tillScope(h.cancelCheckout))

	mux.Handle("GET /api/tills/{till}/orders", tillScope(h.listOrders))
	mux.Handle("GET /api/tills/{till}/orders/{id}/receipt", tillScope(h.getReceipt))
	mux.Handle("POST /api/tills/{till}/orders/{id}/print", tillScope(h.printReceipt))

	mux.Handle("GET /api/tills/{till}/devices", tillScope(h.listDevices))
	mux.Handle("POST /api/tills/{till}/devices/{device}/connect", tillScope(h.connectDevice))
	mux.Handle("POST /api/tills/{till}/devices/{device}/disconnect", tillScope(h.disconnectDevice))

	mux.Handle("GET /api/settings/gateway", adminScope(h.getSettings))
	mux.Handle("PUT /api/settings/gateway", adminScope(h.updateSettings))
}

// session resolves the {till} path segment.
func (h *Handler) session(r *http.Request) (*till.Session, error) {
	id := r.PathValue("till")
	if err := validate.Validator().Var(id, "required,max=64,printascii"); err != nil {
		return nil, &requestError{msg: "invalid till id", fields: map[string]string{"till": "till must be 1-64 printable characters"}}
	}
	return h.tills.Get(id)
}

// readBody reads at most maxBody bytes of the request body.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{msg: "request body too large"}
		}
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

// decode reads the body with fn and validates the result.
func decode[T any](h *Handler, w http.ResponseWriter, r *http.Request, fn func([]byte) (T, error)) (T, error) {
	var zero T
	data, err := h.readBody(w, r)
	if err != nil {
		return zero, err
	}
	v, err := fn(data)
	if err != nil {
		return zero, err
	}
	if err := validate.Struct(v); err != nil {
		return zero, err
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func logger(ctx context.Context) *zap.Logger {
	return zctx.From(ctx)
}
