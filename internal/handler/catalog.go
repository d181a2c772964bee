package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/wire"
)

// listProducts returns the catalog, narrowed by ?q= and ?category=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	filter := product.Filter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	products = filter.Apply(products)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeProducts(e, products)
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.FindByID(r.Context(), r.PathValue("id"))
	h.writeProduct(w, r, p, err)
}

func (h *Handler) getProductByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.FindByBarcode(r.Context(), r.PathValue("code"))
	h.writeProduct(w, r, p, err)
}

func (h *Handler) writeProduct(w http.ResponseWriter, r *http.Request, p *product.Product, err error) {
	if err != nil {
		writeError(w, r, errors.Wrap(err, "find product"))
		return
	}
	if p == nil {
		writeError(w, r, product.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeProduct(e, p)
	})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeStrings(e, product.Categories(products))
	})
}
