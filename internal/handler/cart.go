package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/till"
	"github.com/xenking/pos-till/internal/wire"
)

func writeView(w http.ResponseWriter, v till.View) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeView(e, v)
	})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, s.View())
}

// clearCart empties the cart and cancels a pending checkout. It is also the
// "new order" action after a sale.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, s.Clear())
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decode(h, w, r, wire.DecodeAddItem)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.AddItem(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, v)
}

// updateQuantity sets a line quantity. Zero or less removes the line.
func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decode(h, w, r, wire.DecodeQuantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.UpdateQuantity(r.PathValue("productId"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, v)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, s.RemoveItem(r.PathValue("productId")))
}

func (h *Handler) setCustomer(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decode(h, w, r, wire.DecodeCustomer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, s.SetCustomerID(req.CustomerID))
}

// applyVoucher always answers 200; the outcome is in {success, message}.
func (h *Handler) applyVoucher(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decode(h, w, r, wire.DecodeVoucherRequest)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		res  = s.ApplyVoucherCode
		code = req.Code
	)
	if req.GUID != "" {
		res, code = s.ApplyVoucherGUID, req.GUID
	}
	result, v := res(r.Context(), code)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeApplyResult(e, result, v)
	})
}

func (h *Handler) removeVoucher(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, s.RemoveVoucher())
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decode(h, w, r, wire.DecodeScan)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Scan(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeScanResult(e, res)
	})
}
