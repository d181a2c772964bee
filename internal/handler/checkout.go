package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/wire"
)

func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orderID, err := s.BeginCheckout()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Str(orderID)
		e.ObjEnd()
	})
}

// pay answers with the completed order and the reset cart.
func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decode(h, w, r, wire.DecodePayment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	method, err := payment.ParseMethod(req.Method, req.CashReceived)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := s.Pay(r.Context(), method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := s.View()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order")
		wire.EncodeOrder(e, o)
		e.FieldStart("cart")
		wire.EncodeView(e, v)
		e.ObjEnd()
	})
}

func (h *Handler) cancelCheckout(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.CancelCheckout()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, v)
}

// listOrders returns the till's order history, newest first, at most ?limit=.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := h.orderLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxOrderLimit {
			writeError(w, r, &requestError{
				msg:    "invalid limit",
				fields: map[string]string{"limit": "limit must be between 1 and " + strconv.Itoa(maxOrderLimit)},
			})
			return
		}
		limit = n
	}
	orders, err := s.Orders(r.Context(), limit)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeOrders(e, orders)
	})
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orderID := r.PathValue("id")
	text, err := s.Receipt(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeReceipt(e, orderID, text, nil)
	})
}

// printReceipt prints the receipt. When printing fails the text is still
// returned with printed=false so the till can show it on screen.
func (h *Handler) printReceipt(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orderID := r.PathValue("id")
	text, err := s.Print(r.Context(), orderID)
	if err != nil && text == "" {
		writeError(w, r, err)
		return
	}
	if err != nil {
		logger(r.Context()).Warn("Print failed, returning virtual receipt",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeReceipt(e, orderID, text, &err)
	})
}

// encodeReceipt writes {orderId, receipt} and, for print results, printed
// and message. printErr is nil for plain receipt reads.
func encodeReceipt(e *jx.Encoder, orderID, text string, printErr *error) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(orderID)
	e.FieldStart("receipt")
	e.Str(text)
	if printErr != nil {
		e.FieldStart("printed")
		e.Bool(*printErr == nil)
		if *printErr != nil {
			e.FieldStart("message")
			e.Str(rootMessage(*printErr))
		}
	}
	e.ObjEnd()
}
