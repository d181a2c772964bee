package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/domain/device"
	"github.com/xenking/pos-till/internal/till"
	"github.com/xenking/pos-till/internal/wire"
)

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	devices := s.Devices()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeDevices(e, devices)
	})
}

func (h *Handler) connectDevice(w http.ResponseWriter, r *http.Request) {
	h.deviceAction(w, r, func(s *till.Session, kind device.Kind) (till.DeviceStatus, error) {
		return s.Connect(r.Context(), kind)
	})
}

func (h *Handler) disconnectDevice(w http.ResponseWriter, r *http.Request) {
	h.deviceAction(w, r, func(s *till.Session, kind device.Kind) (till.DeviceStatus, error) {
		return s.Disconnect(kind)
	})
}

func (h *Handler) deviceAction(w http.ResponseWriter, r *http.Request, fn func(*till.Session, device.Kind) (till.DeviceStatus, error)) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := fn(s, device.Kind(r.PathValue("device")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeDevice(e, status)
	})
}
