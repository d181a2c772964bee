package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/wire"
)

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	cfg := h.settings.Current()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeSettings(e, cfg)
	})
}

// updateSettings applies a partial update; absent fields keep their value.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := wire.DecodeSettingsPatch(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := h.settings.Update(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeSettings(e, cfg)
	})
}
