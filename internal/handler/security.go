package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// HeaderAPIKey carries the raw till API key.
const HeaderAPIKey = "X-API-Key"

// secure returns a wrapper that authenticates the request API key and
// requires scope. With no authenticator every request passes.
func (h *Handler) secure(scope string) func(http.HandlerFunc) http.Handler {
	return func(next http.HandlerFunc) http.Handler {
		if h.auth == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := h.auth.Authenticate(r.Context(), r.Header.Get(HeaderAPIKey))
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !key.HasScope(scope) {
				writeError(w, r, errors.Wrapf(errForbidden, "key %s lacks scope %q", key.ID, scope))
				return
			}
			logger(r.Context()).Debug("Authenticated",
				zap.String("key_id", key.ID),
				zap.String("scope", scope),
			)
			next(w, r)
		})
	}
}
