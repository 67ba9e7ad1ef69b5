package apikey

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// RequireForWrites rejects non-read requests that do not carry a valid key.
// GET, HEAD and OPTIONS pass through untouched, as does everything when the
// keyring is empty.
func RequireForWrites(keys *Keyring) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !keys.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if err := keys.Validate(extractKey(r)); err != nil {
				logger.FromContext(r.Context()).Warn("rejected admin request",
					"method", r.Method,
					"path", r.URL.Path,
					"reason", err.Error(),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="docsearch"`)
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractKey reads Authorization: Bearer first, then X-API-Key.
func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}
