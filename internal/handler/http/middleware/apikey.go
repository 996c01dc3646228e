package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hours-watch/internal/handler/http/response"
)

// APISecretRequired guards machine-to-machine endpoints with "Authorization: Bearer <secret>".
func APISecretRequired(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				response.InternalServerError(w, "API secret not configured on server")
				return
			}

			header := r.Header.Get("Authorization")
			given, found := strings.CutPrefix(header, "Bearer ")
			if !found || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
				response.Unauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
