package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hours-watch/internal/domain/auth"
	"github.com/cmlabs-hris/hours-watch/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		role, ok := claims["role"].(string)
		if role != "admin" || !ok {
			response.Forbidden(w, "Admin privileges required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
