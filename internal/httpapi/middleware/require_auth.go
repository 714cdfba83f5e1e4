package middleware

import (
	"net/http"

	"github.com/timgst1/crawlerprotection/internal/authn"
)

// RequireAuth rejects requests the authenticator does not accept with 401.
// Used for the operator API.
func RequireAuth(a authn.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				http.Error(w, "authenticator not configured", http.StatusInternalServerError)
				return
			}
			sub, err := a.Authenticate(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			r = r.WithContext(authn.WithSubject(r.Context(), sub))
			next.ServeHTTP(w, r)
		})
	}
}

// Identify stores the caller's subject in the context without ever rejecting.
// Callers the authenticator does not recognize become anonymous.
func Identify(a authn.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				sub authn.Subject
				err error = authn.ErrUnauthenticated
			)
			if a != nil {
				sub, err = a.Authenticate(r)
			}
			if err != nil {
				sub, _ = authn.Anonymous{}.Authenticate(r)
			}

			next.ServeHTTP(w, r.WithContext(authn.WithSubject(r.Context(), sub)))
		})
	}
}
