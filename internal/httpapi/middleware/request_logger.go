package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs each request with structured fields. Place it after
// chi's RequestID so the id is available.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"url", r.URL.RequestURI(),
				"status", status,
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			}
			if rid := chimw.GetReqID(r.Context()); rid != "" {
				attrs = append(attrs, "request_id", rid)
			}
			log.InfoContext(r.Context(), "request", attrs...)
		})
	}
}
