package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/timgst1/crawlerprotection/internal/authn"
	"github.com/timgst1/crawlerprotection/internal/gate"
	"github.com/timgst1/crawlerprotection/internal/service"
	"github.com/timgst1/crawlerprotection/internal/wiki"
)

// DenyResponder renders denied requests. Exactly one method is called per
// denied request.
type DenyResponder interface {
	DenyAccess(w http.ResponseWriter, r *http.Request)
	DenyFast(w http.ResponseWriter)
}

type GateOptions struct {
	Gate      gate.Evaluator
	Layout    wiki.Layout
	Responder DenyResponder
	// Denials is optional.
	Denials service.DenialLog
	Logger  *slog.Logger
}

// CrawlerGate evaluates every request against the gates. Allowed requests
// reach next untouched; denied ones never do. The deny response is written
// before the denial is logged and recorded, so pair a slow store with
// service.AsyncDenialLog.
func CrawlerGate(opts GateOptions) func(http.Handler) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := authn.SubjectFromContext(r.Context())
			if !ok {
				sub, _ = authn.Anonymous{}.Authenticate(r)
			}
			// registered users pass every gate; their bodies are not buffered
			if sub.IsRegistered() {
				next.ServeHTTP(w, r)
				return
			}

			req, err := wiki.ParseRequest(r, opts.Layout)
			if err != nil {
				// an unreadable form could hide the title or action the wiki will act on
				status := http.StatusBadRequest
				if errors.Is(err, wiki.ErrBodyTooLarge) {
					status = http.StatusRequestEntityTooLarge
				}
				log.InfoContext(r.Context(), "request body not inspectable", "err", err, "status", status, "path", r.URL.RequestURI())
				http.Error(w, http.StatusText(status), status)
				return
			}

			dec := opts.Gate.Evaluate(req, sub)
			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if dec.Fast {
				opts.Responder.DenyFast(w)
			} else {
				opts.Responder.DenyAccess(w, r)
			}

			gateName := "action"
			if req.SpecialPage != "" {
				gateName = "special-page"
			}
			log.InfoContext(r.Context(), "request denied",
				"gate", gateName,
				"reason", dec.Reason,
				"status", dec.Status,
				"path", r.URL.RequestURI(),
			)

			if opts.Denials != nil {
				err := opts.Denials.Record(r.Context(), service.Denial{
					Gate:       gateName,
					Reason:     dec.Reason,
					Status:     dec.Status,
					Path:       r.URL.RequestURI(),
					RemoteAddr: r.RemoteAddr,
					UserAgent:  r.UserAgent(),
				})
				if err != nil {
					log.ErrorContext(r.Context(), "record denial failed", "err", err)
				}
			}
		})
	}
}
