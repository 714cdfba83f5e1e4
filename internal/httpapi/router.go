package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/timgst1/crawlerprotection/internal/authn"
	"github.com/timgst1/crawlerprotection/internal/gate"
	"github.com/timgst1/crawlerprotection/internal/httpapi/handlers"
	"github.com/timgst1/crawlerprotection/internal/httpapi/middleware"
	"github.com/timgst1/crawlerprotection/internal/service"
	"github.com/timgst1/crawlerprotection/internal/upstream"
	"github.com/timgst1/crawlerprotection/internal/wiki"
)

type Deps struct {
	Gate   gate.Evaluator
	Layout wiki.Layout

	// Identity decides who counts as registered. Nil treats everybody as anonymous.
	Identity authn.Authenticator
	// Admin guards /v1/denials. Nil disables the operator API.
	Admin   authn.Authenticator
	Denials service.DenialLog

	Deny     handlers.DenyRenderer
	Upstream http.Handler

	// Ready reports readiness for /readyz. Nil means always ready.
	Ready  func() bool
	Logger *slog.Logger
}

func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil && !deps.Ready() {
			http.Error(w, "policy not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})

	if deps.Admin != nil && deps.Denials != nil {
		dh := handlers.DenialHandler{Denials: deps.Denials}
		r.Route("/v1/denials", func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Admin))
			r.Get("/", dh.ListDenials)
			r.Get("/stats", dh.DenialStats)
		})
	}

	up := deps.Upstream
	if up == nil {
		up = upstream.Unavailable()
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identify(deps.Identity))
		r.Use(middleware.CrawlerGate(middleware.GateOptions{
			Gate:      deps.Gate,
			Layout:    deps.Layout,
			Responder: deps.Deny,
			Denials:   deps.Denials,
			Logger:    log,
		}))
		r.Handle("/*", up)
	})

	return r
}
