package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/timgst1/crawlerprotection/internal/authn"
	"github.com/timgst1/crawlerprotection/internal/gate"
	"github.com/timgst1/crawlerprotection/internal/httpapi"
	"github.com/timgst1/crawlerprotection/internal/httpapi/handlers"
	"github.com/timgst1/crawlerprotection/internal/messages"
	"github.com/timgst1/crawlerprotection/internal/policy"
	"github.com/timgst1/crawlerprotection/internal/service"
	"github.com/timgst1/crawlerprotection/internal/storage/sqlite"
	"github.com/timgst1/crawlerprotection/internal/upstream"
	"github.com/timgst1/crawlerprotection/internal/wiki"
)

type App struct {
	Handler http.Handler
	Gate    *gate.RuntimeGate
	Denials service.DenialLog

	closers []func() error
}

// Build wires the service from cfg. The policy watcher runs until ctx is done.
func Build(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{}

	src, ready, err := buildPolicySource(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.Gate = gate.NewRuntimeGate(src, log)

	var verifier authn.SessionVerifier
	if cfg.UPSTREAM_URL != "" {
		v, err := upstream.NewUserInfo(cfg.UPSTREAM_URL, cfg.API_PATH, nil)
		if err != nil {
			return nil, err
		}
		verifier = v
	}
	if cfg.COOKIE_PREFIX == "" || verifier == nil {
		log.Warn("COOKIE_PREFIX or UPSTREAM_URL not set, wiki logins are not recognized")
	}
	identity := authn.Chain{authn.NewWikiSession(cfg.COOKIE_PREFIX, verifier, authn.SessionOptions{
		TTL:    cfg.SessionCacheTTL(),
		Logger: log,
	})}
	if cfg.BOT_TOKEN_FILE != "" {
		bots, err := authn.NewBearerFromFile(cfg.BOT_TOKEN_FILE)
		if err != nil {
			return nil, fmt.Errorf("load BOT_TOKEN_FILE: %w", err)
		}
		identity = append(identity, bots)
	}

	var admin authn.Authenticator
	if cfg.ADMIN_TOKEN_FILE != "" {
		b, err := authn.NewBearerFromFile(cfg.ADMIN_TOKEN_FILE)
		if err != nil {
			return nil, fmt.Errorf("load ADMIN_TOKEN_FILE: %w", err)
		}
		admin = b
	} else {
		log.Warn("ADMIN_TOKEN_FILE not set, /v1/denials disabled")
	}

	switch cfg.DENIAL_STORE {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLITE_PATH)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := sqlite.Migrate(db); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		// rejections must not wait for the disk
		async := service.NewAsyncDenialLog(service.NewSQLiteDenialLog(db), 0, log)
		a.closers = append(a.closers, async.Close)
		a.Denials = async
	default:
		a.Denials = service.NewMemoryDenialLog(0)
	}

	cat, err := messages.Load()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var up http.Handler
	if cfg.UPSTREAM_URL != "" {
		p, err := upstream.New(cfg.UPSTREAM_URL, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		up = p
	} else {
		log.Warn("UPSTREAM_URL not set, allowed requests get 502")
	}

	a.Handler = httpapi.NewRouter(httpapi.Deps{
		Gate: a.Gate,
		Layout: wiki.Layout{
			ScriptPath:        cfg.SCRIPT_PATH,
			ArticlePath:       cfg.ARTICLE_PATH,
			SpecialNamespaces: cfg.SpecialNamespaces(),
		},
		Identity: identity,
		Admin:    admin,
		Denials:  a.Denials,
		Deny:     handlers.DenyRenderer{Messages: cat, Log: log},
		Upstream: up,
		Ready:    ready,
		Logger:   log,
	})

	return a, nil
}

// buildPolicySource picks the watched file or the built-in defaults. With
// READINESS_STRICT a broken initial file fails startup; otherwise the
// defaults apply until the file becomes valid.
func buildPolicySource(ctx context.Context, cfg Config, log *slog.Logger) (gate.PolicySource, func() bool, error) {
	if cfg.POLICY_FILE == "" {
		log.Info("POLICY_FILE not set, using built-in protection defaults")
		return policy.NewStatic(policy.Default()), nil, nil
	}

	m := policy.NewManager(cfg.POLICY_FILE, policy.Options{Logger: log})
	ready := func() bool {
		_, ok := m.Current()
		return ok
	}

	if err := m.Start(ctx); err != nil {
		if cfg.ReadinessStrict() {
			return nil, nil, fmt.Errorf("load POLICY_FILE: %w", err)
		}
		log.Error("policy load failed, using built-in defaults", "err", err, "file", cfg.POLICY_FILE)
		return m, nil, nil
	}
	if !cfg.ReadinessStrict() {
		ready = nil
	}
	return m, ready, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func BuildServer(cfg Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP_ADDR,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// proxied history pages of large articles can take a while
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
