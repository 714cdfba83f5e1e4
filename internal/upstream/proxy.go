// Package upstream forwards allowed requests to the wiki.
package upstream

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// New returns a reverse proxy to target. The inbound Host header is kept so
// the wiki builds its links for the public name.
func New(target string, log *slog.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("upstream: %q must be an absolute http(s) URL", target)
	}
	if log == nil {
		log = slog.Default()
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.ErrorContext(r.Context(), "upstream request failed", "err", err, "url", r.URL.RequestURI())
			http.Error(w, "bad gateway", http.StatusBadGateway)
		},
	}, nil
}

// Unavailable answers every request with 502. Used when no upstream is configured.
func Unavailable() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream not configured", http.StatusBadGateway)
	})
}
