package gate

import (
	"log/slog"
	"sync"

	"github.com/timgst1/crawlerprotection/internal/policy"
)

type PolicySource interface {
	Current() (*policy.Document, bool)
}

// RuntimeGate recompiles the policy only when the source hands out a new document.
type RuntimeGate struct {
	src PolicySource
	log *slog.Logger

	mu       sync.RWMutex
	lastDoc  *policy.Document
	compiled *Protection
}

func NewRuntimeGate(src PolicySource, log *slog.Logger) *RuntimeGate {
	if log == nil {
		log = slog.Default()
	}
	return &RuntimeGate{src: src, log: log}
}

func (g *RuntimeGate) Evaluate(req AccessRequest, user User) Decision {
	if registered(user) {
		return Allow("registered")
	}
	return Evaluate(req, user, g.Protection())
}

// Protection returns the compiled form of the current document. Without a
// document the defaults apply; a document that fails to compile keeps the
// previous compilation.
func (g *RuntimeGate) Protection() *Protection {
	var doc *policy.Document
	if g.src != nil {
		doc, _ = g.src.Current()
	}
	if doc == nil {
		return DefaultProtection()
	}

	g.mu.RLock()
	if doc == g.lastDoc && g.compiled != nil {
		p := g.compiled
		g.mu.RUnlock()
		return p
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	//double-check
	if doc != g.lastDoc || g.compiled == nil {
		p, err := Compile(doc)
		if err != nil {
			g.log.Error("policy compile failed (keeping previous)", "err", err)
			if g.compiled == nil {
				g.compiled = DefaultProtection()
			}
		} else {
			g.compiled = p
		}
		g.lastDoc = doc
	}

	return g.compiled
}
