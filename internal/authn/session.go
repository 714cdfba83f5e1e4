package authn

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	cookieUserID   = "UserID"
	cookieUserName = "UserName"
	cookieSession  = "_session"
)

// SessionVerifier asks the wiki who the session carried by r belongs to.
type SessionVerifier interface {
	VerifySession(r *http.Request) (name string, registered bool, err error)
}

type SessionOptions struct {
	// TTL bounds how long a verdict is reused. Default 60s.
	TTL time.Duration
	// MaxEntries bounds the verdict cache. Default 10000.
	MaxEntries int
	Logger     *slog.Logger
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// WikiSession recognizes logged-in wiki users. Requests carrying
// <prefix>UserID and <prefix>_session are checked with the wiki once per
// session and TTL; everything else is anonymous without a round trip.
// Without a prefix or a verifier nobody is recognized.
type WikiSession struct {
	prefix   string
	verifier SessionVerifier
	ttl      time.Duration
	max      int
	log      *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]sessionVerdict
}

type sessionVerdict struct {
	name       string
	registered bool
	expires    time.Time
}

func NewWikiSession(prefix string, v SessionVerifier, opts SessionOptions) *WikiSession {
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 10000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &WikiSession{
		prefix:   strings.TrimSpace(prefix),
		verifier: v,
		ttl:      opts.TTL,
		max:      opts.MaxEntries,
		log:      opts.Logger,
		now:      opts.Now,
		cache:    map[string]sessionVerdict{},
	}
}

func (a *WikiSession) Authenticate(r *http.Request) (Subject, error) {
	if a.prefix == "" || a.verifier == nil {
		return Subject{}, ErrUnauthenticated
	}

	var userID, userName, session string
	for _, c := range r.Cookies() {
		switch c.Name {
		case a.prefix + cookieUserID:
			userID = strings.TrimSpace(c.Value)
		case a.prefix + cookieUserName:
			userName = c.Value
		case a.prefix + cookieSession:
			session = strings.TrimSpace(c.Value)
		}
	}
	if id, err := strconv.ParseInt(userID, 10, 64); err != nil || id <= 0 || session == "" {
		return Subject{}, ErrUnauthenticated
	}

	key := sessionKey(session, userID)
	v, ok := a.lookup(key)
	if !ok {
		name, registered, err := a.verifier.VerifySession(r)
		if err != nil {
			a.log.WarnContext(r.Context(), "session verification failed", "err", err)
			return Subject{}, ErrUnauthenticated
		}
		v = sessionVerdict{name: name, registered: registered, expires: a.now().Add(a.ttl)}
		a.store(key, v)
	}
	if !v.registered {
		return Subject{}, ErrUnauthenticated
	}

	name := v.name
	if name == "" {
		name = "user#" + userID
		if un, err := url.QueryUnescape(userName); err == nil && un != "" {
			name = un
		}
	}
	return Subject{Kind: KindSession, Name: name}, nil
}

func (a *WikiSession) lookup(key string) (sessionVerdict, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.cache[key]
	if !ok || !a.now().Before(v.expires) {
		return sessionVerdict{}, false
	}
	return v, true
}

func (a *WikiSession) store(key string, v sessionVerdict) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.cache) >= a.max {
		now := a.now()
		for k, old := range a.cache {
			if !now.Before(old.expires) {
				delete(a.cache, k)
			}
		}
		// still full of live entries: start over rather than grow
		if len(a.cache) >= a.max {
			a.cache = map[string]sessionVerdict{}
		}
	}
	a.cache[key] = v
}

// the raw session id never sits in memory longer than the request
func sessionKey(session, userID string) string {
	sum := sha256.Sum256([]byte(session + "\x00" + userID))
	return hex.EncodeToString(sum[:])
}
