package authn

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strings"
)

type Bearer struct {
	tokenToSubject map[string]string
}

// NewBearerFromFile reads either a single token (subject "admin") or
// "subject=token" / "subject:token" lines. Blank lines and # comments are skipped.
func NewBearerFromFile(path string) (*Bearer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return nil, errors.New("bearer token file is empty")
	}

	m := parseTokenFile(raw)
	if len(m) == 0 {
		return nil, errors.New("no tokens found in token file")
	}

	return &Bearer{tokenToSubject: m}, nil
}

func (a *Bearer) Authenticate(r *http.Request) (Subject, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return Subject{}, ErrUnauthenticated
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return Subject{}, ErrUnauthenticated
	}

	got := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if got == "" {
		return Subject{}, ErrUnauthenticated
	}

	// compare against every token so timing does not leak which one matched
	var name string
	for tok, subName := range a.tokenToSubject {
		if subtle.ConstantTimeCompare([]byte(got), []byte(tok)) == 1 {
			name = subName
		}
	}
	if name == "" {
		return Subject{}, ErrUnauthenticated
	}

	return Subject{Kind: KindBearer, Name: name}, nil
}

func parseTokenFile(raw string) map[string]string {
	out := map[string]string{}

	lines := strings.Split(raw, "\n")
	if len(lines) == 1 && !strings.Contains(lines[0], "=") && !strings.Contains(lines[0], ":") {
		out[strings.TrimSpace(lines[0])] = "admin"
		return out
	}

	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}

		subject, token, ok := strings.Cut(ln, "=")
		if !ok {
			subject, token, ok = strings.Cut(ln, ":")
		}
		if !ok {
			continue
		}
		subject, token = strings.TrimSpace(subject), strings.TrimSpace(token)
		if subject == "" || token == "" {
			continue
		}

		out[token] = subject
	}

	return out
}
