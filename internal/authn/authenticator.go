package authn

import (
	"context"
	"errors"
	"net/http"
)

const (
	KindAnonymous = "anonymous"
	KindBearer    = "bearer"
	KindSession   = "session"
)

type Subject struct {
	Kind string
	Name string
}

// IsRegistered reports whether the subject came from a successful
// authentication rather than the anonymous fallback.
func (s Subject) IsRegistered() bool {
	return s.Kind != "" && s.Kind != KindAnonymous
}

type Authenticator interface {
	Authenticate(r *http.Request) (Subject, error)
}

var ErrUnauthenticated = errors.New("unauthenticated")

type ctxKey int

const subjectKey ctxKey = iota

func WithSubject(ctx context.Context, sub Subject) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

func SubjectFromContext(ctx context.Context) (Subject, bool) {
	v := ctx.Value(subjectKey)
	if v == nil {
		return Subject{}, false
	}
	sub, ok := v.(Subject)
	return sub, ok
}

// Anonymous never fails. It is the fallback identity for visitors without
// a session.
type Anonymous struct{}

func (Anonymous) Authenticate(r *http.Request) (Subject, error) {
	return Subject{Kind: KindAnonymous, Name: "anonymous"}, nil
}

// Chain tries each authenticator in order and returns the first success.
type Chain []Authenticator

func (c Chain) Authenticate(r *http.Request) (Subject, error) {
	for _, a := range c {
		if a == nil {
			continue
		}
		if sub, err := a.Authenticate(r); err == nil {
			return sub, nil
		}
	}
	return Subject{}, ErrUnauthenticated
}
