package gate

import "net/http"

// Message keys for the standard deny page.
const (
	TitleKey = "accessdenied-title"
	BodyKey  = "accessdenied-text"
)

// User is the only property of a caller the gates look at.
type User interface {
	IsRegistered() bool
}

// AccessRequest is the read-only view of an inbound page request.
type AccessRequest struct {
	Type   string
	Action string
	Diff   int
	OldID  int

	// SpecialPage is the special page name without its namespace, empty for
	// ordinary titles. SubPage is carried along but never consulted.
	SpecialPage string
	SubPage     string
}

type Decision struct {
	Allowed  bool
	Status   int
	TitleKey string
	BodyKey  string
	Fast     bool
	Reason   string
}

func Allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }

func Deny(reason string) Decision {
	return Decision{Status: http.StatusForbidden, TitleKey: TitleKey, BodyKey: BodyKey, Reason: reason}
}

// DenyFast is the short-circuit rejection. The keys stay set so a caller
// that cannot short-circuit can still render the standard page.
func DenyFast(reason string) Decision {
	return Decision{Status: http.StatusTeapot, TitleKey: TitleKey, BodyKey: BodyKey, Fast: true, Reason: reason}
}

type Evaluator interface {
	Evaluate(req AccessRequest, user User) Decision
}

// Evaluate routes special page requests to the special page gate and every
// other page view to the action gate, mirroring the two wiki hook points.
func Evaluate(req AccessRequest, user User, p *Protection) Decision {
	if req.SpecialPage != "" {
		return EvaluateSpecialPage(req.SpecialPage, user, p)
	}
	return EvaluateAction(req, user, p)
}

func registered(u User) bool {
	return u != nil && u.IsRegistered()
}
