package gate

import "github.com/timgst1/crawlerprotection/internal/policy"

// EvaluateSpecialPage gates special pages on the configured deny list.
func EvaluateSpecialPage(name string, user User, p *Protection) Decision {
	if registered(user) {
		return Allow("registered")
	}
	if p == nil {
		p = DefaultProtection()
	}

	if !p.IsProtectedSpecialPage(name) {
		return Allow("special page not protected")
	}

	reason := "special:" + policy.NormalizePageName(name, p.StripPrefix)
	if p.FastReject {
		return DenyFast(reason)
	}
	return Deny(reason)
}
