package gate

// EvaluateAction gates page views that expose stored revisions: ?type=revision,
// ?action=history, ?diff=N and ?oldid=N. Registered users always pass. A nil
// Protection means the built-in defaults.
func EvaluateAction(req AccessRequest, user User, p *Protection) Decision {
	if registered(user) {
		return Allow("registered")
	}
	if p == nil {
		p = DefaultProtection()
	}

	switch {
	case p.ProtectRevision && req.Type == "revision":
		return Deny("type=revision")
	case p.ProtectHistory && req.Action == "history":
		return Deny("action=history")
	case p.ProtectDiff && req.Diff > 0:
		return Deny("diff")
	case p.ProtectRevision && req.OldID > 0:
		return Deny("oldid")
	}

	return Allow("no protected signal")
}
