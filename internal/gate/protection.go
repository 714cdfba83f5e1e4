package gate

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/timgst1/crawlerprotection/internal/policy"
)

const (
	whatLinksHere       = "whatlinkshere"
	recentChangesLinked = "recentchangeslinked"
)

// Protection is the compiled, immutable form of a policy document.
type Protection struct {
	ProtectHistory             bool
	ProtectDiff                bool
	ProtectRevision            bool
	ProtectWhatLinksHere       bool
	ProtectRecentChangesLinked bool

	FastReject  bool
	StripPrefix bool

	// normalized names
	specialPages map[string]struct{}
}

func Compile(doc *policy.Document) (*Protection, error) {
	if doc == nil {
		return nil, errors.New("policy document is nil")
	}

	p := &Protection{
		ProtectHistory:             policy.Enabled(doc.Protect.History),
		ProtectDiff:                policy.Enabled(doc.Protect.Diff),
		ProtectRevision:            policy.Enabled(doc.Protect.Revision),
		ProtectWhatLinksHere:       policy.Enabled(doc.Protect.WhatLinksHere),
		ProtectRecentChangesLinked: policy.Enabled(doc.Protect.RecentChangesLinked),
		FastReject:                 doc.FastReject,
		StripPrefix:                policy.Enabled(doc.StripSpecialPrefix),
		specialPages:               map[string]struct{}{},
	}

	for _, name := range doc.SpecialPages {
		// config entries always lose the prefix so "Special:X" and "X" agree
		n := policy.NormalizePageName(name, true)
		if n == "" {
			return nil, fmt.Errorf("policy: empty special page entry %q", name)
		}
		p.specialPages[n] = struct{}{}
	}

	toggle := func(name string, on bool) {
		if on {
			p.specialPages[name] = struct{}{}
		} else {
			delete(p.specialPages, name)
		}
	}
	toggle(whatLinksHere, p.ProtectWhatLinksHere)
	toggle(recentChangesLinked, p.ProtectRecentChangesLinked)

	return p, nil
}

var defaultProtection = sync.OnceValue(func() *Protection {
	p, err := Compile(policy.Default())
	if err != nil {
		panic("gate: default policy does not compile: " + err.Error())
	}
	return p
})

// DefaultProtection is the compiled built-in policy. Callers must not modify it.
func DefaultProtection() *Protection {
	return defaultProtection()
}

// IsProtectedSpecialPage applies the request-side normalization and looks the
// name up in the deny list.
func (p *Protection) IsProtectedSpecialPage(name string) bool {
	n := policy.NormalizePageName(name, p.StripPrefix)
	if n == "" {
		return false
	}
	_, ok := p.specialPages[n]
	return ok
}

// SpecialPages lists the normalized deny list in sorted order.
func (p *Protection) SpecialPages() []string {
	out := make([]string, 0, len(p.specialPages))
	for n := range p.specialPages {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
