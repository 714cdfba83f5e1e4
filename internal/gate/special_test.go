package gate_test

import (
	"net/http"
	"testing"

	"github.com/timgst1/crawlerprotection/internal/gate"
	"github.com/timgst1/crawlerprotection/internal/policy"
)

var blockedSpecialPages = []string{
	"RecentChangesLinked",
	"WhatLinksHere",
	"MobileDiff",
	"recentchangeslinked",
	"whatlinkshere",
	"mobilediff",
	"MoBiLeDiFf",
	"WhatLinksHere_",
	"__mobilediff",
	"Special:_WhatLinksHere",
	"Special _:_RecentChangesLinked",
	"WhatLinksHere\u00a0",
}

func TestEvaluateSpecialPage_BlocksAnonymous(t *testing.T) {
	for _, name := range blockedSpecialPages {
		t.Run(name, func(t *testing.T) {
			dec := gate.EvaluateSpecialPage(name, anonymous, nil)
			if dec.Allowed {
				t.Fatalf("expected deny, got allow")
			}
			if dec.Status != http.StatusForbidden || dec.Fast {
				t.Fatalf("expected standard 403 deny, got status=%d fast=%v", dec.Status, dec.Fast)
			}
		})
	}
}

func TestEvaluateSpecialPage_AllowsRegistered(t *testing.T) {
	for _, name := range blockedSpecialPages {
		if dec := gate.EvaluateSpecialPage(name, registered, nil); !dec.Allowed {
			t.Errorf("%s: expected allow for registered user, got deny (%s)", name, dec.Reason)
		}
	}
}

func TestEvaluateSpecialPage_UnlistedPageAllowed(t *testing.T) {
	for _, name := range []string{"Search", "RecentChanges", "", "   ", "WhatLinksHereX"} {
		if dec := gate.EvaluateSpecialPage(name, anonymous, nil); !dec.Allowed {
			t.Errorf("%q: expected allow, got deny (%s)", name, dec.Reason)
		}
	}
}

func TestEvaluateSpecialPage_FastReject(t *testing.T) {
	doc := policy.Default()
	doc.SpecialPages = []string{"whatlinkshere"}
	doc.FastReject = true
	p, err := gate.Compile(doc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	dec := gate.EvaluateSpecialPage("WhatLinksHere", anonymous, p)
	if dec.Allowed {
		t.Fatalf("expected deny, got allow")
	}
	if !dec.Fast || dec.Status != http.StatusTeapot {
		t.Fatalf("expected fast 418, got status=%d fast=%v", dec.Status, dec.Fast)
	}

	if dec := gate.EvaluateSpecialPage("Search", anonymous, p); !dec.Allowed {
		t.Fatalf("unlisted page must pass even with fast reject on")
	}
}

func TestEvaluateSpecialPage_PrefixNormalization(t *testing.T) {
	doc := policy.Default()
	doc.SpecialPages = []string{"Special:MobileDiff", "Contributions"}

	p, err := gate.Compile(doc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, name := range []string{"MobileDiff", "Special:MobileDiff", "special:mobilediff", "Contributions", "SPECIAL:Contributions"} {
		if dec := gate.EvaluateSpecialPage(name, anonymous, p); dec.Allowed {
			t.Errorf("strip on, %q: expected deny", name)
		}
	}

	doc.StripSpecialPrefix = boolPtr(false)
	p, _ = gate.Compile(doc)
	if dec := gate.EvaluateSpecialPage("MobileDiff", anonymous, p); dec.Allowed {
		t.Fatalf("strip off: bare name must still match the normalized entry")
	}
	if dec := gate.EvaluateSpecialPage("Special:MobileDiff", anonymous, p); !dec.Allowed {
		t.Fatalf("strip off: prefixed request name must not match")
	}
}

func TestCompile_LinkAnalysisFlags(t *testing.T) {
	doc := policy.Default()
	doc.SpecialPages = []string{}
	p, err := gate.Compile(doc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := p.SpecialPages()
	if len(got) != 2 || got[0] != "recentchangeslinked" || got[1] != "whatlinkshere" {
		t.Fatalf("default-on flags should add link analysis pages, got %v", got)
	}

	doc.SpecialPages = []string{"WhatLinksHere", "MobileDiff"}
	doc.Protect.WhatLinksHere = boolPtr(false)
	doc.Protect.RecentChangesLinked = boolPtr(false)
	p, _ = gate.Compile(doc)
	if dec := gate.EvaluateSpecialPage("WhatLinksHere", anonymous, p); !dec.Allowed {
		t.Fatalf("whatLinksHere=false must remove the page even when listed")
	}
	if dec := gate.EvaluateSpecialPage("RecentChangesLinked", anonymous, p); !dec.Allowed {
		t.Fatalf("recentChangesLinked=false must allow the page")
	}
	if dec := gate.EvaluateSpecialPage("MobileDiff", anonymous, p); dec.Allowed {
		t.Fatalf("MobileDiff still listed, expected deny")
	}
}

func TestCompile_NilDocument(t *testing.T) {
	if _, err := gate.Compile(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestEvaluate_RoutesByRequestKind(t *testing.T) {
	// special page requests ignore the action signals
	dec := gate.Evaluate(gate.AccessRequest{SpecialPage: "Search", Diff: 5}, anonymous, nil)
	if !dec.Allowed {
		t.Fatalf("special page gate should decide for special pages, got deny (%s)", dec.Reason)
	}

	dec = gate.Evaluate(gate.AccessRequest{SpecialPage: "WhatLinksHere", SubPage: "Main_Page"}, anonymous, nil)
	if dec.Allowed || dec.Reason != "special:whatlinkshere" {
		t.Fatalf("expected deny special:whatlinkshere, got %+v", dec)
	}

	dec = gate.Evaluate(gate.AccessRequest{Diff: 5}, anonymous, nil)
	if dec.Allowed {
		t.Fatalf("expected action gate deny for diff")
	}
}
