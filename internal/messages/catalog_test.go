package messages_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"golang.org/x/text/language"

	"github.com/timgst1/crawlerprotection/internal/messages"
)

func TestLoad_BundledCatalogs(t *testing.T) {
	c, err := messages.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Languages(); len(got) < 2 || got[0] != language.English {
		t.Fatalf("expected english first among several languages, got %v", got)
	}

	for _, key := range []string{"accessdenied-title", "accessdenied-text"} {
		for _, tag := range c.Languages() {
			s, _ := c.Lookup(tag.String(), key)
			if s == "" || strings.HasPrefix(s, "⧼") {
				t.Errorf("%s: missing %s", tag, key)
			}
		}
	}
}

func TestLookup_Negotiation(t *testing.T) {
	c, err := messages.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cases := []struct {
		header    string
		wantTitle string
		wantTag   language.Tag
	}{
		{"", "Access denied", language.English},
		{"de-DE,de;q=0.9,en;q=0.5", "Zugriff verweigert", language.German},
		{"fr-CH, fr;q=0.9", "Accès refusé", language.French},
		{"ja", "Access denied", language.English},
		{"not a header;;", "Access denied", language.English},
	}
	for _, tc := range cases {
		got, tag := c.Lookup(tc.header, "accessdenied-title")
		if got != tc.wantTitle {
			t.Errorf("Accept-Language %q: got %q, want %q", tc.header, got, tc.wantTitle)
		}
		if tag != tc.wantTag {
			t.Errorf("Accept-Language %q: got tag %s, want %s", tc.header, tag, tc.wantTag)
		}
	}
}

func TestLookup_FallsBackPerKey(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml": {Data: []byte("a: english a\nb: english b\n")},
		"de.yaml": {Data: []byte("a: deutsch a\n")},
	}
	c, err := messages.LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}

	if got, _ := c.Lookup("de", "a"); got != "deutsch a" {
		t.Fatalf("expected german a, got %q", got)
	}
	if got, tag := c.Lookup("de", "b"); got != "english b" || tag != language.English {
		t.Fatalf("expected english fallback for b, got %q (%s)", got, tag)
	}
	if got, _ := c.Lookup("de", "missing"); got != "⧼missing⧽" {
		t.Fatalf("expected placeholder for unknown key, got %q", got)
	}
}

func TestLoadFS_RequiresFallback(t *testing.T) {
	fsys := fstest.MapFS{"de.yaml": {Data: []byte("a: b\n")}}
	if _, err := messages.LoadFS(fsys); err == nil {
		t.Fatalf("expected error without english catalog")
	}
}

func TestLoadFS_BadLanguageFileName(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml":           {Data: []byte("a: b\n")},
		"not_a_lang!!.yaml": {Data: []byte("a: b\n")},
	}
	if _, err := messages.LoadFS(fsys); err == nil {
		t.Fatalf("expected error for invalid language tag")
	}
}
