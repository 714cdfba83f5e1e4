package policy

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

const specialNamespace = "special"

func LoadFromFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	if d.SpecialPages == nil {
		d.SpecialPages = append([]string(nil), DefaultSpecialPages...)
	}
	if err := Validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func Validate(d *Document) error {
	if d == nil {
		return fmt.Errorf("policy: document is nil")
	}
	if strings.TrimSpace(d.APIVersion) == "" {
		return fmt.Errorf("policy: apiVersion missing")
	}
	if strings.TrimSpace(d.Kind) == "" {
		return fmt.Errorf("policy: kind missing")
	}
	if d.Kind != Kind {
		return fmt.Errorf("policy: unsupported kind %q (want %q)", d.Kind, Kind)
	}

	seen := map[string]string{}
	for _, p := range d.SpecialPages {
		n := NormalizePageName(p, true)
		if n == "" {
			return fmt.Errorf("policy: empty special page entry %q", p)
		}
		if prev, ok := seen[n]; ok {
			return fmt.Errorf("policy: duplicate special page %q (same as %q)", p, prev)
		}
		seen[n] = p
	}

	return nil
}

// NormalizePageName canonicalizes a special page name the way the wiki
// does (see CanonicalTitle), lowercases it and, when stripPrefix is set,
// removes one leading "Special:" in any casing.
func NormalizePageName(name string, stripPrefix bool) string {
	n := strings.ToLower(CanonicalTitle(name))
	if stripPrefix {
		if ns, rest, ok := strings.Cut(n, ":"); ok && strings.Trim(ns, "_") == specialNamespace {
			n = strings.Trim(rest, "_")
		}
	}
	return n
}

// CanonicalTitle applies the wiki's title cleanup: runs of whitespace and
// underscores collapse into one "_", direction marks are dropped and the
// result carries no leading or trailing "_".
func CanonicalTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	gap := false
	for _, r := range s {
		switch {
		case r == '_' || unicode.IsSpace(r):
			gap = true
			continue
		case isDirectionMark(r):
			continue
		}
		if gap && b.Len() > 0 {
			b.WriteByte('_')
		}
		gap = false
		b.WriteRune(r)
	}
	return b.String()
}

func isDirectionMark(r rune) bool {
	return r == '\u200E' || r == '\u200F' || (r >= '\u202A' && r <= '\u202E')
}
