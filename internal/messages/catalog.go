// Package messages holds the localized texts of the deny page.
package messages

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed i18n/*.yaml
var bundled embed.FS

// Fallback is the language used when nothing in Accept-Language matches.
var Fallback = language.English

type Catalog struct {
	tags    []language.Tag
	msgs    []map[string]string
	matcher language.Matcher
}

// Load reads the bundled catalogs.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(bundled, "i18n")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadFS reads one <lang>.yaml file per language from fsys. A file for the
// fallback language is required.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	c := &Catalog{}
	fallback := -1
	for _, f := range files {
		tag, err := language.Parse(strings.TrimSuffix(path.Base(f), ".yaml"))
		if err != nil {
			return nil, fmt.Errorf("messages: %s: %w", f, err)
		}
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		m := map[string]string{}
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("messages: %s: %w", f, err)
		}
		if tag == Fallback {
			fallback = len(c.tags)
		}
		c.tags = append(c.tags, tag)
		c.msgs = append(c.msgs, m)
	}

	if fallback < 0 {
		return nil, fmt.Errorf("messages: no catalog for fallback language %s", Fallback)
	}
	// the matcher treats the first tag as its default
	c.tags[0], c.tags[fallback] = c.tags[fallback], c.tags[0]
	c.msgs[0], c.msgs[fallback] = c.msgs[fallback], c.msgs[0]
	c.matcher = language.NewMatcher(c.tags)

	return c, nil
}

// Match picks the catalog index for an Accept-Language header value.
func (c *Catalog) Match(acceptLanguage string) (language.Tag, int) {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return c.tags[0], 0
	}
	_, idx, conf := c.matcher.Match(prefs...)
	if conf == language.No {
		return c.tags[0], 0
	}
	return c.tags[idx], idx
}

// Lookup returns the message for key in the best matching language, falling
// back to the default language and finally to "⧼key⧽".
func (c *Catalog) Lookup(acceptLanguage, key string) (string, language.Tag) {
	tag, idx := c.Match(acceptLanguage)
	if s, ok := c.msgs[idx][key]; ok {
		return s, tag
	}
	if s, ok := c.msgs[0][key]; ok {
		return s, c.tags[0]
	}
	return "⧼" + key + "⧽", tag
}

func (c *Catalog) Languages() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}
