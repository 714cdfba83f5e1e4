// Package wiki maps inbound HTTP requests onto the wiki's notion of a page
// view: the requested title, whether it is a special page, and the request
// signals the gates look at. Parameters are read the way the wiki reads
// them, so the gates and the wiki never disagree about what was asked for.
package wiki

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/timgst1/crawlerprotection/internal/gate"
	"github.com/timgst1/crawlerprotection/internal/policy"
)

// MaxFormBody caps how much of a form POST is buffered for inspection. It
// sits above the wiki's default maximum article size so anonymous edits of
// large pages still pass.
const MaxFormBody = 4 << 20

var ErrBodyTooLarge = errors.New("wiki: form body too large to inspect")

// Layout describes the wiki's URL scheme.
type Layout struct {
	// ScriptPath is the entry point, e.g. "/index.php". "/index.php/Title"
	// style paths are understood as well.
	ScriptPath string
	// ArticlePath is the pretty URL prefix, e.g. "/wiki/".
	ArticlePath string
	// SpecialNamespaces lists the names (and localized aliases) of the
	// special namespace, e.g. "Special", "Spezial".
	SpecialNamespaces []string
}

func DefaultLayout() Layout {
	return Layout{
		ScriptPath:        "/index.php",
		ArticlePath:       "/wiki/",
		SpecialNamespaces: []string{"Special"},
	}
}

// ParseRequest builds the gate input for r. On error the returned request
// still carries everything read from the URL.
func ParseRequest(r *http.Request, l Layout) (gate.AccessRequest, error) {
	params, err := Params(r)

	req := gate.FromQuery(params)
	if name, sub, ok := l.SplitSpecial(l.Title(r, params)); ok {
		req.SpecialPage = name
		req.SubPage = sub
	}
	return req, err
}

// Params returns the query parameters merged with the fields of a form
// POST. Form fields replace query fields of the same name and within each
// source the last occurrence of a name comes last. The body is restored so
// the upstream receives it unchanged.
func Params(r *http.Request) (url.Values, error) {
	params := url.Values{}
	parseForm(r.URL.RawQuery, params)

	if r.Method != http.MethodPost || r.Body == nil || r.Body == http.NoBody {
		return params, nil
	}
	mediaType, mtParams, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" && mediaType != "multipart/form-data" {
		return params, nil
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, MaxFormBody+1))
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if err != nil {
		return params, err
	}
	if len(buf) > MaxFormBody {
		return params, ErrBodyTooLarge
	}

	form := url.Values{}
	if mediaType == "multipart/form-data" {
		parseMultipart(buf, mtParams["boundary"], form)
	} else {
		parseForm(string(buf), form)
	}
	for k, vs := range form {
		params[k] = vs
	}
	return params, nil
}

type replayBody struct {
	io.Reader
	io.Closer
}

// parseForm decodes a urlencoded string into dst keeping the order of
// repeated names. Malformed escapes are kept literally.
func parseForm(raw string, dst url.Values) {
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k = requestVarName(unescape(k))
		if k == "" {
			continue
		}
		dst[k] = append(dst[k], unescape(v))
	}
}

func parseMultipart(body []byte, boundary string, dst url.Values) {
	if boundary == "" {
		return
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return
		}
		if part.FileName() != "" {
			continue
		}
		k := requestVarName(part.FormName())
		if k == "" {
			continue
		}
		v, err := io.ReadAll(part)
		if err != nil {
			return
		}
		dst[k] = append(dst[k], string(v))
	}
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// requestVarName mirrors how PHP, and therefore the wiki, registers request
// variable names: the name ends at a NUL byte, leading spaces are dropped,
// and spaces and dots become underscores.
func requestVarName(k string) string {
	k, _, _ = strings.Cut(k, "\x00")
	k = strings.TrimLeft(k, " ")
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '.' {
			return '_'
		}
		return r
	}, k)
}

// Title returns the requested page title. A title in the path wins over
// ?title=, as it does in the wiki.
func (l Layout) Title(r *http.Request, params url.Values) string {
	p := r.URL.Path
	switch {
	case l.ScriptPath != "" && p == l.ScriptPath:
	case l.ScriptPath != "" && strings.HasPrefix(p, l.ScriptPath+"/"):
		if t := p[len(l.ScriptPath)+1:]; t != "" {
			return t
		}
	case l.ArticlePath != "" && strings.HasPrefix(p, l.ArticlePath):
		if t := p[len(l.ArticlePath):]; t != "" {
			return t
		}
	}

	if vs := params["title"]; len(vs) > 0 {
		return vs[len(vs)-1]
	}
	return ""
}

// SplitSpecial reports whether title lives in the special namespace and, if
// so, returns the page name and the sub-page after the first slash. The
// title is canonicalized first, so "special :_WhatLinksHere_" and
// ":Special:WhatLinksHere" both name WhatLinksHere.
func (l Layout) SplitSpecial(title string) (name, sub string, ok bool) {
	t := policy.CanonicalTitle(title)
	// a leading colon forces the main namespace but parsing continues
	t = strings.TrimLeft(strings.TrimPrefix(t, ":"), "_")

	ns, rest, found := strings.Cut(t, ":")
	if !found {
		return "", "", false
	}
	ns = strings.Trim(ns, "_")

	for _, want := range l.SpecialNamespaces {
		if strings.EqualFold(ns, policy.CanonicalTitle(want)) {
			name, sub, _ = strings.Cut(strings.TrimLeft(rest, "_"), "/")
			return strings.Trim(name, "_"), sub, true
		}
	}
	return "", "", false
}
