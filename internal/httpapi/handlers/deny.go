package handlers

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/timgst1/crawlerprotection/internal/gate"
	"github.com/timgst1/crawlerprotection/internal/messages"
)

const teapotBody = "I'm a teapot"

var denyPage = template.Must(template.New("deny").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="robots" content="noindex,nofollow">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Text}}</p>
</body>
</html>
`))

// DenyRenderer writes the two deny responses. It never decides whether to
// deny; the gate middleware does that.
type DenyRenderer struct {
	Messages *messages.Catalog
	Log      *slog.Logger
}

// DenyAccess writes the standard 403 page with the localized title and text.
func (h DenyRenderer) DenyAccess(w http.ResponseWriter, r *http.Request) {
	title, tag := h.Messages.Lookup(r.Header.Get("Accept-Language"), gate.TitleKey)
	text, _ := h.Messages.Lookup(r.Header.Get("Accept-Language"), gate.BodyKey)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", tag.String())
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Add("Vary", "Accept-Language")
	w.WriteHeader(http.StatusForbidden)

	err := denyPage.Execute(w, struct {
		Lang, Title, Text string
	}{Lang: tag.String(), Title: title, Text: text})
	if err != nil && h.Log != nil {
		h.Log.Error("render deny page", "err", err)
	}
}

// DenyFast writes the bare 418 and asks the client to drop the connection.
// Nothing is rendered.
func (h DenyRenderer) DenyFast(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte(teapotBody))
}
