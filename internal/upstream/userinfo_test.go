package upstream_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timgst1/crawlerprotection/internal/upstream"
)

func newUserInfoWiki(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var gotHost string
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		q := r.URL.Query()
		if r.URL.Path != "/w/api.php" || q.Get("meta") != "userinfo" || q.Get("formatversion") != "2" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if c, err := r.Cookie("wikidb_session"); err == nil && c.Value == "good" {
			_, _ = w.Write([]byte(`{"batchcomplete":true,"query":{"userinfo":{"id":42,"name":"Jane"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"batchcomplete":true,"query":{"userinfo":{"id":0,"name":"203.0.113.9","anon":true}}}`))
	}))
	t.Cleanup(wiki.Close)
	return wiki, &gotHost
}

func TestUserInfo_VerifySession(t *testing.T) {
	wiki, gotHost := newUserInfoWiki(t)

	v, err := upstream.NewUserInfo(wiki.URL+"/", "w/api.php", nil)
	if err != nil {
		t.Fatalf("NewUserInfo: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "http://wiki.example.org/wiki/Main_Page", nil)
	r.AddCookie(&http.Cookie{Name: "wikidb_session", Value: "good"})
	name, ok, err := v.VerifySession(r)
	if err != nil || !ok || name != "Jane" {
		t.Fatalf("expected Jane registered, got %q %v %v", name, ok, err)
	}
	if *gotHost != "wiki.example.org" {
		t.Fatalf("expected public host to be kept, got %q", *gotHost)
	}

	r = httptest.NewRequest(http.MethodGet, "http://wiki.example.org/wiki/Main_Page", nil)
	r.AddCookie(&http.Cookie{Name: "wikidb_session", Value: "forged"})
	if _, ok, err := v.VerifySession(r); err != nil || ok {
		t.Fatalf("forged session must be anonymous, got %v %v", ok, err)
	}
}

func TestUserInfo_ErrorsOnBadResponse(t *testing.T) {
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/broken.php") {
			_, _ = w.Write([]byte("<html>"))
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer wiki.Close()

	for _, path := range []string{"/api.php", "/broken.php"} {
		v, err := upstream.NewUserInfo(wiki.URL, path, nil)
		if err != nil {
			t.Fatalf("NewUserInfo: %v", err)
		}
		if _, ok, err := v.VerifySession(httptest.NewRequest(http.MethodGet, "/", nil)); err == nil || ok {
			t.Fatalf("%s: expected error, got ok=%v err=%v", path, ok, err)
		}
	}

	if _, err := upstream.NewUserInfo("not a url", "", nil); err == nil {
		t.Fatalf("expected error for relative target")
	}
}
