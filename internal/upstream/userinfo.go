package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UserInfo checks sessions against the wiki's action API
// (action=query&meta=userinfo) using the caller's own cookies.
type UserInfo struct {
	endpoint string
	client   *http.Client
}

// NewUserInfo builds a verifier for the wiki at target whose API lives at
// apiPath, e.g. "/api.php". A nil client gets a 5s timeout.
func NewUserInfo(target, apiPath string, client *http.Client) (*UserInfo, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("upstream: %q must be an absolute http(s) URL", target)
	}
	if apiPath == "" {
		apiPath = "/api.php"
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(apiPath, "/")
	u.RawQuery = url.Values{
		"action":        {"query"},
		"meta":          {"userinfo"},
		"format":        {"json"},
		"formatversion": {"2"},
	}.Encode()

	return &UserInfo{endpoint: u.String(), client: client}, nil
}

type userInfoResponse struct {
	Query struct {
		UserInfo struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
			Anon bool   `json:"anon"`
		} `json:"userinfo"`
	} `json:"query"`
}

func (u *UserInfo) VerifySession(r *http.Request) (string, bool, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.endpoint, nil)
	if err != nil {
		return "", false, err
	}
	// the wiki builds its cookie and vhost handling on the public host name
	req.Host = r.Host
	req.Header.Set("Accept", "application/json")
	for _, c := range r.Header.Values("Cookie") {
		req.Header.Add("Cookie", c)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	var body userInfoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", false, fmt.Errorf("userinfo: %w", err)
	}
	info := body.Query.UserInfo
	if info.Anon || info.ID <= 0 {
		return "", false, nil
	}
	return info.Name, true, nil
}
