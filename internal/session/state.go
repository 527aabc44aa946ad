package session

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/helpers"
)

// StorageState is the persisted credential artifact: browser cookies and
// per-origin local storage captured after an interactive login.
type StorageState struct {
	Cookies []Cookie      `json:"cookies"`
	Origins []OriginState `json:"origins"`
}

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

type OriginState struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadStorageState reads the artifact written by the login flow.
func LoadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read credential artifact %s", path)
	}

	var state StorageState
	if err = json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(err, "couldn't decode credential artifact %s", path)
	}

	return &state, nil
}

// Save writes the artifact. Concurrent writers are not supported.
func (s *StorageState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "couldn't encode credential artifact")
	}

	return helpers.WriteFile(path, data)
}

// HTTPCookies returns the cookies that have not expired at now.
func (s *StorageState) HTTPCookies(now time.Time) []*http.Cookie {
	var cookies []*http.Cookie

	for _, c := range s.Cookies {
		if !c.Expired(now) {
			cookies = append(cookies, c.HTTPCookie())
		}
	}

	return cookies
}

// Expired reports whether the cookie has an expiry before now. Session
// cookies never expire.
func (c Cookie) Expired(now time.Time) bool {
	return c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now)
}

func (c Cookie) HTTPCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}

	// host-only cookies are stored without the leading dot
	if strings.HasPrefix(c.Domain, ".") {
		cookie.Domain = c.Domain
	}

	switch strings.ToLower(c.SameSite) {
	case "strict":
		cookie.SameSite = http.SameSiteStrictMode
	case "lax":
		cookie.SameSite = http.SameSiteLaxMode
	case "none":
		cookie.SameSite = http.SameSiteNoneMode
	}

	return cookie
}

// cookieURL is the URL the cookie was originally set for.
func cookieURL(c Cookie, base *url.URL) *url.URL {
	host := strings.TrimPrefix(c.Domain, ".")
	if host == "" {
		host = base.Host
	} else if port := base.Port(); port != "" && !strings.Contains(host, ":") {
		host = host + ":" + port
	}

	scheme := base.Scheme
	if c.Secure {
		scheme = "https"
	}

	path := c.Path
	if path == "" {
		path = "/"
	}

	return &url.URL{Scheme: scheme, Host: host, Path: path}
}

// LocalStorage returns the local storage value stored for origin.
func (s *StorageState) LocalStorage(origin, name string) (string, bool) {
	for _, o := range s.Origins {
		if o.Origin != origin {
			continue
		}
		for _, item := range o.LocalStorage {
			if item.Name == name {
				return item.Value, true
			}
		}
	}

	return "", false
}
