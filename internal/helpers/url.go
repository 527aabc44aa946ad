package helpers

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Origin returns scheme://host of the URL without path, query or fragment.
func Origin(reqURL *url.URL) string {
	origin := url.URL{
		Scheme: reqURL.Scheme,
		Host:   reqURL.Host,
	}

	return origin.String()
}

// ResolvePath joins an API path (which may carry its own query string) onto
// the base URL.
func ResolvePath(base *url.URL, path string) (*url.URL, error) {
	if path == "" {
		return nil, errors.New("empty request path")
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't parse request path %q", path)
	}
	if ref.IsAbs() {
		return nil, errors.Errorf("request path %q must be relative to the base URL", path)
	}

	resolved := *base
	resolved.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	resolved.RawPath = ""
	resolved.RawQuery = ref.RawQuery
	resolved.Fragment = ""

	return &resolved, nil
}
