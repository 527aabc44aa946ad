// Package session holds the authenticated API context shared by the cases
// of one run.
package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"github.com/wallarm/gotestflow/internal/helpers"
)

const DefaultTimeout = 30 * time.Second

// CustomerIDSource derives the tenant identifier visible to the signed-in
// user.
type CustomerIDSource interface {
	CustomerID(ctx context.Context, baseURL *url.URL, state *StorageState) (string, error)
}

// StaticCustomerID is a CustomerIDSource with a preconfigured value.
type StaticCustomerID string

func (s StaticCustomerID) CustomerID(context.Context, *url.URL, *StorageState) (string, error) {
	return string(s), nil
}

var _ CustomerIDSource = StaticCustomerID("")

// Options configure the transport of the session.
type Options struct {
	TLSVerify bool
	Proxy     string
	Timeout   time.Duration
	Headers   map[string]string
}

// Response is a fully read API response.
type Response struct {
	Request *http.Request
	Status  int
	Header  http.Header
	Body    []byte
}

// Decode decodes the JSON body, see DecodeJSON.
func (r *Response) Decode() (any, error) {
	return DecodeJSON(r.Body)
}

// Session is a credentialed HTTP client bound to one customer. Requests are
// serialized.
type Session struct {
	mu sync.Mutex

	base       *url.URL
	client     *http.Client
	headers    map[string]string
	customerID string
	closed     bool

	logger *logrus.Logger
}

// Open builds the session from the credential artifact at artifactPath and
// resolves the customer id through source.
func Open(
	ctx context.Context,
	logger *logrus.Logger,
	baseURL string,
	artifactPath string,
	source CustomerIDSource,
	opts Options,
) (*Session, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse base URL")
	}

	state, err := LoadStorageState(artifactPath)
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.TLSVerify},
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't parse proxy URL")
		}

		tr.Proxy = http.ProxyURL(proxyURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loaded := 0
	for _, c := range state.Cookies {
		if c.Expired(now) {
			continue
		}

		jar.SetCookies(cookieURL(c, base), []*http.Cookie{c.HTTPCookie()})
		loaded++
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &Session{
		base: base,
		client: &http.Client{
			Transport: tr,
			Jar:       jar,
			Timeout:   timeout,
		},
		headers: helpers.DeepCopyMap(opts.Headers),
		logger:  logger,
	}

	customerID, err := source.CustomerID(ctx, base, state)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "couldn't get customer id")
	}

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		s.Close()
		return nil, ErrNoCustomerID
	}

	s.customerID = customerID

	logger.WithFields(logrus.Fields{
		"cookies":     loaded,
		"customer_id": customerID,
	}).Info("Session opened")

	return s, nil
}

// CustomerID is the tenant identifier of the signed-in user.
func (s *Session) CustomerID() string {
	return s.customerID
}

// Post sends body as JSON. A []byte body is sent as is.
func (s *Session) Post(ctx context.Context, path string, body any) (*Response, error) {
	var data []byte

	switch b := body.(type) {
	case nil:
	case []byte:
		data = b
	default:
		var err error
		data, err = json.Marshal(b)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't encode request body")
		}
	}

	return s.do(ctx, http.MethodPost, path, data)
}

func (s *Session) Get(ctx context.Context, path string) (*Response, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

func (s *Session) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	reqURL, err := helpers.ResolvePath(s.base, path)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create request")
	}

	for header, value := range s.headers {
		req.Header.Set(header, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending http request")
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	// the request body is kept readable for response validation
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.logger.WithFields(logrus.Fields{
		"method":  method,
		"path":    reqURL.Path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	}).Debug("API call")

	response := &Response{
		Request: req,
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    bodyBytes,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response, &APIError{
			Method: method,
			Path:   reqURL.Path,
			Status: resp.StatusCode,
			Body:   bodyBytes,
		}
	}

	return response, nil
}

// Close releases the idle connections. Calls made after Close fail with
// ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.client.CloseIdleConnections()

	return nil
}
