package browser

import (
	"context"
	"net/url"
	"strings"

	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/session"
)

// DefaultCustomerIDKey is the sessionStorage key the application keeps the
// tenant identifier under.
const DefaultCustomerIDKey = "myCustomerId"

// SessionStorageSource reads the customer id from sessionStorage after
// opening the base page with the stored credentials.
type SessionStorageSource struct {
	Browser *Browser
	Key     string
	Poll    poll.Options
}

var _ session.CustomerIDSource = (*SessionStorageSource)(nil)

func (s *SessionStorageSource) CustomerID(ctx context.Context, _ *url.URL, state *session.StorageState) (string, error) {
	key := s.Key
	if key == "" {
		key = DefaultCustomerIDKey
	}

	if err := s.Browser.ApplyStorageState(ctx, state); err != nil {
		return "", err
	}

	if err := s.Browser.Navigate(ctx, "/"); err != nil {
		return "", err
	}

	opts := s.Poll
	if opts.Name == "" {
		opts.Name = "sessionStorage " + key
	}

	var customerID string

	// the application writes the value after its first API round trip
	err := poll.Wait(ctx, func(ctx context.Context) (bool, error) {
		value, err := s.Browser.SessionStorage(ctx, key)
		if err != nil {
			return false, err
		}

		customerID = strings.TrimSpace(value)
		return customerID != "", nil
	}, opts)
	if err != nil {
		return "", err
	}

	return customerID, nil
}
