package session

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrClosed       = errors.New("session is closed")
	ErrNoCustomerID = errors.New("customer id is empty")
)

var _ error = (*APIError)(nil)

const maxErrorBody = 512

// APIError is returned for every non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Status, body)
}
