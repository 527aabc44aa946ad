package openapi

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/pipeline"
	"github.com/wallarm/gotestflow/internal/session"
)

var _ pipeline.ResponseValidator = (*Validator)(nil)

var _ error = (*SchemaError)(nil)

// SchemaError is a response that does not conform to its documented
// operation.
type SchemaError struct {
	Method string
	Path   string
	Status int
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s %s (%d) violates the API description: %v", e.Method, e.Path, e.Status, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Validator checks responses of documented operations. Requests to routes
// missing from the description are not checked.
type Validator struct {
	router routers.Router
	logger *logrus.Logger
}

func NewValidator(logger *logrus.Logger, router routers.Router) *Validator {
	return &Validator{
		router: router,
		logger: logger,
	}
}

func (v *Validator) ValidateResponse(ctx context.Context, resp *session.Response) error {
	if resp == nil || resp.Request == nil {
		return errors.New("response without request")
	}

	req := resp.Request

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		v.logger.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
		}).WithError(err).Debug("Route is not documented, response is not validated")

		return nil
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: resp.Status,
		Header: resp.Header,
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
		},
	}
	input.SetBodyBytes(resp.Body)

	if err = openapi3filter.ValidateResponse(ctx, input); err != nil {
		return &SchemaError{
			Method: req.Method,
			Path:   req.URL.Path,
			Status: resp.Status,
			Err:    err,
		}
	}

	return nil
}
