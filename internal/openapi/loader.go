// Package openapi validates API responses against an OpenAPI description of
// the target.
package openapi

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	routers_legacy "github.com/getkin/kin-openapi/routers/legacy"
	"github.com/pkg/errors"
)

// LoadOpenAPISpec loads an OpenAPI file, parses it and validates it.
func LoadOpenAPISpec(ctx context.Context, location string) (*openapi3.T, routers.Router, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(location)
	if err != nil {
		return nil, nil, errors.Wrap(err, "couldn't load OpenAPI file")
	}

	return prepare(ctx, doc)
}

// LoadOpenAPISpecFromData is LoadOpenAPISpec for an in-memory document.
func LoadOpenAPISpecFromData(ctx context.Context, data []byte) (*openapi3.T, routers.Router, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "couldn't parse OpenAPI document")
	}

	return prepare(ctx, doc)
}

func prepare(ctx context.Context, doc *openapi3.T) (*openapi3.T, routers.Router, error) {
	err := doc.Validate(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "couldn't validate OpenAPI spec")
	}

	router, err := routers_legacy.NewRouter(doc)
	if err != nil {
		return nil, nil, errors.Wrap(err, "couldn't create router from OpenAPI spec")
	}

	return doc, router, nil
}
