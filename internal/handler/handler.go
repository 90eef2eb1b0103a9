// Package handler adapts HTTP requests to the service layer and renders the response envelope.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"clothing-marketplace/internal/middleware"
	"clothing-marketplace/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies read by handlers.
const maxBodyBytes = 1 << 20

// decodeJSON decodes the request body into dst, rejecting unknown fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return model.ErrInvalidJSON.Wrap(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.ErrInvalidJSON.WithMessage("Request body must contain a single JSON object")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, dst)
}

// uuidParam parses a chi URL parameter as a UUID.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.ErrValidation.WithMessage("Invalid " + name + " format").Wrap(err)
	}
	return id, nil
}

// listParams reads status, page and limit query parameters.
func listParams(r *http.Request) (model.ListParams, error) {
	q := r.URL.Query()
	params := model.ListParams{Status: strings.TrimSpace(q.Get("status"))}

	var err error
	if v := q.Get("page"); v != "" {
		if params.Page, err = strconv.Atoi(v); err != nil {
			return params, model.ErrValidation.WithMessage("Invalid page parameter")
		}
	}
	if v := q.Get("limit"); v != "" {
		if params.Limit, err = strconv.Atoi(v); err != nil {
			return params, model.ErrValidation.WithMessage("Invalid limit parameter")
		}
	}
	return params, nil
}

// principal returns the authenticated caller. Routes behind Authenticate always carry one.
func principal(r *http.Request) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return model.Principal{}, model.ErrUnauthorised
	}
	return p, nil
}
