package handler

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
	"github.com/labelflow/labelflow/api/internal/validator"
)

// Pagination represents pagination parameters for list operations.
type Pagination struct {
	Limit  int
	Offset int
}

// DefaultPagination provides default pagination values.
var DefaultPagination = Pagination{Limit: 50, Offset: 0}

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 500

// ParsePagination extracts limit and offset query parameters, clamping them into range.
func ParsePagination(c *fiber.Ctx) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", DefaultPagination.Limit),
		Offset: c.QueryInt("offset", DefaultPagination.Offset),
	}

	if p.Limit <= 0 {
		p.Limit = DefaultPagination.Limit
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	return p
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperrors.InvalidArgument("invalid " + name).WithDetail(name, c.Params(name))
	}
	return id, nil
}

// pathParam returns a decoded path segment. Routing sees the raw path, so
// non-ASCII symbols and symbols containing "/" arrive percent-encoded.
func pathParam(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperrors.InvalidArgument("invalid " + name).WithDetail(name, raw)
	}
	return v, nil
}

// optionalBoolQuery returns nil when the parameter is absent
func optionalBoolQuery(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid " + key).WithDetail(key, raw)
	}
	return &v, nil
}

// parseBody decodes a JSON body into v and runs struct validation on it
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.InvalidArgument("invalid request body").WithError(err)
	}
	return validator.ValidateRequest(v)
}
