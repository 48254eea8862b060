package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	t.Run("generates request ID when not present", func(t *testing.T) {
		app := fiber.New()

		var localRequestID string
		app.Use(RequestID())
		app.Get("/test", func(c *fiber.Ctx) error {
			localRequestID = GetRequestID(c)
			return c.SendStatus(200)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)

		requestID := resp.Header.Get("X-Request-ID")
		assert.Len(t, requestID, 36)
		assert.Equal(t, requestID, localRequestID)
	})

	t.Run("preserves existing request ID from header", func(t *testing.T) {
		app := fiber.New()

		app.Use(RequestID())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "existing-request-id-12345")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, "existing-request-id-12345", resp.Header.Get("X-Request-ID"))
	})

	t.Run("uses custom header and generator", func(t *testing.T) {
		app := fiber.New()

		callCount := 0
		app.Use(RequestID(RequestIDConfig{
			Header: "X-Custom-Request-ID",
			Generator: func() string {
				callCount++
				return "custom-generated-id"
			},
		}))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)

		assert.Equal(t, "custom-generated-id", resp.Header.Get("X-Custom-Request-ID"))
		assert.Equal(t, 1, callCount)
	})
}

func TestGetRequestID_Missing(t *testing.T) {
	app := fiber.New()

	var got string
	app.Get("/test", func(c *fiber.Ctx) error {
		got = GetRequestID(c)
		return c.SendStatus(200)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}
