package middlewares

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextBoundsUserContext(t *testing.T) {
	app := fiber.New()
	app.Use(RequestContext(5 * time.Second))
	app.Get("/ctx", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{
			"has_deadline": ok,
			"within":       ok && time.Until(deadline) <= 5*time.Second,
			"reqid":        c.Locals("reqid"),
		})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ctx", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, decodeJSON(resp.Body, &body))
	assert.Equal(t, true, body["has_deadline"])
	assert.Equal(t, true, body["within"])
	assert.Equal(t, resp.Header.Get("X-Request-ID"), body["reqid"])
}

func TestRequestContextKeepsCallerRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestContext(time.Second))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func decodeJSON(r io.Reader, v any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(raw, v)
}
