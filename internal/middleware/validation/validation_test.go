package validation

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(Config{MaxContentSize: 10, MaxReasonLength: 5}))
	app.All("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })

	cases := []struct {
		name        string
		method      string
		contentType string
		body        string
		status      int
	}{
		{"get passes", "GET", "", "", fiber.StatusOK},
		{"valid json", "POST", "application/json", `{"user_id":"u1","reason":"ok"}`, fiber.StatusOK},
		{"empty json body", "POST", "application/json", ``, fiber.StatusOK},
		{"multipart", "POST", "multipart/form-data; boundary=x", "--x--", fiber.StatusOK},
		{"text plain", "POST", "text/plain", "hi", fiber.StatusUnsupportedMediaType},
		{"broken json", "PUT", "application/json", `{"content":`, fiber.StatusBadRequest},
		{"array json", "PUT", "application/json", `[1]`, fiber.StatusBadRequest},
		{"content too large", "PUT", "application/json", `{"content":"0123456789abc"}`, fiber.StatusRequestEntityTooLarge},
		{"reason too long", "POST", "application/json", `{"reason":"far too long"}`, fiber.StatusBadRequest},
		{"nul byte", "POST", "application/json", `{"user_id":"a\u0000b"}`, fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/records/r1/approve", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			if tc.status != fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				assert.Contains(t, string(body), `"detail"`)
			}
		})
	}
}
