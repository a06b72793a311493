package validation

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxContentSize      int
	MaxReasonLength     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware screens write requests before they reach a handler: the content
// type must be allowed, a JSON body must be an object, and its content and
// reason fields must fit their limits.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxContentSize == 0 {
		cfg.MaxContentSize = 1 << 20
	}
	if cfg.MaxReasonLength == 0 {
		cfg.MaxReasonLength = 2000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON, fiber.MIMEMultipartForm}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowed(contentType, cfg.AllowedContentTypes) {
			return reject(c, fiber.StatusUnsupportedMediaType, "Unsupported content type")
		}

		if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) || len(c.Body()) == 0 {
			return c.Next()
		}

		var body map[string]any
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return reject(c, fiber.StatusBadRequest, "Invalid JSON format")
		}

		for key, v := range body {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if strings.ContainsRune(s, '\x00') {
				cfg.Logger.Warn("Rejected body with NUL byte", zap.String("field", key), zap.String("path", c.Path()))
				return reject(c, fiber.StatusBadRequest, "Field "+key+" contains invalid characters")
			}
		}

		if content, ok := body["content"].(string); ok && len(content) > cfg.MaxContentSize {
			return reject(c, fiber.StatusRequestEntityTooLarge, "Content exceeds maximum size")
		}
		if reason, ok := body["reason"].(string); ok && len(reason) > cfg.MaxReasonLength {
			return reject(c, fiber.StatusBadRequest, "Reason exceeds maximum length")
		}

		return c.Next()
	}
}

func allowed(contentType string, types []string) bool {
	for _, t := range types {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

func reject(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}
