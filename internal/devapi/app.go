package devapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/metrics"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/middleware/ratelimit"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/middleware/security"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/middleware/validation"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

type AppConfig struct {
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	BodyLimit          int
	RateLimitPerMinute int
	AllowedOrigins     []string
	AccessLog          bool
}

// NewApp builds the fiber app. The returned stop func releases the rate
// limiter's janitor.
func NewApp(cfg AppConfig, store *Store) (*fiber.App, func()) {
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
		},
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:               logger.GetLogger(),
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(security.HeadersMiddleware(security.HeadersConfig{AllowedOrigins: cfg.AllowedOrigins}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: logger.GetLogger()}))

	metrics.Init()
	app.Get("/metrics", metrics.MetricsHandler())

	NewHandler(store).Register(app)

	return app, limiter.Stop
}
