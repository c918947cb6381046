package bootstrap

import (
	"github.com/eleven-am/shelfscan/internal/aggregate"
	"github.com/eleven-am/shelfscan/internal/health"
	"github.com/eleven-am/shelfscan/internal/stream"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const version = "1.0.0"

func ProvideHealthHandler(db *gorm.DB, redisClient *redis.Client, registry *stream.Registry, agg *aggregate.Aggregator, probes DetectorProbes) *health.Handler {
	return health.NewHandler(health.Dependencies{
		DB:        db,
		Redis:     redisClient,
		Streams:   registry,
		Cycles:    agg,
		Detectors: probes,
		Version:   version,
	})
}

func requestCounter(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(requestCounter(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
