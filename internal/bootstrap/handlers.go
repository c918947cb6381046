package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/shelfscan/internal/events"
	"github.com/eleven-am/shelfscan/internal/liveness"
	"github.com/eleven-am/shelfscan/internal/metrics"
	"github.com/eleven-am/shelfscan/internal/query"
	"github.com/eleven-am/shelfscan/internal/stream"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	StreamHandler   *stream.Handler
	QueryHandler    *query.Handler
	LivenessHandler *liveness.Handler
	EventHub        *events.Hub
	Metrics         *metrics.Metrics
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.StreamHandler.RegisterRoutes(e)
	params.QueryHandler.RegisterRoutes(e)
	params.LivenessHandler.RegisterRoutes(e)
	params.EventHub.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(params.Metrics.Handler()))
}

func ProvideStreamHandler(registry *stream.Registry, logger *slog.Logger) *stream.Handler {
	return stream.NewHandler(registry, logger.With("handler", "stream"))
}

func ProvideQueryHandler(service *query.Service, logger *slog.Logger) *query.Handler {
	return query.NewHandler(service, logger.With("handler", "query"))
}

func ProvideLivenessHandler(mapping *liveness.Mapping, logger *slog.Logger) *liveness.Handler {
	return liveness.NewHandler(mapping, logger.With("handler", "liveness"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideStreamHandler,
		ProvideQueryHandler,
		ProvideLivenessHandler,
	),
	fx.Invoke(RegisterRoutes),
)
