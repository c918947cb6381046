package liveness

import (
	"log/slog"
	"net/http"

	"github.com/eleven-am/shelfscan/internal/dto"
	"github.com/eleven-am/shelfscan/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	mapping *Mapping
	logger  *slog.Logger
}

func NewHandler(mapping *Mapping, logger *slog.Logger) *Handler {
	return &Handler{
		mapping: mapping,
		logger:  logger.With("component", "liveness"),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/get_product_liveness/:detected_class", h.Liveness)
	e.GET("/api/class_mapping", h.ClassMapping)
}

func (h *Handler) Liveness(c echo.Context) error {
	class := c.Param("detected_class")
	liveness, ok := h.mapping.Lookup(class)
	if !ok {
		h.logger.Debug("unknown liveness class", "class", class)
		return shared.NotFound("Unknown product class")
	}
	return c.JSON(http.StatusOK, dto.LivenessResponse{
		DetectedClass: class,
		Liveness:      liveness,
	})
}

func (h *Handler) ClassMapping(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mapping.All())
}
