package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/shared"
	"github.com/labstack/echo/v4"
)

const (
	boundary         = "frame"
	mjpegContentType = "multipart/x-mixed-replace; boundary=" + boundary
)

type Handler struct {
	registry *Registry
	logger   *slog.Logger
}

func NewHandler(registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger.With("component", "video_feed"),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/video_feed", h.ProductFeed)
	e.GET("/video_feed_fruits", h.FruitFeed)
}

func (h *Handler) ProductFeed(c echo.Context) error {
	return h.serveFeed(c, detection.DomainProducts)
}

func (h *Handler) FruitFeed(c echo.Context) error {
	return h.serveFeed(c, detection.DomainFruits)
}

func (h *Handler) serveFeed(c echo.Context, domain detection.Domain) error {
	pub, ok := h.registry.ForDomain(domain)
	if !ok {
		return shared.NotFound(fmt.Sprintf("no video feed configured for %s", domain))
	}

	ctx := c.Request().Context()
	id, frames, err := pub.Subscribe(ctx)
	defer pub.Unsubscribe(id)
	if err != nil {
		h.logger.Warn("video feed unavailable", "domain", domain, "error", err)
		if errors.Is(err, shared.ErrCameraUnavailable) || errors.Is(err, shared.ErrStreamStopped) {
			return shared.ServiceUnavailable("camera unavailable")
		}
		return shared.InternalError("failed to start video feed")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, mjpegContentType)
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-frames:
			if !ok {
				return nil
			}
			if err := writePart(res, data); err != nil {
				h.logger.Debug("video feed client gone", "domain", domain, "error", err)
				return nil
			}
			res.Flush()
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", boundary); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
