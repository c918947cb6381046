package query

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eleven-am/shelfscan/internal/catalog"
	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/dto"
	"github.com/eleven-am/shelfscan/internal/shared"
	"github.com/labstack/echo/v4"
)

const productNotFound = "Product not found"

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("component", "query_handler"),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/get_latest_capture", h.LatestCapture)
	e.GET("/get_product_counts/:class_name", h.ProductCounts)
	e.GET("/get_product_count_details/:class_name", h.ProductCountDetails)
	e.GET("/get_product_details/:class_name", h.ProductDetails)
}

// domainParam reads ?domain=, falling back to fallback when absent.
func domainParam(c echo.Context, fallback detection.Domain) (detection.Domain, error) {
	raw := c.QueryParam("domain")
	if raw == "" {
		return fallback, nil
	}
	d, err := detection.ParseDomain(raw)
	if err != nil {
		return "", shared.BadRequest(err.Error())
	}
	return d, nil
}

func (h *Handler) LatestCapture(c echo.Context) error {
	var res LatestResult
	if c.QueryParam("domain") == "" {
		res = h.service.LatestAny()
	} else {
		domain, err := domainParam(c, detection.DomainProducts)
		if err != nil {
			return err
		}
		res, err = h.service.Latest(domain)
		if err != nil {
			return shared.BadRequest(err.Error())
		}
	}

	if res.Pending {
		return c.JSON(http.StatusOK, dto.PendingCaptureResponse{
			Message:       dto.WaitingForCapture,
			TimeRemaining: res.TimeRemaining,
		})
	}

	detections := res.Detections
	if detections == nil {
		detections = []detection.Detection{}
	}
	return c.JSON(http.StatusOK, dto.LatestCaptureResponse{
		ImageURL:      res.ImageURL,
		Detections:    detections,
		TimeRemaining: res.TimeRemaining,
	})
}

func (h *Handler) productCount(c echo.Context) (*catalog.Product, int, error) {
	domain, err := domainParam(c, detection.DomainProducts)
	if err != nil {
		return nil, 0, err
	}
	className := c.Param("class_name")

	product, count, err := h.service.ProductCount(c.Request().Context(), domain, className)
	switch {
	case err == nil:
		return product, count, nil
	case errors.Is(err, shared.ErrNotFound):
		h.logger.Debug("no product for class", "class", className)
		return nil, 0, shared.NotFoundMessage(productNotFound)
	case errors.Is(err, shared.ErrUnknownDomain):
		return nil, 0, shared.BadRequest(err.Error())
	default:
		h.logger.Error("product count lookup failed", "class", className, "error", err)
		return nil, 0, shared.InternalError(err.Error())
	}
}

func (h *Handler) ProductCounts(c echo.Context) error {
	product, count, err := h.productCount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ProductCountResponse{
		Product: product.Label(),
		Count:   count,
	})
}

func (h *Handler) ProductCountDetails(c echo.Context) error {
	product, count, err := h.productCount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ProductCountDetailsResponse{
		ProductName: product.ProductName,
		BrandName:   product.BrandName,
		Count:       count,
	})
}

func (h *Handler) ProductDetails(c echo.Context) error {
	className := c.Param("class_name")

	product, err := h.service.ProductLookup(c.Request().Context(), className)
	if errors.Is(err, shared.ErrNotFound) {
		h.logger.Debug("no product for class", "class", className)
		return shared.NotFound(productNotFound)
	}
	if err != nil {
		h.logger.Error("product details lookup failed", "class", className, "error", err)
		return shared.InternalError("Database query failed")
	}

	return c.JSON(http.StatusOK, dto.ProductDetailsResponse{
		ProductID:   product.ProductID,
		ProductName: product.ProductName,
		Brand:       product.BrandName,
		MfgDate:     product.MfgDate.String(),
		UseBefore:   product.UseBefore.String(),
		MRP:         product.MRP.String(),
		NetWeight:   product.NetWeight,
	})
}
