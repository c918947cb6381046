package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownDomain     = errors.New("unknown detection domain")
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrFrameRead         = errors.New("frame read failed")
	ErrCatalogLookup     = errors.New("catalog lookup failed")
	ErrDetectionTimeout  = errors.New("detection timed out")
	ErrStreamStopped     = errors.New("stream stopped")
)

// APIError is the JSON body of every error response. Endpoints differ in
// whether they report through "error" or "message", so both are optional.
type APIError struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewAPIError(errMsg string) *APIError {
	return &APIError{Error: errMsg}
}

func NewAPIMessage(message string) *APIError {
	return &APIError{Message: message}
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(errMsg string) *echo.HTTPError {
	return NewAPIError(errMsg).ToHTTP(http.StatusBadRequest)
}

func NotFound(errMsg string) *echo.HTTPError {
	return NewAPIError(errMsg).ToHTTP(http.StatusNotFound)
}

func NotFoundMessage(message string) *echo.HTTPError {
	return NewAPIMessage(message).ToHTTP(http.StatusNotFound)
}

func InternalError(errMsg string) *echo.HTTPError {
	return NewAPIError(errMsg).ToHTTP(http.StatusInternalServerError)
}

func ServiceUnavailable(errMsg string) *echo.HTTPError {
	return NewAPIError(errMsg).ToHTTP(http.StatusServiceUnavailable)
}
