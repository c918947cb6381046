package events

import (
	"net/http"

	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/captures", h.HandleConnection)
}

// HandleConnection upgrades to a websocket that receives capture events,
// optionally filtered with ?domain=.
func (h *Hub) HandleConnection(c echo.Context) error {
	var domain string
	if raw := c.QueryParam("domain"); raw != "" {
		d, err := detection.ParseDomain(raw)
		if err != nil {
			return shared.BadRequest(err.Error())
		}
		domain = d.String()
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	cl := newClient(ws, domain, h.logger)
	h.register(cl)
	h.logger.Info("event subscriber connected", "domain", domain, "subscribers", h.Count())

	ctx := c.Request().Context()
	go cl.writePump(ctx)
	cl.readPump(ctx)

	h.unregister(cl)
	h.logger.Info("event subscriber disconnected", "domain", domain)
	return nil
}
