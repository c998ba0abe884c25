package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("api")

type Handler struct {
	service *Service
}

func NewHandler(service *Service) Handler {
	return Handler{
		service,
	}
}

// GetHealth handles liveness probes.
func (h Handler) GetHealth(c echo.Context) error {
	_, span := tracer.Start(c.Request().Context(), "GetHealth")
	defer span.End()

	return c.JSON(http.StatusOK, h.service.Health())
}

// GetStats handles handling-counter requests.
func (h Handler) GetStats(c echo.Context) error {
	_, span := tracer.Start(c.Request().Context(), "GetStats")
	defer span.End()

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": h.service.Stats()})
}
