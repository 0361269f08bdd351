package notify

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	notifier *Notifier
	logger   zerolog.Logger
}

func NewHandler(notifier *Notifier, logger zerolog.Logger) *Handler {
	return &Handler{notifier: notifier, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/notify/storage-request", h.StorageRequest)
}

func (h *Handler) StorageRequest(c echo.Context) error {
	var req StorageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is not valid json")
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.notifier.Notify(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("storage request fan-out failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":              true,
		"notificationsCreated": res.NotificationsCreated,
		"emailsSent":           res.EmailsSent,
	})
}
