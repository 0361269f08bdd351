package dispatch

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/tasks/dispatch-reminders", h.DispatchReminders)
}

// DispatchReminders runs one dispatcher pass. The external scheduler is
// responsible for not overlapping runs.
func (h *Handler) DispatchReminders(c echo.Context) error {
	summary, err := h.svc.Run(c.Request().Context(), time.Now())
	if err != nil {
		h.logger.Error().Err(err).Msg("dispatch run failed")
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":           true,
		"notificationsSent": summary.NotificationsSent,
		"details":           summary.Details,
	})
}
