package sync

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vidalink/integra/internal/domain/consent"
	"github.com/vidalink/integra/internal/domain/partner"
	"github.com/vidalink/integra/internal/domain/patient"
	"github.com/vidalink/integra/internal/domain/records"
)

// APIKeyHeader carries the partner's opaque key on every sync call.
const APIKeyHeader = "x-api-key"

type Handler struct {
	partners *partner.Service
	sync     *Service
	logger   zerolog.Logger
}

func NewHandler(partners *partner.Service, svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{partners: partners, sync: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/sync/appointments", h.SyncAppointments)
	g.POST("/sync/medications", h.SyncMedications)
	g.POST("/sync/exams", h.SyncExams)
	g.POST("/sync/documents", h.SyncDocuments)
}

type errorBody struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, errorBody{Success: false, Error: code, Message: message})
}

// respondSyncError maps service errors onto the gateway's error
// taxonomy. Anything unrecognized is a 500 with no internals leaked.
func (h *Handler) respondSyncError(c echo.Context, err error) error {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "validation-error",
			Message: "payload validation failed",
			Errors:  vErr.Errors,
		})
	case errors.Is(err, patient.ErrNotFound):
		return fail(c, http.StatusNotFound, "patient-not-found", "no patient matches the given cpf")
	case errors.Is(err, consent.ErrConsentRequired):
		return fail(c, http.StatusForbidden, "consent-missing", "patient has not granted consent to this partner")
	default:
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("sync request failed")
		return fail(c, http.StatusInternalServerError, "internal-error", "internal server error")
	}
}

func (h *Handler) authenticate(c echo.Context) (*partner.Partner, error) {
	p, err := h.partners.Authenticate(c.Request().Context(), c.Request().Header.Get(APIKeyHeader))
	switch {
	case errors.Is(err, partner.ErrMissingKey):
		return nil, fail(c, http.StatusUnauthorized, "missing-key", "api key header is required")
	case errors.Is(err, partner.ErrInvalidKey):
		return nil, fail(c, http.StatusUnauthorized, "invalid-key", "api key is unknown, inactive or revoked")
	case err != nil:
		h.logger.Error().Err(err).Msg("partner authentication failed")
		return nil, fail(c, http.StatusInternalServerError, "internal-error", "internal server error")
	}
	return p, nil
}

func (h *Handler) SyncAppointments(c echo.Context) error {
	p, failResp := h.authenticate(c)
	if p == nil {
		return failResp
	}
	var req AppointmentsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid-json", "request body is not valid json")
	}
	res, err := h.sync.SyncAppointments(c.Request().Context(), p.ID, &req)
	if err != nil {
		return h.respondSyncError(c, err)
	}
	if res.Appointments == nil {
		res.Appointments = []*records.Appointment{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"message":      "appointments synchronized",
		"inserted":     res.Inserted,
		"updated":      res.Updated,
		"total":        res.Total,
		"appointments": res.Appointments,
	})
}

func (h *Handler) SyncMedications(c echo.Context) error {
	p, failResp := h.authenticate(c)
	if p == nil {
		return failResp
	}

	// The counter is charged on every authenticated request to this
	// route, before validation, successful or not.
	decision, err := h.partners.TakeRateLimit(c.Request().Context(), p.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("partner_id", p.ID.String()).Msg("rate limit check failed")
		return fail(c, http.StatusInternalServerError, "internal-error", "internal server error")
	}
	if !decision.Allowed {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
		return fail(c, http.StatusTooManyRequests, "rate-limited", "request quota exceeded for the current window")
	}

	var req MedicationsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid-json", "request body is not valid json")
	}
	res, err := h.sync.SyncMedications(c.Request().Context(), p.ID, &req)
	if err != nil {
		return h.respondSyncError(c, err)
	}
	if res.Medications == nil {
		res.Medications = []*records.Medication{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"message":     "medications synchronized",
		"inserted":    res.Inserted,
		"updated":     res.Updated,
		"total":       res.Total,
		"medications": res.Medications,
	})
}

func (h *Handler) SyncExams(c echo.Context) error {
	p, failResp := h.authenticate(c)
	if p == nil {
		return failResp
	}
	var req ExamsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid-json", "request body is not valid json")
	}
	res, err := h.sync.SyncExams(c.Request().Context(), p.ID, &req)
	if err != nil {
		return h.respondSyncError(c, err)
	}
	if res.Exams == nil {
		res.Exams = []*records.Exam{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"message":  "exams synchronized",
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"total":    res.Total,
		"exams":    res.Exams,
	})
}

func (h *Handler) SyncDocuments(c echo.Context) error {
	p, failResp := h.authenticate(c)
	if p == nil {
		return failResp
	}
	var req DocumentsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid-json", "request body is not valid json")
	}
	res, err := h.sync.SyncDocuments(c.Request().Context(), p.ID, &req)
	if err != nil {
		return h.respondSyncError(c, err)
	}
	if res.Documents == nil {
		res.Documents = []*records.Document{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"message":   "documents synchronized",
		"inserted":  res.Inserted,
		"updated":   res.Updated,
		"total":     res.Total,
		"documents": res.Documents,
	})
}
