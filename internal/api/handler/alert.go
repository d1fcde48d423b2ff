package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/alert"
	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/api/response"
	"github.com/cleanairpk/cleanair/internal/telemetry"
)

// AlertHandler handles the authenticated alert endpoints.
type AlertHandler struct {
	alerts      *alert.Service
	instruments *telemetry.Instruments
	logger      zerolog.Logger
}

// NewAlertHandler creates a new AlertHandler. instruments may be nil.
func NewAlertHandler(alerts *alert.Service, instruments *telemetry.Instruments, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, instruments: instruments, logger: logger}
}

// ListAlerts handles GET /v1/me/alerts?limit=50 - newest first.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit, ok := queryInt(r.URL.Query().Get("limit"), alert.MaxListLimit)
	if !ok || limit < 1 {
		response.Invalid(w, r, models.FieldError{Field: "limit", Message: "must be a positive integer", Code: "invalid"})
		return
	}
	if limit > alert.MaxListLimit {
		limit = alert.MaxListLimit
	}

	alerts, unread, err := h.alerts.List(r.Context(), userID, limit)
	if err != nil {
		serverError(w, r, h.logger, err, "failed to list alerts")
		return
	}

	response.JSON(w, r, http.StatusOK, models.AlertList{
		Items:       toAlerts(alerts),
		UnreadCount: unread,
		Limit:       limit,
	})
}

// SetThreshold handles POST /v1/me/alerts/threshold.
func (h *AlertHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input models.ThresholdInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Threshold == nil {
		response.Invalid(w, r, models.FieldError{Field: "threshold", Message: "is required", Code: "required"})
		return
	}

	created, err := h.alerts.SetThreshold(r.Context(), userID, *input.Threshold)
	if err != nil {
		if errors.Is(err, alert.ErrInvalidThreshold) {
			response.Invalid(w, r, models.FieldError{
				Field:   "threshold",
				Message: "must be between " + strconv.Itoa(alert.MinThreshold) + " and " + strconv.Itoa(alert.MaxThreshold),
				Code:    "out_of_range",
			})
			return
		}
		serverError(w, r, h.logger, err, "failed to set alert threshold")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ThresholdResponse{
		Threshold: *input.Threshold,
		Alert:     toAlert(created),
	})
}

// CheckAlerts handles POST /v1/me/alerts/check - evaluate current readings now.
func (h *AlertHandler) CheckAlerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.alerts.CheckAlerts(r.Context(), userID)
	if err != nil {
		serverError(w, r, h.logger, err, "alert check failed")
		return
	}
	h.instruments.RecordAlertCheck(r.Context(), result.AlertsCreated)

	response.JSON(w, r, http.StatusOK, models.AlertCheckResponse{
		AlertsCreated: result.AlertsCreated,
		Message:       result.Message,
		Alerts:        toAlerts(result.Alerts),
	})
}

// MarkRead handles POST /v1/me/alerts/{alertId}/read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	alertID := chi.URLParam(r, "alertId")
	if err := h.alerts.MarkRead(r.Context(), userID, alertID); err != nil {
		if errors.Is(err, alert.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		serverError(w, r, h.logger.With().Str("alert_id", alertID).Logger(), err, "failed to mark alert read")
		return
	}

	response.NoContent(w, r)
}

// MarkAllRead handles POST /v1/me/alerts/read-all.
func (h *AlertHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	updated, err := h.alerts.MarkAllRead(r.Context(), userID)
	if err != nil {
		serverError(w, r, h.logger, err, "failed to mark alerts read")
		return
	}

	response.JSON(w, r, http.StatusOK, models.MarkAllReadResponse{Updated: updated})
}
