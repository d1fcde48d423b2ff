package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/api/response"
	"github.com/cleanairpk/cleanair/internal/forecast"
)

// ForecastHandler handles GET /v1/forecast.
type ForecastHandler struct {
	generator *forecast.Generator
}

// NewForecastHandler creates a new ForecastHandler.
func NewForecastHandler(generator *forecast.Generator) *ForecastHandler {
	return &ForecastHandler{generator: generator}
}

// GetForecast handles GET /v1/forecast?city=&hours=48.
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	hours, ok := queryInt(r.URL.Query().Get("hours"), forecast.DefaultHours)

	var fieldErrors []models.FieldError
	if city == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "city", Message: "is required", Code: "required"})
	}
	if !ok {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "hours", Message: "must be an integer", Code: "invalid"})
	}
	if len(fieldErrors) > 0 {
		response.Invalid(w, r, fieldErrors...)
		return
	}

	fc, err := h.generator.Forecast(city, hours)
	if err != nil {
		switch {
		case errors.Is(err, forecast.ErrInvalidHorizon):
			response.Invalid(w, r, models.FieldError{
				Field:   "hours",
				Message: "must be between 1 and " + strconv.Itoa(forecast.MaxHours),
				Code:    "out_of_range",
			})
		case errors.Is(err, forecast.ErrCityRequired):
			response.Invalid(w, r, models.FieldError{Field: "city", Message: "is required", Code: "required"})
		default:
			response.InternalError(w, r, "internal server error")
		}
		return
	}

	points := make([]models.ForecastPoint, len(fc.Points))
	for i, p := range fc.Points {
		points[i] = models.ForecastPoint{
			Timestamp:       models.Timestamp(p.Timestamp),
			PM25:            models.Round1(p.PM25),
			ConfidenceLower: models.Round1(p.ConfidenceLower),
			ConfidenceUpper: models.Round1(p.ConfidenceUpper),
			AQI:             p.AQI,
			Category:        string(p.Category),
		}
	}

	response.JSON(w, r, http.StatusOK, models.ForecastResponse{
		City:        fc.City,
		Hours:       fc.Hours,
		GeneratedAt: models.Timestamp(fc.GeneratedAt),
		Points:      points,
	})
}
