package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/api/response"
	"github.com/cleanairpk/cleanair/internal/telemetry"
)

// DefaultHistoryDays is used when the days parameter is omitted.
const DefaultHistoryDays = 7

// AQIHandler handles the public air quality endpoints.
type AQIHandler struct {
	service     *airquality.Service
	history     *airquality.HistoryGenerator
	instruments *telemetry.Instruments
	logger      zerolog.Logger
}

// NewAQIHandler creates a new AQIHandler. instruments may be nil.
func NewAQIHandler(service *airquality.Service, history *airquality.HistoryGenerator, instruments *telemetry.Instruments, logger zerolog.Logger) *AQIHandler {
	return &AQIHandler{service: service, history: history, instruments: instruments, logger: logger}
}

// Current handles GET /v1/aqi/current - latest readings, optionally for one city.
func (h *AQIHandler) Current(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))

	snapshot, err := h.service.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load readings")
		response.ServiceUnavailable(w, r, "air quality data unavailable")
		return
	}

	h.instruments.RecordReadingsServed(r.Context(), snapshot.Source, snapshot.IsSample())

	readings := snapshot.ReadingList(city)
	items := make([]models.Reading, len(readings))
	for i, reading := range readings {
		items[i] = toReading(reading)
	}

	response.JSON(w, r, http.StatusOK, models.CurrentAQIResponse{
		Items:     items,
		Source:    snapshot.Source,
		FetchedAt: models.Timestamp(snapshot.FetchedAt),
	})
}

// Stations handles GET /v1/aqi/stations.
func (h *AQIHandler) Stations(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load stations")
		response.ServiceUnavailable(w, r, "air quality data unavailable")
		return
	}

	stations := snapshot.StationList()
	items := make([]models.Station, len(stations))
	for i, s := range stations {
		items[i] = toStation(s)
	}

	response.JSON(w, r, http.StatusOK, models.StationsResponse{Items: items, Source: snapshot.Source})
}

// Historical handles GET /v1/aqi/historical/{stationId}?days=7.
func (h *AQIHandler) Historical(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")

	days, ok := queryInt(r.URL.Query().Get("days"), DefaultHistoryDays)
	if !ok {
		response.Invalid(w, r, models.FieldError{Field: "days", Message: "must be an integer", Code: "invalid"})
		return
	}

	history, err := h.history.Generate(stationID, days)
	if err != nil {
		if errors.Is(err, airquality.ErrInvalidHistoryRange) {
			response.Invalid(w, r, models.FieldError{Field: "days", Message: "must be between 1 and " + strconv.Itoa(airquality.MaxHistoryDays), Code: "out_of_range"})
			return
		}
		response.InternalError(w, r, "internal server error")
		return
	}

	points := make([]models.HistoryPoint, len(history.Points))
	for i, p := range history.Points {
		points[i] = models.HistoryPoint{
			Timestamp: models.Timestamp(p.Timestamp),
			PM25:      models.Round1(p.PM25),
			AQI:       p.AQI,
		}
	}

	response.JSON(w, r, http.StatusOK, models.HistoryResponse{
		StationID: history.StationID,
		Days:      days,
		Points:    points,
	})
}

// Convert handles GET /v1/aqi/convert?pm25= - PM2.5 to AQI conversion.
func (h *AQIHandler) Convert(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("pm25")
	if raw == "" {
		response.Invalid(w, r, models.FieldError{Field: "pm25", Message: "is required", Code: "required"})
		return
	}

	pm25, err := strconv.ParseFloat(raw, 64)
	if err != nil || pm25 < 0 || math.IsNaN(pm25) || math.IsInf(pm25, 0) {
		response.Invalid(w, r, models.FieldError{Field: "pm25", Message: "must be a non-negative number", Code: "invalid"})
		return
	}

	aqi := airquality.AQIFromPM25(pm25)
	response.JSON(w, r, http.StatusOK, models.ConversionResponse{
		PM25:     pm25,
		AQI:      aqi,
		Category: string(airquality.CategoryFor(aqi)),
	})
}
