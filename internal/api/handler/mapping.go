package handler

import (
	"strconv"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/alert"
	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/risk"
	"github.com/cleanairpk/cleanair/internal/user"
)

func toReading(r *airquality.Reading) models.Reading {
	return models.Reading{
		StationID:  r.StationID,
		City:       r.City,
		PM25:       models.Round1(r.PM25),
		Unit:       airquality.UnitMicrogramsPerCubicMeter,
		AQI:        r.AQI,
		Category:   string(airquality.CategoryFor(r.AQI)),
		ObservedAt: models.Timestamp(r.ObservedAt),
	}
}

func toStation(s *airquality.Station) models.Station {
	return models.Station{
		ID:        s.ID,
		Name:      s.Name,
		City:      s.City,
		Lat:       s.Lat,
		Lon:       s.Lon,
		UpdatedAt: models.Timestamp(s.UpdatedAt),
	}
}

func toAlert(a *alert.Alert) models.Alert {
	return models.Alert{
		ID:        a.ID,
		City:      a.City,
		Kind:      string(a.Kind),
		Message:   a.Message,
		AQILevel:  a.AQILevel,
		IsRead:    a.IsRead,
		CreatedAt: models.Timestamp(a.CreatedAt),
	}
}

func toAlerts(alerts []*alert.Alert) []models.Alert {
	out := make([]models.Alert, len(alerts))
	for i, a := range alerts {
		out[i] = toAlert(a)
	}
	return out
}

func toRiskAssessment(a risk.Assessment) models.RiskAssessment {
	return models.RiskAssessment{
		Score:    a.Score,
		MaxScore: risk.MaxScore,
		Category: string(a.Category),
		Label:    a.Category.Label(),
		Advice:   a.Advice,
	}
}

func toProfile(p *user.Profile) models.Profile {
	return models.Profile{
		RiskInput: models.RiskInput{
			Age:                  p.Age,
			HasChronicConditions: p.HasChronicConditions,
			IsSmoker:             p.IsSmoker,
			DailyOutdoorHours:    p.DailyOutdoorHours,
		},
		Risk:           toRiskAssessment(p.Risk),
		AlertThreshold: p.AlertThreshold,
		CreatedAt:      models.Timestamp(p.CreatedAt),
		UpdatedAt:      models.Timestamp(p.UpdatedAt),
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
