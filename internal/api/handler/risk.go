package handler

import (
	"net/http"

	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/api/response"
	"github.com/cleanairpk/cleanair/internal/risk"
	"github.com/cleanairpk/cleanair/internal/user"
)

// RiskHandler serves the stateless risk calculator.
type RiskHandler struct{}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler() *RiskHandler {
	return &RiskHandler{}
}

// Assess handles POST /v1/risk/assess.
func (h *RiskHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var input models.RiskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if fieldErrors := user.ValidateInput(toProfileInput(input)); len(fieldErrors) > 0 {
		response.Invalid(w, r, fieldErrors...)
		return
	}

	assessment := risk.Assess(risk.Profile{
		Age:                  input.Age,
		HasChronicConditions: input.HasChronicConditions,
		IsSmoker:             input.IsSmoker,
		DailyOutdoorHours:    input.DailyOutdoorHours,
	})
	response.JSON(w, r, http.StatusOK, toRiskAssessment(assessment))
}

func toProfileInput(in models.RiskInput) user.ProfileInput {
	return user.ProfileInput{
		Age:                  in.Age,
		HasChronicConditions: in.HasChronicConditions,
		IsSmoker:             in.IsSmoker,
		DailyOutdoorHours:    in.DailyOutdoorHours,
	}
}
