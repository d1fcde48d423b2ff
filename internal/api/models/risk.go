package models

// RiskInput holds the health factors used to score exposure risk.
type RiskInput struct {
	Age                  *int `json:"age,omitempty"`
	HasChronicConditions bool `json:"hasChronicConditions"`
	IsSmoker             bool `json:"isSmoker"`
	DailyOutdoorHours    int  `json:"dailyOutdoorHours"`
}

// RiskAssessment is a scored risk with its advice.
type RiskAssessment struct {
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Advice   string `json:"advice"`
}
