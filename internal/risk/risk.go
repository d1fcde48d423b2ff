// Package risk scores a person's sensitivity to air pollution from a few
// demographic and behavioural factors.
package risk

// Category is a coarse risk level derived from the score.
type Category string

// Risk categories, highest first.
const (
	CategoryHigh     Category = "HighRisk"
	CategoryModerate Category = "ModerateRisk"
	CategoryLow      Category = "LowRisk"
	CategoryVeryLow  Category = "VeryLowRisk"
)

// MaxScore is the highest score Assess can produce.
const MaxScore = 11

var advice = map[Category]string{
	CategoryHigh:     "Limit outdoor activities, use N95 masks, monitor AQI regularly, consider air purifiers",
	CategoryModerate: "Reduce prolonged outdoor exposure, check AQI before activities, consider masks on bad air days",
	CategoryLow:      "Generally safe but monitor air quality during high pollution periods",
	CategoryVeryLow:  "Minimal risk but maintain awareness of air quality conditions",
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	switch c {
	case CategoryHigh:
		return "High Risk"
	case CategoryModerate:
		return "Moderate Risk"
	case CategoryLow:
		return "Low Risk"
	default:
		return "Very Low Risk"
	}
}

// Profile holds the factors that feed the score.
// A nil Age contributes nothing, the same as an age below 30.
type Profile struct {
	Age                  *int
	HasChronicConditions bool
	IsSmoker             bool
	DailyOutdoorHours    int
}

// Assessment is the derived score with its category and advice.
type Assessment struct {
	Score    int
	Category Category
	Advice   string
}

// Assess computes the additive risk score for a profile.
func Assess(p Profile) Assessment {
	score := 0
	if p.Age != nil {
		score += ageScore(*p.Age)
	}
	if p.HasChronicConditions {
		score += 3
	}
	if p.IsSmoker {
		score += 2
	}
	score += exposureScore(p.DailyOutdoorHours)

	category := CategoryFor(score)
	return Assessment{
		Score:    score,
		Category: category,
		Advice:   advice[category],
	}
}

// CategoryFor maps a score to its category. Boundaries are 3, 5 and 8.
func CategoryFor(score int) Category {
	switch {
	case score >= 8:
		return CategoryHigh
	case score >= 5:
		return CategoryModerate
	case score >= 3:
		return CategoryLow
	default:
		return CategoryVeryLow
	}
}

// AdviceFor returns the fixed advice text for a category.
func AdviceFor(c Category) string {
	return advice[c]
}

func ageScore(age int) int {
	switch {
	case age >= 65:
		return 3
	case age >= 50:
		return 2
	case age >= 30:
		return 1
	default:
		return 0
	}
}

func exposureScore(hours int) int {
	switch {
	case hours >= 8:
		return 3
	case hours >= 4:
		return 2
	case hours >= 2:
		return 1
	default:
		return 0
	}
}
