package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleanairpk/cleanair/internal/risk"
)

func intPtr(v int) *int { return &v }

func TestAssess_Extremes(t *testing.T) {
	high := risk.Assess(risk.Profile{Age: intPtr(70), HasChronicConditions: true, IsSmoker: true, DailyOutdoorHours: 10})
	assert.Equal(t, risk.MaxScore, high.Score)
	assert.Equal(t, risk.CategoryHigh, high.Category)
	assert.Equal(t, risk.AdviceFor(risk.CategoryHigh), high.Advice)

	low := risk.Assess(risk.Profile{Age: intPtr(20)})
	assert.Equal(t, 0, low.Score)
	assert.Equal(t, risk.CategoryVeryLow, low.Category)
}

func TestAssess_MissingAgeContributesNothing(t *testing.T) {
	withoutAge := risk.Assess(risk.Profile{IsSmoker: true})
	young := risk.Assess(risk.Profile{Age: intPtr(18), IsSmoker: true})
	assert.Equal(t, young, withoutAge)
	assert.Equal(t, 2, withoutAge.Score)
}

func TestAssess_AgeTiers(t *testing.T) {
	tests := []struct {
		age  int
		want int
	}{
		{0, 0}, {29, 0}, {30, 1}, {49, 1}, {50, 2}, {64, 2}, {65, 3}, {99, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, risk.Assess(risk.Profile{Age: intPtr(tt.age)}).Score, "age %d", tt.age)
	}
}

func TestAssess_ExposureTiers(t *testing.T) {
	tests := []struct {
		hours int
		want  int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 2}, {7, 2}, {8, 3}, {24, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, risk.Assess(risk.Profile{DailyOutdoorHours: tt.hours}).Score, "hours %d", tt.hours)
	}
}

func TestCategoryFor_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  risk.Category
	}{
		{0, risk.CategoryVeryLow},
		{2, risk.CategoryVeryLow},
		{3, risk.CategoryLow},
		{4, risk.CategoryLow},
		{5, risk.CategoryModerate},
		{7, risk.CategoryModerate},
		{8, risk.CategoryHigh},
		{11, risk.CategoryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, risk.CategoryFor(tt.score), "score %d", tt.score)
	}
}

func TestAssess_ScoreWithinRange(t *testing.T) {
	for _, age := range []int{10, 35, 55, 80} {
		for _, hours := range []int{0, 2, 5, 9} {
			for _, chronic := range []bool{false, true} {
				for _, smoker := range []bool{false, true} {
					a := risk.Assess(risk.Profile{Age: intPtr(age), HasChronicConditions: chronic, IsSmoker: smoker, DailyOutdoorHours: hours})
					assert.GreaterOrEqual(t, a.Score, 0)
					assert.LessOrEqual(t, a.Score, risk.MaxScore)
					assert.Equal(t, risk.CategoryFor(a.Score), a.Category)
					assert.NotEmpty(t, a.Advice)
				}
			}
		}
	}
}

func TestCategory_Label(t *testing.T) {
	assert.Equal(t, "High Risk", risk.CategoryHigh.Label())
	assert.Equal(t, "Moderate Risk", risk.CategoryModerate.Label())
	assert.Equal(t, "Low Risk", risk.CategoryLow.Label())
	assert.Equal(t, "Very Low Risk", risk.CategoryVeryLow.Label())
}
