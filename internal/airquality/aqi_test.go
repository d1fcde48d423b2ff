package airquality_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleanairpk/cleanair/internal/airquality"
)

func TestAQIFromPM25_ReferencePoints(t *testing.T) {
	tests := []struct {
		pm25 float64
		want int
	}{
		{0, 0},
		{6, 25},
		{12, 50},
		{12.1, 51},
		{35.4, 100},
		{35.5, 101},
		{55.4, 150},
		{55.5, 151},
		{150.4, 200},
		{150.5, 201},
		{250.4, 300},
		{250.5, 301},
		{350.4, 400},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, airquality.AQIFromPM25(tt.pm25), "pm25=%v", tt.pm25)
	}
}

func TestAQIFromPM25_Truncates(t *testing.T) {
	// 20 µg/m³ -> 67.61... in the second band
	assert.Equal(t, 67, airquality.AQIFromPM25(20))
	// 100 µg/m³ -> 173.97... in the fourth band
	assert.Equal(t, 173, airquality.AQIFromPM25(100))
}

func TestAQIFromPM25_BreakpointGaps(t *testing.T) {
	// Values between two rows fall into the higher row and stay at the lower edge.
	assert.Equal(t, 50, airquality.AQIFromPM25(12.05))
	assert.Equal(t, 100, airquality.AQIFromPM25(35.45))
	assert.Equal(t, 150, airquality.AQIFromPM25(55.45))
}

func TestAQIFromPM25_ExtrapolatesAboveTable(t *testing.T) {
	assert.Equal(t, 449, airquality.AQIFromPM25(400))
	assert.Greater(t, airquality.AQIFromPM25(600), 400)
}

func TestAQIFromPM25_Monotonic(t *testing.T) {
	prev := airquality.AQIFromPM25(0)
	for i := 1; i <= 6000; i++ {
		pm25 := float64(i) * 0.1
		got := airquality.AQIFromPM25(pm25)
		if !assert.GreaterOrEqual(t, got, prev, "pm25=%v", pm25) {
			return
		}
		prev = got
	}

	for _, pm25 := range []float64{1e17, 1e19, 1e300, math.MaxFloat64} {
		got := airquality.AQIFromPM25(pm25)
		assert.GreaterOrEqual(t, got, prev, "pm25=%v", pm25)
		prev = got
	}
	assert.Equal(t, math.MaxInt, prev)
}

func TestAQIFromPM25_Deterministic(t *testing.T) {
	for _, pm25 := range []float64{3.3, 47.9, 123.456, 299.99} {
		assert.Equal(t, airquality.AQIFromPM25(pm25), airquality.AQIFromPM25(pm25))
	}
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		aqi  int
		want airquality.Category
	}{
		{0, airquality.CategoryGood},
		{50, airquality.CategoryGood},
		{51, airquality.CategoryModerate},
		{100, airquality.CategoryModerate},
		{101, airquality.CategoryUnhealthyForSensitiveGroups},
		{150, airquality.CategoryUnhealthyForSensitiveGroups},
		{151, airquality.CategoryUnhealthy},
		{200, airquality.CategoryUnhealthy},
		{201, airquality.CategoryVeryUnhealthy},
		{300, airquality.CategoryVeryUnhealthy},
		{301, airquality.CategoryHazardous},
		{999, airquality.CategoryHazardous},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, airquality.CategoryFor(tt.aqi), "aqi=%d", tt.aqi)
	}
}
