package airquality

import "math"

// breakpoint maps a PM2.5 concentration band onto an AQI band.
type breakpoint struct {
	concLow  float64
	concHigh float64
	aqiLow   float64
	aqiHigh  float64
}

// pm25Breakpoints are ordered by ascending upper bound. Concentrations above
// the last row are extrapolated with that row's slope.
var pm25Breakpoints = []breakpoint{
	{concLow: 0, concHigh: 12, aqiLow: 0, aqiHigh: 50},
	{concLow: 12.1, concHigh: 35.4, aqiLow: 51, aqiHigh: 100},
	{concLow: 35.5, concHigh: 55.4, aqiLow: 101, aqiHigh: 150},
	{concLow: 55.5, concHigh: 150.4, aqiLow: 151, aqiHigh: 200},
	{concLow: 150.5, concHigh: 250.4, aqiLow: 201, aqiHigh: 300},
	{concLow: 250.5, concHigh: 350.4, aqiLow: 301, aqiHigh: 400},
}

// AQIFromPM25 converts a PM2.5 concentration in µg/m³ to an AQI value.
// The result is truncated, not rounded, and saturates at math.MaxInt.
// Negative input is not supported.
func AQIFromPM25(pm25 float64) int {
	bp := pm25Breakpoints[len(pm25Breakpoints)-1]
	for _, b := range pm25Breakpoints {
		if pm25 <= b.concHigh {
			bp = b
			break
		}
	}

	aqi := ((pm25-bp.concLow)/(bp.concHigh-bp.concLow))*(bp.aqiHigh-bp.aqiLow) + bp.aqiLow
	if aqi >= math.MaxInt {
		return math.MaxInt
	}
	return int(aqi)
}

// Category is the health concern level of an AQI value.
type Category string

// AQI categories, from least to most severe.
const (
	CategoryGood                        Category = "Good"
	CategoryModerate                    Category = "Moderate"
	CategoryUnhealthyForSensitiveGroups Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy                   Category = "Unhealthy"
	CategoryVeryUnhealthy               Category = "Very Unhealthy"
	CategoryHazardous                   Category = "Hazardous"
)

// CategoryFor returns the category an AQI value falls into.
func CategoryFor(aqi int) Category {
	switch {
	case aqi <= 50:
		return CategoryGood
	case aqi <= 100:
		return CategoryModerate
	case aqi <= 150:
		return CategoryUnhealthyForSensitiveGroups
	case aqi <= 200:
		return CategoryUnhealthy
	case aqi <= 300:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}
