package prediction

import (
	"context"
	"strings"

	"crop-analytics-backend/internal/storage"
)

// Fallback is the rule-based estimator: a base yield scaled by temperature,
// rainfall and crop suitability factors. Deterministic and dependency-free.
type Fallback struct{}

const baseYieldQuintalPerHectare = 30.0

func temperatureFactor(temp float64) float64 {
	switch {
	case temp >= 20 && temp <= 30:
		return 1.0
	case temp < 15 || temp > 40:
		return 0.5
	case temp < 20 || temp > 35:
		return 0.7
	default:
		return 0.85
	}
}

func rainfallFactor(rainfall float64) float64 {
	switch {
	case rainfall >= 75 && rainfall <= 200:
		return 1.0
	case rainfall < 30 || rainfall > 400:
		return 0.4
	case rainfall < 50 || rainfall > 300:
		return 0.6
	default:
		return 0.8
	}
}

// cropFactor rewards crops grown in their preferred conditions and
// penalizes mismatches. Unknown crops are neutral.
func cropFactor(crop string, temp, rainfall float64) float64 {
	c := strings.ToLower(crop)
	switch {
	case strings.Contains(c, "rice"):
		if rainfall > 150 {
			return 1.2
		}
		return 0.9
	case strings.Contains(c, "wheat"):
		if temp >= 15 && temp <= 25 {
			return 1.1
		}
		return 0.8
	case strings.Contains(c, "maize"), strings.Contains(c, "corn"):
		if temp >= 20 && temp <= 30 && rainfall > 100 {
			return 1.15
		}
		return 0.85
	}
	return 1.0
}

func (Fallback) Predict(_ context.Context, req Request) (*Response, error) {
	temp := req.TemperatureC
	if temp == 0 {
		temp = 25
	}
	rainfall := req.RainfallMM
	if rainfall == 0 {
		rainfall = 100
	}
	area := req.AreaHectare
	if area == 0 {
		area = 1
	}

	tf := temperatureFactor(temp)
	rf := rainfallFactor(rainfall)
	cf := cropFactor(req.Crop, temp, rainfall)
	yield := storage.Round2(baseYieldQuintalPerHectare * tf * rf * cf)

	return &Response{
		PredictedYield:  yield,
		TotalProduction: storage.Round2(yield * area),
		FeaturesUsed: map[string]any{
			"crop":               req.Crop,
			"state":              req.State,
			"temperature":        temp,
			"rainfall":           rainfall,
			"temperature_factor": tf,
			"rainfall_factor":    rf,
			"crop_factor":        cf,
		},
		Note: "rule-based estimate",
	}, nil
}
