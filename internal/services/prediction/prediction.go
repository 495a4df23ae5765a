// Package prediction estimates crop yield from environmental inputs. A
// remote model service is preferred when configured; a rule-based estimator
// answers when the remote is absent or failing, so the endpoint always
// returns a number.
package prediction

import (
	"context"
	"log"
)

// Request carries the prediction inputs. Zero values are meaningful
// defaults, not missing data. The JSON keys are the wire contract shared
// with external predictor services; renaming one breaks those collaborators
// silently, since they substitute defaults for keys they don't recognize.
type Request struct {
	Crop             string  `json:"crop"`
	State            string  `json:"state"`
	Year             int     `json:"year"`
	RainfallMM       float64 `json:"rainfall"`
	TemperatureC     float64 `json:"temperature"`
	PesticidesTonnes float64 `json:"pesticides_tonnes"`
	AreaHectare      float64 `json:"areaHectare"`
}

// Response is the shape both strategies produce.
type Response struct {
	PredictedYield  float64        `json:"predicted_yield_quintal_per_hectare"`
	TotalProduction float64        `json:"total_predicted_production"`
	FeaturesUsed    map[string]any `json:"features_used"`
	Note            string         `json:"note"`
}

// Strategy is one way of producing a yield estimate.
type Strategy interface {
	Predict(ctx context.Context, req Request) (*Response, error)
}

// Service picks the remote model when available and falls back to the
// rule-based estimator on any remote failure.
type Service struct {
	remote   Strategy // nil when no predictor URL is configured
	fallback Strategy
}

func NewService(remote Strategy) *Service {
	return &Service{remote: remote, fallback: Fallback{}}
}

func (s *Service) Predict(ctx context.Context, req Request) (*Response, error) {
	if s.remote != nil {
		resp, err := s.remote.Predict(ctx, req)
		if err == nil {
			return resp, nil
		}
		log.Printf("remote yield prediction failed, using fallback: %v", err)
	}
	return s.fallback.Predict(ctx, req)
}
