package service

import "QuantPulse/internal/domain/models"

// Predictor turns a feature snapshot into a directional call. Predictors
// are pure and deterministic; an error from any of them aborts the whole
// generation attempt.
type Predictor interface {
	Name() string
	Predict(features models.FeatureSnapshot) (models.PredictorOutput, error)
}
