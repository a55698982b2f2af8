// Package inference adapts the loaded statistical models to domain calls.
// Model failures, including panics, surface as MODEL_INFERENCE_ERROR.
package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/compat"
	"cropadvisor/internal/errors"
	"cropadvisor/internal/features"
	"cropadvisor/internal/metrics"
	"cropadvisor/ports"
)

const (
	modelClassifier = "classifier"
	modelRegressor  = "regressor"
)

// Classifier suggests the best-fit crop for an observation.
type Classifier struct {
	mc       *ports.ModelContext
	features *features.Builder
	scorer   *compat.Scorer
	metrics  *metrics.Metrics
}

func NewClassifier(mc *ports.ModelContext, fb *features.Builder, scorer *compat.Scorer, m *metrics.Metrics) *Classifier {
	return &Classifier{mc: mc, features: fb, scorer: scorer, metrics: m}
}

// Classify returns the arg-max crop, its probability and a model-independent
// compatibility score computed on the raw readings.
func (c *Classifier) Classify(obs agronomy.Observation) (agronomy.ClassificationResult, error) {
	row := c.features.BuildClassification(obs).Values()

	var (
		label int
		proba []float64
	)
	err := guard(func() error {
		var err error
		if label, err = c.mc.Classifier.Predict(row); err != nil {
			return err
		}
		proba, err = c.mc.Classifier.PredictProba(row)
		return err
	})
	if err == nil && len(proba) == 0 {
		err = fmt.Errorf("empty probability distribution")
	}
	if err == nil {
		for i, p := range proba {
			if !finite(p) {
				err = fmt.Errorf("probability %d is %v", i, p)
				break
			}
		}
	}
	if err != nil {
		c.metrics.InferenceError(modelClassifier)
		return agronomy.ClassificationResult{}, errors.ModelInference(modelClassifier, err)
	}

	crop, ok := c.mc.Crops.Decode(label)
	if !ok {
		c.metrics.InferenceError(modelClassifier)
		return agronomy.ClassificationResult{}, errors.ModelInference(modelClassifier,
			fmt.Errorf("predicted class %d has no crop mapping", label))
	}

	return agronomy.ClassificationResult{
		Crop:               crop,
		Confidence:         floats.Max(proba),
		CompatibilityScore: c.scorer.Score(crop, obs),
	}, nil
}

// Regressor predicts yield for an observation under a given crop.
type Regressor struct {
	mc       *ports.ModelContext
	features *features.Builder
	metrics  *metrics.Metrics
}

func NewRegressor(mc *ports.ModelContext, fb *features.Builder, m *metrics.Metrics) *Regressor {
	return &Regressor{mc: mc, features: fb, metrics: m}
}

// PredictYield fails with UNKNOWN_CROP for crops outside the vocabulary and
// MODEL_INFERENCE_ERROR when the model itself fails. The prediction is
// passed through unclamped.
func (r *Regressor) PredictYield(obs agronomy.Observation, crop agronomy.Crop) (float64, error) {
	vec, err := r.features.BuildYield(obs, crop)
	if err != nil {
		return 0, err
	}

	var y float64
	err = guard(func() error {
		var err error
		y, err = r.mc.Regressor.Predict(vec.Values())
		if err == nil && !finite(y) {
			err = fmt.Errorf("yield is %v", y)
		}
		return err
	})
	if err != nil {
		r.metrics.InferenceError(modelRegressor)
		return 0, errors.ModelInference(modelRegressor, err)
	}
	return y, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	return fn()
}
