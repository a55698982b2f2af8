package forest

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Regressor is a random-forest regressor. It satisfies ports.YieldModel.
type Regressor struct {
	e *Ensemble
}

// NewRegressor wraps a validated regressor ensemble.
func NewRegressor(e *Ensemble) (*Regressor, error) {
	if e.Kind != KindRegressor {
		return nil, fmt.Errorf("ensemble kind is %q, want %q", e.Kind, KindRegressor)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &Regressor{e: e}, nil
}

func (r *Regressor) Columns() []string {
	out := make([]string, len(r.e.FeatureNames))
	copy(out, r.e.FeatureNames)
	return out
}

// Predict is the mean of the trees' leaf values.
func (r *Regressor) Predict(row []float64) (float64, error) {
	if err := checkRow(row, r.e.FeatureNames); err != nil {
		return 0, err
	}
	outputs := make([]float64, len(r.e.Trees))
	for i := range r.e.Trees {
		outputs[i] = r.e.Trees[i].leafValue(row)[0]
	}
	return stat.Mean(outputs, nil), nil
}
