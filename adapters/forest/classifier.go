package forest

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Classifier is a random-forest classifier. It satisfies ports.CropClassifierModel.
type Classifier struct {
	e *Ensemble
}

// NewClassifier wraps a validated classifier ensemble.
func NewClassifier(e *Ensemble) (*Classifier, error) {
	if e.Kind != KindClassifier {
		return nil, fmt.Errorf("ensemble kind is %q, want %q", e.Kind, KindClassifier)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{e: e}, nil
}

func (c *Classifier) Columns() []string {
	out := make([]string, len(c.e.FeatureNames))
	copy(out, c.e.FeatureNames)
	return out
}

func (c *Classifier) Classes() []int {
	out := make([]int, len(c.e.Classes))
	copy(out, c.e.Classes)
	return out
}

// PredictProba averages each tree's normalized leaf distribution.
func (c *Classifier) PredictProba(row []float64) ([]float64, error) {
	if err := checkRow(row, c.e.FeatureNames); err != nil {
		return nil, err
	}
	proba := make([]float64, len(c.e.Classes))
	dist := make([]float64, len(c.e.Classes))
	for i := range c.e.Trees {
		copy(dist, c.e.Trees[i].leafValue(row))
		total := floats.Sum(dist)
		if total <= 0 {
			return nil, fmt.Errorf("tree %d reached a leaf with no samples", i)
		}
		floats.Scale(1/total, dist)
		floats.Add(proba, dist)
	}
	floats.Scale(1/float64(len(c.e.Trees)), proba)
	return proba, nil
}

// Predict returns the class with the highest averaged probability; ties go
// to the lowest class index.
func (c *Classifier) Predict(row []float64) (int, error) {
	proba, err := c.PredictProba(row)
	if err != nil {
		return 0, err
	}
	return c.e.Classes[floats.MaxIdx(proba)], nil
}
