// Package forest evaluates tree ensembles exported from scikit-learn.
//
// Each tree is stored in the estimator's flat `tree_` layout: parallel
// children_left / children_right / feature / threshold arrays plus a value
// row per node. A node is a leaf when children_left is -1. Samples go left
// when row[feature] <= threshold.
package forest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Kind of ensemble
type Kind string

const (
	KindClassifier Kind = "classifier"
	KindRegressor  Kind = "regressor"
)

const leaf = -1

// Tree is a single decision tree in flat array form.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Ensemble is the on-disk artifact.
type Ensemble struct {
	Kind         Kind     `json:"kind"`
	FeatureNames []string `json:"feature_names"`
	Classes      []int    `json:"classes,omitempty"`
	Trees        []Tree   `json:"trees"`
}

// Decode reads and validates an ensemble.
func Decode(r io.Reader) (*Ensemble, error) {
	var e Ensemble
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode ensemble: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadFile decodes an ensemble from path.
func LoadFile(path string) (*Ensemble, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ensemble: %w", err)
	}
	defer f.Close()
	e, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// Validate checks array shapes and node references so evaluation never
// indexes out of range.
func (e *Ensemble) Validate() error {
	if len(e.FeatureNames) == 0 {
		return fmt.Errorf("ensemble has no feature names")
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("ensemble has no trees")
	}
	width := 1
	switch e.Kind {
	case KindClassifier:
		if len(e.Classes) == 0 {
			return fmt.Errorf("classifier has no classes")
		}
		width = len(e.Classes)
	case KindRegressor:
	default:
		return fmt.Errorf("unknown ensemble kind %q", e.Kind)
	}

	for ti, t := range e.Trees {
		n := len(t.ChildrenLeft)
		if n == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return fmt.Errorf("tree %d has mismatched array lengths", ti)
		}
		for node := 0; node < n; node++ {
			l, r := t.ChildrenLeft[node], t.ChildrenRight[node]
			if l == leaf {
				if len(t.Value[node]) != width {
					return fmt.Errorf("tree %d leaf %d has %d values, want %d", ti, node, len(t.Value[node]), width)
				}
				continue
			}
			// children always come after their parent in sklearn's layout
			if l <= node || l >= n || r <= node || r >= n {
				return fmt.Errorf("tree %d node %d has invalid children %d/%d", ti, node, l, r)
			}
			if f := t.Feature[node]; f < 0 || f >= len(e.FeatureNames) {
				return fmt.Errorf("tree %d node %d splits on unknown feature %d", ti, node, f)
			}
		}
	}
	return nil
}

// leafValue walks t for row and returns the reached leaf's value row.
func (t *Tree) leafValue(row []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

func checkRow(row []float64, features []string) error {
	if len(row) != len(features) {
		return fmt.Errorf("feature row has %d values, model expects %d", len(row), len(features))
	}
	return nil
}
