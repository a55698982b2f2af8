package ports

import (
	"github.com/google/uuid"

	"cropadvisor/domain/agronomy"
)

// CropClassifierModel is a trained multi-class model queried with a feature
// row laid out in Columns() order. Class labels are vocabulary codes.
type CropClassifierModel interface {
	Columns() []string
	Classes() []int
	// Predict returns the arg-max class label
	Predict(row []float64) (int, error)
	// PredictProba returns one probability per entry of Classes()
	PredictProba(row []float64) ([]float64, error)
}

// YieldModel is a trained regression model predicting yield for one feature row.
type YieldModel interface {
	Columns() []string
	Predict(row []float64) (float64, error)
}

// DeviationMode selects how the classifier's nutrient deviation features are normalized.
type DeviationMode string

const (
	// DeviationSingleRow divides by max-min of the request batch (a single
	// row), so the denominator is epsilon alone. This is what the deployed
	// classifiers were fed at inference time.
	DeviationSingleRow DeviationMode = "single_row"
	// DeviationPopulation divides by a spread recorded at training time.
	DeviationPopulation DeviationMode = "population"
)

// DeviationStats parameterizes deviation features.
type DeviationStats struct {
	Mode    DeviationMode
	Spreads map[agronomy.Nutrient]float64 // population mode only
}

// ModelContext is the immutable set of loaded artifacts every adapter reads.
// Build it once and share it; nothing mutates it after construction.
type ModelContext struct {
	ID         uuid.UUID
	Version    string
	Classifier CropClassifierModel
	Regressor  YieldModel
	Crops      agronomy.CropVocabulary
	SoilTypes  []agronomy.SoilType
	References *agronomy.ReferenceTable
	Deviation  DeviationStats
}
