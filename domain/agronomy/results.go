package agronomy

// ClassificationResult is the classifier's suggestion for an observation.
type ClassificationResult struct {
	Crop               Crop    `json:"crop"`
	Confidence         float64 `json:"confidence"`          // 0-1, max class probability
	CompatibilityScore float64 `json:"compatibility_score"` // 0-100, model independent
}

// DosageCandidate is one trial point of the dosage grid search.
type DosageCandidate struct {
	Fertilizer     float64 `json:"fertilizer"`
	Pesticide      float64 `json:"pesticide"`
	PredictedYield float64 `json:"predicted_yield"`
}

// Comparison of the recommended crop's yield against the current crop's.
type Comparison string

const (
	ComparisonHigher Comparison = "Higher"
	ComparisonLower  Comparison = "Lower"
)

// CropSelection is the outcome of the best-fit crop entry point.
type CropSelection struct {
	ClassificationResult
	Fallback                bool        `json:"fallback,omitempty"`
	CurrentCrop             Crop        `json:"current_crop,omitempty"`
	PredictedYieldRecommend *float64    `json:"predicted_yield_recommended_crop,omitempty"`
	PredictedYieldCurrent   *float64    `json:"predicted_yield_current_crop,omitempty"`
	Comparison              *Comparison `json:"comparison,omitempty"`
}

// RecommendationReport is the current-crop analysis.
type RecommendationReport struct {
	CurrentCrop        Crop             `json:"current_crop"`
	CurrentYield       *float64         `json:"current_yield"`
	RecommendedCrop    *CropSelection   `json:"recommended_crop,omitempty"`
	OptimalDosage      *DosageCandidate `json:"optimal_dosage,omitempty"`
	NutrientNotes      []string         `json:"nutrient_notes,omitempty"`
	EnvironmentalNotes []string         `json:"environmental_notes,omitempty"`
	Recommendations    []string         `json:"recommendations"`
}

// Severity of a plot advisory
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)
