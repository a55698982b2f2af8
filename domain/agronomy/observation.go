package agronomy

import "math"

// Default dosage baselines used by the optimizer when the observation carries none.
const (
	DefaultFertilizerBaseline = 100.0
	DefaultPesticideBaseline  = 10.0
)

// Observation is one soil/environment snapshot submitted for advice.
// Values are produced by the ingestion boundary and treated as immutable;
// use WithDosage to derive a modified copy.
type Observation struct {
	N           float64  `json:"N"`
	P           float64  `json:"P"`
	K           float64  `json:"K"`
	PH          float64  `json:"pH"`
	Temperature float64  `json:"Temperature"`
	Humidity    float64  `json:"Humidity"`
	Rainfall    float64  `json:"Rainfall"`
	SoilType    SoilType `json:"Soil_Type"`
	CurrentCrop Crop     `json:"Current_Crop,omitempty"`
	Fertilizer  *float64 `json:"Fertilizer,omitempty"`
	Pesticide   *float64 `json:"Pesticide,omitempty"`
}

// Nutrient returns the reading for n and whether it is usable (not NaN).
func (o Observation) Nutrient(n Nutrient) (float64, bool) {
	var v float64
	switch n {
	case NutrientN:
		v = o.N
	case NutrientP:
		v = o.P
	case NutrientK:
		v = o.K
	case NutrientPH:
		v = o.PH
	default:
		return 0, false
	}
	return v, !math.IsNaN(v)
}

// FertilizerOr returns the fertilizer dosage or def when absent.
func (o Observation) FertilizerOr(def float64) float64 {
	if o.Fertilizer == nil {
		return def
	}
	return *o.Fertilizer
}

// PesticideOr returns the pesticide dosage or def when absent.
func (o Observation) PesticideOr(def float64) float64 {
	if o.Pesticide == nil {
		return def
	}
	return *o.Pesticide
}

// WithDosage returns a copy with fertilizer and pesticide replaced.
func (o Observation) WithDosage(fertilizer, pesticide float64) Observation {
	o.Fertilizer = &fertilizer
	o.Pesticide = &pesticide
	return o
}

// Float returns a pointer to v, for optional dosage fields.
func Float(v float64) *float64 {
	return &v
}
