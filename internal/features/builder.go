package features

import (
	"math"

	"github.com/montanaflynn/stats"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/errors"
	"cropadvisor/ports"
)

// Epsilon keeps ratio and deviation denominators away from zero.
const Epsilon = 1e-5

// Column names shared with the offline training pipeline.
const (
	ColN           = "N"
	ColP           = "P"
	ColK           = "K"
	ColPH          = "pH"
	ColTemperature = "Temperature"
	ColHumidity    = "Humidity"
	ColRainfall    = "Rainfall"
	ColFertilizer  = "Fertilizer"
	ColPesticide   = "Pesticide"
	ColNPRatio     = "N_P_ratio"
	ColKNRatio     = "K_N_ratio"
	ColPHSquared   = "pH_squared"
	ColCropEncoded = "crop_encoded"
	SoilPrefix     = "soil_"
	DevSuffix      = "_dev"
)

// Builder turns observations into the feature rows the loaded models expect.
type Builder struct {
	mc           *ports.ModelContext
	overallMeans map[agronomy.Nutrient]float64
	// soil key -> vocabulary spelling, which names the one-hot column
	soils map[string]agronomy.SoilType
}

// NewBuilder precomputes the per-nutrient mean of optimal-range midpoints
// across every reference crop.
func NewBuilder(mc *ports.ModelContext) (*Builder, error) {
	b := &Builder{
		mc:           mc,
		overallMeans: make(map[agronomy.Nutrient]float64, len(agronomy.Nutrients)),
		soils:        make(map[string]agronomy.SoilType, len(mc.SoilTypes)),
	}
	for _, soil := range mc.SoilTypes {
		b.soils[soil.Key()] = soil
	}
	for _, n := range agronomy.Nutrients {
		mean, err := stats.Mean(mc.References.Midpoints(n))
		if err != nil {
			return nil, errors.ModelArtifact("reference table has no "+string(n)+" ranges", err)
		}
		b.overallMeans[n] = mean
	}
	return b, nil
}

// OverallMean exposes the deviation centre for a nutrient.
func (b *Builder) OverallMean(n agronomy.Nutrient) float64 {
	return b.overallMeans[n]
}

// BuildClassification produces the classifier's feature row.
func (b *Builder) BuildClassification(obs agronomy.Observation) Vector {
	raw := b.baseColumns(obs)
	if obs.Fertilizer != nil {
		raw[ColFertilizer] = *obs.Fertilizer
	}
	if obs.Pesticide != nil {
		raw[ColPesticide] = *obs.Pesticide
	}
	for _, n := range agronomy.Nutrients {
		v, _ := obs.Nutrient(n)
		raw[string(n)+DevSuffix] = b.deviations(n, []float64{v})[0]
	}
	return Reindex(raw, b.mc.Classifier.Columns())
}

// BuildYield produces the regressor's feature row for crop. Fails with
// UNKNOWN_CROP when crop is outside the model vocabulary.
func (b *Builder) BuildYield(obs agronomy.Observation, crop agronomy.Crop) (Vector, error) {
	code, ok := b.mc.Crops.Encode(crop)
	if !ok {
		return Vector{}, errors.UnknownCrop(crop.String())
	}

	raw := b.baseColumns(obs)
	raw[ColFertilizer] = obs.FertilizerOr(0)
	raw[ColPesticide] = obs.PesticideOr(0)
	raw[ColNPRatio] = obs.N / (obs.P + Epsilon)
	raw[ColKNRatio] = obs.K / (obs.N + Epsilon)
	raw[ColPHSquared] = obs.PH * obs.PH
	raw[ColCropEncoded] = float64(code)

	return Reindex(raw, b.mc.Regressor.Columns()), nil
}

func (b *Builder) baseColumns(obs agronomy.Observation) map[string]float64 {
	raw := map[string]float64{
		ColN:           obs.N,
		ColP:           obs.P,
		ColK:           obs.K,
		ColPH:          obs.PH,
		ColTemperature: obs.Temperature,
		ColHumidity:    obs.Humidity,
		ColRainfall:    obs.Rainfall,
	}
	for _, soil := range b.mc.SoilTypes {
		raw[SoilPrefix+string(soil)] = 0
	}
	if soil, ok := b.soils[obs.SoilType.Key()]; ok {
		raw[SoilPrefix+string(soil)] = 1
	}
	return raw
}

// deviations computes |v - overall mean| / (spread + Epsilon) for a batch of
// readings. In single-row mode the spread is max-min of the batch itself.
func (b *Builder) deviations(n agronomy.Nutrient, batch []float64) []float64 {
	spread := 0.0
	switch b.mc.Deviation.Mode {
	case ports.DeviationPopulation:
		spread = b.mc.Deviation.Spreads[n]
	default:
		hi, errHi := stats.Max(batch)
		lo, errLo := stats.Min(batch)
		if errHi == nil && errLo == nil {
			spread = hi - lo
		}
	}

	mean := b.overallMeans[n]
	out := make([]float64, len(batch))
	for i, v := range batch {
		out[i] = math.Abs(v-mean) / (spread + Epsilon)
	}
	return out
}
