package advisor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cropadvisor/domain/agronomy"
)

// Environmental advisory texts, one per triggered threshold.
const (
	noteLowRainfall     = "Low rainfall detected; consider irrigation or drought-tolerant crops."
	noteHighRainfall    = "High rainfall detected; ensure proper drainage to avoid root rot."
	noteLowTemperature  = "Low temperature; consider cool-season crops like wheat or barley."
	noteHighTemperature = "High temperature; consider heat-tolerant crops such as sorghum or millet."
	noteLowHumidity     = "Low humidity; crops may experience water stress. Ensure adequate soil moisture."
	noteHighHumidity    = "High humidity; monitor for fungal diseases and improve airflow if possible."
)

// GenerateReport analyses the observation's current crop. The notes are
// emitted in a fixed order: nutrient notes (N, P, K, pH), the dosage note,
// environmental notes (rainfall, temperature, humidity), then the yield line.
//
// A current crop the model cannot encode gets neither a yield nor a dosage
// note. A failed current-yield prediction leaves CurrentYield nil and a failed
// dosage search drops the dosage note; neither aborts the report. The only
// error returned is the context's.
func (a *Advisor) GenerateReport(ctx context.Context, obs agronomy.Observation) (agronomy.RecommendationReport, error) {
	start := time.Now()
	defer a.metrics.ObserveSince("generate_report", start)

	crop := obs.CurrentCrop
	report := agronomy.RecommendationReport{CurrentCrop: crop, Recommendations: []string{}}

	predictable := !crop.IsEmpty()
	if predictable && a.crops != nil && !a.crops.Contains(crop) {
		a.logger.Warn("current crop %s is not in the model vocabulary, skipping yield and dosage", crop)
		predictable = false
	}

	var currentYield *float64
	if predictable {
		y, err := a.regressor.PredictYield(obs, crop)
		if err != nil {
			a.logger.Warn("current yield prediction for %s failed: %v", crop, err)
		} else {
			currentYield = &y
			rounded := round2(y)
			report.CurrentYield = &rounded
		}
	}

	report.NutrientNotes = a.nutrientNotes(obs, crop)
	report.Recommendations = append(report.Recommendations, report.NutrientNotes...)

	if predictable {
		best, err := a.optimizer.Optimize(ctx, obs, crop)
		switch {
		case ctx.Err() != nil:
			return agronomy.RecommendationReport{}, ctx.Err()
		case err != nil:
			a.logger.Warn("dosage search for %s failed, omitting dosage note: %v", crop, err)
		default:
			report.OptimalDosage = &best
			report.Recommendations = append(report.Recommendations, dosageNote(crop, best, currentYield))
		}
	}

	report.EnvironmentalNotes = EnvironmentalNotes(obs, a.opts.Thresholds)
	report.Recommendations = append(report.Recommendations, report.EnvironmentalNotes...)

	if currentYield != nil {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Estimated yield for current crop (%s): %.2f units", crop, *currentYield))
	}

	return report, nil
}

// nutrientNotes compares each reading with the crop's optimal range. Crops
// without a reference entry get no notes.
func (a *Advisor) nutrientNotes(obs agronomy.Observation, crop agronomy.Crop) []string {
	ref, ok := a.refs.Lookup(crop)
	if !ok {
		return nil
	}

	var notes []string
	for _, n := range agronomy.Nutrients {
		rng, defined := ref.Range(n)
		value, usable := obs.Nutrient(n)
		if !defined || !usable {
			continue
		}
		switch {
		case value < rng.Min:
			notes = append(notes, fmt.Sprintf("%s is below optimal (%s). Increase %s to the %s range for %s.",
				n, n.Format(value), strings.ToLower(string(n)), n.FormatRange(rng), crop))
		case value > rng.Max:
			notes = append(notes, fmt.Sprintf("%s is above optimal (%s). Reduce %s to the %s range for %s.",
				n, n.Format(value), strings.ToLower(string(n)), n.FormatRange(rng), crop))
		}
	}
	return notes
}

func dosageNote(crop agronomy.Crop, best agronomy.DosageCandidate, currentYield *float64) string {
	note := fmt.Sprintf("For your current crop (%s): Optimal Fertilizer=%.1f, Pesticide=%.1f, predicted yield=%.2f units",
		crop, best.Fertilizer, best.Pesticide, best.PredictedYield)
	if currentYield != nil && *currentYield > 0 {
		improvement := (best.PredictedYield - *currentYield) / *currentYield * 100
		note += fmt.Sprintf(" (Yield improvement: %.1f%%)", improvement)
	}
	return note
}

// EnvironmentalNotes applies the rainfall, temperature and humidity rules.
// The rules are independent; each contributes at most one note.
func EnvironmentalNotes(obs agronomy.Observation, th agronomy.Thresholds) []string {
	var notes []string
	switch {
	case obs.Rainfall < th.RainfallLow:
		notes = append(notes, noteLowRainfall)
	case obs.Rainfall > th.RainfallHigh:
		notes = append(notes, noteHighRainfall)
	}
	switch {
	case obs.Temperature < th.TemperatureLow:
		notes = append(notes, noteLowTemperature)
	case obs.Temperature > th.TemperatureHigh:
		notes = append(notes, noteHighTemperature)
	}
	switch {
	case obs.Humidity < th.HumidityLow:
		notes = append(notes, noteLowHumidity)
	case obs.Humidity > th.HumidityHigh:
		notes = append(notes, noteHighHumidity)
	}
	return notes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
