package advisor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cropadvisor/domain/agronomy"
	"cropadvisor/ports"
)

// Soil moisture bounds, in percent.
const (
	MoistureLow  = 30.0
	MoistureHigh = 80.0
)

// PlotAdvice is the advisory card for one plot.
type PlotAdvice struct {
	PlotID   string                         `json:"plot_id"`
	PlotName string                         `json:"plot_name"`
	CropName agronomy.Crop                  `json:"crop_name,omitempty"`
	Report   *agronomy.RecommendationReport `json:"report,omitempty"`
	Warnings []string                       `json:"warnings"`
	Actions  []string                       `json:"actions"`
	Severity agronomy.Severity              `json:"severity"`
	Error    string                         `json:"error,omitempty"`
}

// AdvisePlots generates a report per plot with bounded concurrency. Results
// keep the input order. A plot whose record could not be read, or whose
// report failed, carries the error text instead of a report but still gets
// its moisture warning.
func (a *Advisor) AdvisePlots(ctx context.Context, plots []ports.PlotObservation) ([]PlotAdvice, error) {
	start := time.Now()
	defer a.metrics.ObserveSince("advise_plots", start)

	out := make([]PlotAdvice, len(plots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.PlotWorkers)
	for i, plot := range plots {
		i, plot := i, plot
		g.Go(func() error {
			out[i] = a.advisePlot(gctx, plot)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Advisor) advisePlot(ctx context.Context, plot ports.PlotObservation) PlotAdvice {
	advice := PlotAdvice{
		PlotID:   plot.PlotID,
		PlotName: plot.PlotName,
		CropName: plot.Observation.CurrentCrop,
		Warnings: []string{},
		Actions:  []string{},
		Severity: agronomy.SeverityLow,
	}
	if advice.PlotName == "" {
		advice.PlotName = "Plot " + plot.PlotID
	}
	if plot.Err != nil {
		a.logger.Warn("no report for plot %s: %v", plot.PlotID, plot.Err)
		advice.Error = plot.Err.Error()
	} else if report, err := a.GenerateReport(ctx, plot.Observation); err != nil {
		advice.Error = err.Error()
	} else {
		advice.Report = &report
		advice.Warnings = append(advice.Warnings, report.NutrientNotes...)
		advice.Warnings = append(advice.Warnings, report.EnvironmentalNotes...)
	}

	// Moisture comes straight from the sensor row, so it is judged even when
	// the rest of the observation is incomplete.
	if plot.Moisture != nil {
		warning, action := moistureAdvice(*plot.Moisture)
		if warning != "" {
			advice.Warnings = append(advice.Warnings, warning)
			advice.Actions = append(advice.Actions, action)
		}
	}
	if len(advice.Warnings) > 0 {
		advice.Severity = agronomy.SeverityHigh
	}
	return advice
}

func moistureAdvice(moisture float64) (warning, action string) {
	switch {
	case moisture < MoistureLow:
		return "Soil moisture is low. Crop may be stressed.",
			"Irrigate this plot within the next 12 hours."
	case moisture > MoistureHigh:
		return "Soil moisture is very high. Risk of root rot or fungus.",
			"Reduce irrigation until moisture drops into normal range."
	}
	return "", ""
}
