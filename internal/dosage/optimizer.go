// Package dosage searches a fixed fertilizer/pesticide grid for the dosage
// pair with the highest predicted yield.
package dosage

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal"
	"cropadvisor/internal/errors"
	"cropadvisor/internal/metrics"
)

// Multipliers applied to the baseline fertilizer and pesticide dosages.
// 1.0 must stay in the grid so the result never loses to the current dosage.
var Multipliers = []float64{0.5, 1.0, 1.5, 2.0}

// ErrNoViableDosage is returned when every trial of the grid failed.
var ErrNoViableDosage = stderrors.New("no dosage trial produced a prediction")

// YieldPredictor is the slice of the regressor adapter the optimizer needs.
type YieldPredictor interface {
	PredictYield(obs agronomy.Observation, crop agronomy.Crop) (float64, error)
}

// trial is one grid point's outcome, tagged by its grid index.
type trial struct {
	candidate agronomy.DosageCandidate
	err       error
}

// Optimizer runs the grid search.
type Optimizer struct {
	predictor YieldPredictor
	workers   int
	logger    *internal.Logger
	metrics   *metrics.Metrics
}

// NewOptimizer creates an optimizer evaluating up to workers trials at once.
func NewOptimizer(p YieldPredictor, workers int, logger *internal.Logger, m *metrics.Metrics) *Optimizer {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Optimizer{predictor: p, workers: workers, logger: logger.With("DosageOptimizer"), metrics: m}
}

// Grid returns the trial points for obs in evaluation order: fertilizer
// multiplier major, pesticide multiplier minor.
func Grid(obs agronomy.Observation) []agronomy.DosageCandidate {
	fert := obs.FertilizerOr(agronomy.DefaultFertilizerBaseline)
	pest := obs.PesticideOr(agronomy.DefaultPesticideBaseline)

	grid := make([]agronomy.DosageCandidate, 0, len(Multipliers)*len(Multipliers))
	for _, fm := range Multipliers {
		for _, pm := range Multipliers {
			grid = append(grid, agronomy.DosageCandidate{Fertilizer: fert * fm, Pesticide: pest * pm})
		}
	}
	return grid
}

// Optimize evaluates every grid point and returns the one with the strictly
// highest predicted yield; ties keep the earliest grid index. A failed trial
// scores 0 and does not abort the search. The result is independent of
// scheduling because the reduction runs over index-ordered results.
func (o *Optimizer) Optimize(ctx context.Context, obs agronomy.Observation, crop agronomy.Crop) (agronomy.DosageCandidate, error) {
	start := time.Now()
	defer o.metrics.ObserveSince("optimize_dosage", start)

	grid := Grid(obs)
	trials := make([]trial, len(grid))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, point := range grid {
		i, point := i, point
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			y, err := o.predictor.PredictYield(obs.WithDosage(point.Fertilizer, point.Pesticide), crop)
			point.PredictedYield = y
			trials[i] = trial{candidate: point, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return agronomy.DosageCandidate{}, err
	}

	return o.reduce(crop, trials)
}

func (o *Optimizer) reduce(crop agronomy.Crop, trials []trial) (agronomy.DosageCandidate, error) {
	var (
		best     agronomy.DosageCandidate
		bestSeen = false
		failures = 0
		firstErr error
	)
	for i, t := range trials {
		score := t.candidate.PredictedYield
		if t.err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
			t.err = errors.ModelInference("regressor", fmt.Errorf("yield is %v", score))
		}
		if t.err != nil {
			failures++
			if firstErr == nil {
				firstErr = t.err
			}
			o.metrics.TrialFailure(errors.GetCode(t.err))
			o.logger.Warn("trial %d (fertilizer=%.1f, pesticide=%.1f) for %s failed, scoring 0: %v",
				i, t.candidate.Fertilizer, t.candidate.Pesticide, crop, t.err)
			score = 0
		}
		if !bestSeen || score > best.PredictedYield {
			best = t.candidate
			best.PredictedYield = score
			bestSeen = true
		}
	}

	if failures == len(trials) {
		return agronomy.DosageCandidate{}, errors.Wrapf(stderrors.Join(ErrNoViableDosage, firstErr),
			"dosage search for %s failed", crop)
	}
	if failures > 0 {
		o.logger.Info("dosage search for %s finished with %d/%d failed trials", crop, failures, len(trials))
	}
	return best, nil
}
