package advisor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/errors"
)

// SelectCrop suggests the best-fit crop. When the classifier fails the
// configured fallback crop is returned with low confidence and Fallback set.
// With a current crop on the observation, yields for both crops are
// predicted independently; a failure on one side leaves that yield nil and
// the comparison unset.
func (a *Advisor) SelectCrop(ctx context.Context, obs agronomy.Observation) (agronomy.CropSelection, error) {
	start := time.Now()
	defer a.metrics.ObserveSince("select_crop", start)

	if err := ctx.Err(); err != nil {
		return agronomy.CropSelection{}, err
	}

	var sel agronomy.CropSelection
	res, err := a.classifier.Classify(obs)
	switch {
	case err == nil:
		sel.ClassificationResult = res
	case errors.IsCode(err, errors.CodeModelInference):
		a.logger.Warn("classification failed, falling back to %s: %v", a.opts.FallbackCrop, err)
		a.metrics.Fallback()
		sel.ClassificationResult = agronomy.ClassificationResult{
			Crop:               a.opts.FallbackCrop,
			Confidence:         a.opts.FallbackConfidence,
			CompatibilityScore: a.scorer.Score(a.opts.FallbackCrop, obs),
		}
		sel.Fallback = true
	default:
		return agronomy.CropSelection{}, errors.Wrap(err, "crop selection failed")
	}

	if obs.CurrentCrop.IsEmpty() {
		return sel, nil
	}
	sel.CurrentCrop = obs.CurrentCrop
	sel.PredictedYieldRecommend = a.predictOrNil(obs, sel.Crop)
	sel.PredictedYieldCurrent = a.predictOrNil(obs, obs.CurrentCrop)
	sel.Comparison = Compare(sel.PredictedYieldRecommend, sel.PredictedYieldCurrent)
	return sel, nil
}

// Compare reports Higher when the recommended yield beats the current one,
// Lower otherwise, and nil when either is unknown.
func Compare(recommended, current *float64) *agronomy.Comparison {
	if recommended == nil || current == nil {
		return nil
	}
	c := agronomy.ComparisonLower
	if *recommended > *current {
		c = agronomy.ComparisonHigher
	}
	return &c
}

func (a *Advisor) predictOrNil(obs agronomy.Observation, crop agronomy.Crop) *float64 {
	y, err := a.regressor.PredictYield(obs, crop)
	if err != nil {
		a.logger.Warn("yield prediction for %s failed: %v", crop, err)
		return nil
	}
	return &y
}

// Advise runs the current-crop report and the crop selection side by side
// and attaches the selection to the report.
func (a *Advisor) Advise(ctx context.Context, obs agronomy.Observation) (agronomy.RecommendationReport, error) {
	var (
		report agronomy.RecommendationReport
		sel    agronomy.CropSelection
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report, err = a.GenerateReport(gctx, obs)
		return err
	})
	g.Go(func() error {
		var err error
		sel, err = a.SelectCrop(gctx, obs)
		return err
	})
	if err := g.Wait(); err != nil {
		return agronomy.RecommendationReport{}, err
	}

	report.RecommendedCrop = &sel
	return report, nil
}
