// Package advisor is the engine's entry point. It composes current-crop
// reports from the regressor and dosage optimizer, and separately answers
// best-fit crop questions from the classifier. Only this package turns
// model failures into degraded results.
package advisor

import (
	"context"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal"
	"cropadvisor/internal/compat"
	"cropadvisor/internal/dosage"
	"cropadvisor/internal/metrics"
)

// CropClassifier suggests a crop for an observation.
type CropClassifier interface {
	Classify(obs agronomy.Observation) (agronomy.ClassificationResult, error)
}

// DosageOptimizer finds the best fertilizer/pesticide pair for a crop.
type DosageOptimizer interface {
	Optimize(ctx context.Context, obs agronomy.Observation, crop agronomy.Crop) (agronomy.DosageCandidate, error)
}

// CropVocabulary reports which crops the yield model can encode. When an
// Advisor has one, reports skip yield work for crops outside it.
type CropVocabulary interface {
	Contains(crop agronomy.Crop) bool
}

// Options tune degraded-mode behaviour and batch fan-out.
type Options struct {
	FallbackCrop       agronomy.Crop
	FallbackConfidence float64
	PlotWorkers        int
	Thresholds         agronomy.Thresholds
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		FallbackCrop:       "maize",
		FallbackConfidence: 0.1,
		PlotWorkers:        4,
		Thresholds:         agronomy.DefaultThresholds,
	}
}

// Deps are the collaborators an Advisor orchestrates.
type Deps struct {
	Classifier CropClassifier
	Regressor  dosage.YieldPredictor
	Optimizer  DosageOptimizer
	Scorer     *compat.Scorer
	References *agronomy.ReferenceTable
	Crops      CropVocabulary
	Logger     *internal.Logger
	Metrics    *metrics.Metrics
}

// Advisor is safe for concurrent use; it holds no per-request state.
type Advisor struct {
	classifier CropClassifier
	regressor  dosage.YieldPredictor
	optimizer  DosageOptimizer
	scorer     *compat.Scorer
	refs       *agronomy.ReferenceTable
	crops      CropVocabulary
	opts       Options
	logger     *internal.Logger
	metrics    *metrics.Metrics
}

// New creates an Advisor.
func New(deps Deps, opts Options) *Advisor {
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if opts.PlotWorkers < 1 {
		opts.PlotWorkers = 1
	}
	if opts.Thresholds == (agronomy.Thresholds{}) {
		opts.Thresholds = agronomy.DefaultThresholds
	}
	if opts.FallbackCrop.IsEmpty() {
		opts.FallbackCrop = DefaultOptions().FallbackCrop
	}
	refs := deps.References
	if refs == nil {
		refs = agronomy.NewReferenceTable(agronomy.DefaultReferences)
	}
	scorer := deps.Scorer
	if scorer == nil {
		scorer = compat.NewScorer(refs)
	}
	return &Advisor{
		classifier: deps.Classifier,
		regressor:  deps.Regressor,
		optimizer:  deps.Optimizer,
		scorer:     scorer,
		refs:       refs,
		crops:      deps.Crops,
		opts:       opts,
		logger:     logger.With("Advisor"),
		metrics:    deps.Metrics,
	}
}
