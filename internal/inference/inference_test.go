package inference

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/adapters/modelstore"
	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/compat"
	"cropadvisor/internal/errors"
	"cropadvisor/internal/features"
	"cropadvisor/internal/testkit"
	"cropadvisor/ports"
)

func newAdapters(t *testing.T, mc *ports.ModelContext) (*Classifier, *Regressor) {
	t.Helper()
	fb, err := features.NewBuilder(mc)
	require.NoError(t, err)
	scorer := compat.NewScorer(mc.References)
	return NewClassifier(mc, fb, scorer, nil), NewRegressor(mc, fb, nil)
}

func TestClassify_UsesArgMaxAndCompatibility(t *testing.T) {
	mc := testkit.NewModelContext(testkit.DefaultClassifier(), testkit.DosageResponseModel())
	clf, _ := newAdapters(t, mc)

	obs := testkit.MaizeScenario()
	res, err := clf.Classify(obs)
	require.NoError(t, err)

	assert.Equal(t, agronomy.Crop("maize"), res.Crop)
	assert.InDelta(t, 0.8, res.Confidence, 1e-12)
	// N, P, K and pH all sit inside maize's ranges
	assert.InDelta(t, 100.0, res.CompatibilityScore, 1e-9)
}

func TestClassify_ModelFailures(t *testing.T) {
	tests := []struct {
		name string
		stub *testkit.StubClassifier
	}{
		{"model error", &testkit.StubClassifier{Cols: testkit.ClassificationColumns, Err: fmt.Errorf("boom")}},
		{"model panic", &testkit.StubClassifier{Cols: testkit.ClassificationColumns, PanicWith: "index out of range"}},
		{"unmapped label", &testkit.StubClassifier{Cols: testkit.ClassificationColumns, Label: 42, Proba: []float64{1}}},
		{"empty distribution", &testkit.StubClassifier{Cols: testkit.ClassificationColumns, Label: 0}},
		{"NaN probability", &testkit.StubClassifier{Cols: testkit.ClassificationColumns, Label: 0, Proba: []float64{math.NaN(), 0.2}}},
		{"infinite probability", &testkit.StubClassifier{Cols: testkit.ClassificationColumns, Label: 0, Proba: []float64{0.1, math.Inf(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := testkit.NewModelContext(tt.stub, testkit.DosageResponseModel())
			clf, _ := newAdapters(t, mc)

			_, err := clf.Classify(testkit.MaizeScenario())
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeModelInference), "got %v", err)
		})
	}
}

func TestPredictYield_UnknownCropNeverReturnsValue(t *testing.T) {
	model := testkit.DosageResponseModel()
	mc := testkit.NewModelContext(testkit.DefaultClassifier(), model)
	_, reg := newAdapters(t, mc)

	y, err := reg.PredictYield(testkit.MaizeScenario(), "dragonfruit")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUnknownCrop))
	assert.Zero(t, y)
	assert.Zero(t, model.Calls(), "model must not be queried for an unknown crop")
}

func TestPredictYield_WrapsModelErrors(t *testing.T) {
	failing := &testkit.FuncYieldModel{
		Cols: testkit.YieldColumns,
		Fn:   func(map[string]float64) (float64, error) { return 0, fmt.Errorf("nan in tree") },
	}
	mc := testkit.NewModelContext(testkit.DefaultClassifier(), failing)
	_, reg := newAdapters(t, mc)

	_, err := reg.PredictYield(testkit.MaizeScenario(), "maize")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeModelInference))
}

func TestPredictYield_NonFiniteIsInferenceError(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		model := &testkit.FuncYieldModel{
			Cols: testkit.YieldColumns,
			Fn:   func(map[string]float64) (float64, error) { return v, nil },
		}
		mc := testkit.NewModelContext(testkit.DefaultClassifier(), model)
		_, reg := newAdapters(t, mc)

		y, err := reg.PredictYield(testkit.MaizeScenario(), "maize")
		require.Error(t, err, "yield %v", v)
		assert.True(t, errors.IsCode(err, errors.CodeModelInference))
		assert.Zero(t, y)
	}
}

func TestAdapters_WithFixtureArtifacts(t *testing.T) {
	mc, err := modelstore.NewStore(testkit.ModelDir(t), nil).Load()
	require.NoError(t, err)
	clf, reg := newAdapters(t, mc)

	hot := testkit.MaizeScenario() // 40°C, 300mm rain
	res, err := clf.Classify(hot)
	require.NoError(t, err)
	assert.Equal(t, agronomy.Crop("maize"), res.Crop)
	assert.InDelta(t, 0.8, res.Confidence, 1e-12)

	cool := hot
	cool.Temperature = 12
	res, err = clf.Classify(cool)
	require.NoError(t, err)
	assert.Equal(t, agronomy.Crop("wheat"), res.Crop)
	assert.InDelta(t, 0.9, res.Confidence, 1e-12)

	// dosage tree 3.0 (fert 100, pest 10), crop tree 1.0 for maize
	y, err := reg.PredictYield(hot, "maize")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, y, 1e-12)

	y, err = reg.PredictYield(hot, "wheat")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, y, 1e-12)
}
