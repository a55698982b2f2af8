package modelstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/adapters/modelstore"
	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/errors"
	"cropadvisor/internal/testkit"
	"cropadvisor/ports"
)

func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, modelstore.ManifestFile), []byte(body), 0o644))
}

func TestLoad_Fixtures(t *testing.T) {
	mc, err := modelstore.NewStore(testkit.ModelDir(t), nil).Load()
	require.NoError(t, err)

	assert.Equal(t, "fixture-2025-06", mc.Version)
	assert.Equal(t, 6, mc.Crops.Len())
	assert.Equal(t, []agronomy.SoilType{"Clay", "Loamy", "Sandy"}, mc.SoilTypes)
	assert.Equal(t, testkit.ClassificationColumns, mc.Classifier.Columns())
	assert.Equal(t, testkit.YieldColumns, mc.Regressor.Columns())
	assert.Equal(t, ports.DeviationSingleRow, mc.Deviation.Mode)

	code, ok := mc.Crops.Encode("wheat")
	require.True(t, ok)
	assert.Equal(t, 5, code)

	ref, ok := mc.References.Lookup("maize")
	require.True(t, ok)
	assert.Equal(t, agronomy.Range{Min: 60, Max: 200}, ref.N)
}

func TestParseCropMapping_SoilNamesKeptVerbatim(t *testing.T) {
	raw := []byte(`{"crop": {"forward": {"maize": 0}},
		"soil_type": {"forward": {"Sandy Loam": 1, "Clay": 0, "peaty": 2}}}`)

	_, soils, err := modelstore.ParseCropMapping(raw)
	require.NoError(t, err)
	assert.Equal(t, []agronomy.SoilType{"Clay", "Sandy Loam", "peaty"}, soils)
}

func TestLoad_ManifestReferencesOverrideDefaults(t *testing.T) {
	dir := testkit.ModelDir(t)
	writeManifest(t, dir, `version: custom
references:
  - crop: maize
    N: {min: 10, max: 20}
    P: {min: 1, max: 2}
    K: {min: 3, max: 4}
    pH: {min: 6, max: 7}
`)

	mc, err := modelstore.NewStore(dir, nil).Load()
	require.NoError(t, err)

	assert.Equal(t, []agronomy.Crop{"maize"}, mc.References.Crops())
	ref, _ := mc.References.Lookup("maize")
	assert.Equal(t, agronomy.Range{Min: 10, Max: 20}, ref.N)
}

func TestLoad_PopulationDeviation(t *testing.T) {
	dir := testkit.ModelDir(t)
	writeManifest(t, dir, `deviation:
  mode: population
  spreads: {N: 140, P: 145, K: 205, pH: 5.5}
`)

	mc, err := modelstore.NewStore(dir, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, ports.DeviationPopulation, mc.Deviation.Mode)
	assert.Equal(t, 205.0, mc.Deviation.Spreads[agronomy.Nutrient("K")])
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		prepare  func(dir string)
	}{
		{name: "missing manifest", prepare: func(dir string) { os.Remove(filepath.Join(dir, modelstore.ManifestFile)) }},
		{name: "unparseable manifest", manifest: "version: [unterminated"},
		{name: "unknown deviation mode", manifest: "deviation: {mode: zscore}"},
		{name: "population without spreads", manifest: "deviation: {mode: population, spreads: {N: 1}}"},
		{name: "missing classifier", manifest: "classifier: nope.json"},
		{name: "missing regressor", manifest: "regressor: nope.json"},
		{name: "corrupt crop mapping", prepare: func(dir string) {
			os.WriteFile(filepath.Join(dir, "crop_mapping.json"), []byte("{not json"), 0o644)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testkit.ModelDir(t)
			if tt.manifest != "" {
				writeManifest(t, dir, tt.manifest)
			}
			if tt.prepare != nil {
				tt.prepare(dir)
			}

			_, err := modelstore.NewStore(dir, nil).Load()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeModelArtifact), err.Error())
		})
	}
}

func TestParseCropMapping(t *testing.T) {
	crops, soils, err := modelstore.ParseCropMapping([]byte(`{"crop": {"forward": {"rice": 1, "maize": 0}}}`))
	require.NoError(t, err)

	assert.Equal(t, 2, crops.Len())
	crop, ok := crops.Decode(1)
	require.True(t, ok)
	assert.Equal(t, agronomy.Crop("rice"), crop)
	assert.ElementsMatch(t, agronomy.DefaultSoilTypes, soils)

	_, _, err = modelstore.ParseCropMapping([]byte(`{"soil_type": {"forward": {"Clay": 0}}}`))
	assert.True(t, errors.IsCode(err, errors.CodeModelArtifact))
}
