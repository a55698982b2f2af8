package ingest

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/errors"
)

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"N": 60.0, "P": 80.0, "K": 150.0, "pH": 7.0,
		"Temperature": 40.0, "Humidity": 90.0, "Rainfall": 300.0,
		"Soil_Type": "Sandy",
	}
}

func TestParse_CanonicalPayload(t *testing.T) {
	raw := validPayload()
	raw["Current_Crop"] = "  Maize "
	raw["Fertilizer"] = 100.0

	obs, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, 60.0, obs.N)
	assert.Equal(t, 7.0, obs.PH)
	assert.Equal(t, agronomy.SoilType("Sandy"), obs.SoilType)
	assert.Equal(t, agronomy.Crop("maize"), obs.CurrentCrop)
	require.NotNil(t, obs.Fertilizer)
	assert.Equal(t, 100.0, *obs.Fertilizer)
	assert.Nil(t, obs.Pesticide)
}

func TestParse_Aliases(t *testing.T) {
	raw := map[string]interface{}{
		"Nitrogen": 90, "phosphorus": "42", "Potassium": 43.5, "pH_level": "6.5",
		"temperature": 21, "humidity": 82, "rainfall": 202.9,
		"soil_type": "loamy", "current_crop": "RICE",
		"fert_total": "120", "pest_total": 8,
		"moisture": 35, // unknown keys are ignored
	}

	obs, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, 90.0, obs.N)
	assert.Equal(t, 42.0, obs.P)
	assert.Equal(t, 43.5, obs.K)
	assert.Equal(t, 6.5, obs.PH)
	assert.Equal(t, agronomy.SoilType("Loamy"), obs.SoilType)
	assert.Equal(t, agronomy.Crop("rice"), obs.CurrentCrop)
	assert.Equal(t, 120.0, obs.FertilizerOr(0))
	assert.Equal(t, 8.0, obs.PesticideOr(0))
}

func TestParse_DuplicateAliases(t *testing.T) {
	raw := validPayload()
	raw["pH_level"] = "7"
	_, err := Parse(raw)
	require.NoError(t, err, "equal values under two aliases are accepted")

	raw["pH_level"] = 6.0
	_, err = Parse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pH given twice")
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		message string
	}{
		{"missing nutrient", func(m map[string]interface{}) { delete(m, "K") }, "K is required"},
		{"null nutrient", func(m map[string]interface{}) { m["N"] = nil }, "N is required"},
		{"missing soil", func(m map[string]interface{}) { delete(m, "Soil_Type") }, "Soil_Type is required"},
		{"non numeric", func(m map[string]interface{}) { m["P"] = "lots" }, `P must be numeric, got "lots"`},
		{"boolean", func(m map[string]interface{}) { m["Rainfall"] = true }, "Rainfall must be numeric, got bool"},
		{"not finite", func(m map[string]interface{}) { m["Humidity"] = math.Inf(1) }, "Humidity must be a finite number"},
		{"NaN string", func(m map[string]interface{}) { m["N"] = "NaN" }, "N must be a finite number"},
		{"pH out of range", func(m map[string]interface{}) { m["pH"] = 15.0 }, "pH must be <= 14"},
		{"negative dosage", func(m map[string]interface{}) { m["Pesticide"] = -1.0 }, "Pesticide must be >= 0"},
		{"soil not a string", func(m map[string]interface{}) { m["Soil_Type"] = 3.0 }, "Soil_Type must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validPayload()
			tt.mutate(raw)

			_, err := Parse(raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeValidationError))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_ReportsEveryMissingField(t *testing.T) {
	_, err := Parse(map[string]interface{}{"N": 1})
	require.Error(t, err)
	for _, field := range []string{"P", "K", "pH", "Temperature", "Humidity", "Rainfall", "Soil_Type"} {
		assert.Contains(t, err.Error(), field+" is required")
	}
}

func TestDecodeJSON(t *testing.T) {
	body, err := json.Marshal(validPayload())
	require.NoError(t, err)

	obs, err := DecodeJSON(strings.NewReader(string(body)))
	require.NoError(t, err)
	assert.Equal(t, 300.0, obs.Rainfall)

	_, err = DecodeJSON(strings.NewReader(`[1, 2, 3]`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestCanonicalField(t *testing.T) {
	for in, want := range map[string]string{
		"pH_Value": FieldPH, " PH ": FieldPH, "NITROGEN": FieldN, "Crop_Type": FieldCurrentCrop,
	} {
		got, ok := CanonicalField(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := CanonicalField("moisture")
	assert.False(t, ok)
}
