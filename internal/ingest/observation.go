// Package ingest turns loosely-typed client payloads into validated
// observations. It is the only place field-name aliases and string numbers
// are understood; everything downstream sees canonical values.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/errors"
)

// Canonical field names of the request shape.
const (
	FieldN           = "N"
	FieldP           = "P"
	FieldK           = "K"
	FieldPH          = "pH"
	FieldTemperature = "Temperature"
	FieldHumidity    = "Humidity"
	FieldRainfall    = "Rainfall"
	FieldSoilType    = "Soil_Type"
	FieldCurrentCrop = "Current_Crop"
	FieldFertilizer  = "Fertilizer"
	FieldPesticide   = "Pesticide"
)

// aliases maps lower-cased incoming keys to canonical field names.
var aliases = map[string]string{
	"n": FieldN, "nitrogen": FieldN,
	"p": FieldP, "phosphorus": FieldP,
	"k": FieldK, "potassium": FieldK,
	"ph": FieldPH, "ph_level": FieldPH, "ph_value": FieldPH,
	"temperature": FieldTemperature, "temp": FieldTemperature,
	"humidity":    FieldHumidity,
	"rainfall":    FieldRainfall,
	"soil_type":   FieldSoilType, "soiltype": FieldSoilType, "soil": FieldSoilType,
	"current_crop": FieldCurrentCrop, "currentcrop": FieldCurrentCrop, "crop_type": FieldCurrentCrop,
	"fertilizer": FieldFertilizer, "fert_total": FieldFertilizer,
	"pesticide": FieldPesticide, "pest_total": FieldPesticide,
}

// CanonicalField resolves an incoming key, reporting false for unknown keys.
func CanonicalField(key string) (string, bool) {
	field, ok := aliases[strings.ToLower(strings.TrimSpace(key))]
	return field, ok
}

type observationInput struct {
	N           *float64 `json:"N" validate:"required,gte=0"`
	P           *float64 `json:"P" validate:"required,gte=0"`
	K           *float64 `json:"K" validate:"required,gte=0"`
	PH          *float64 `json:"pH" validate:"required,gte=0,lte=14"`
	Temperature *float64 `json:"Temperature" validate:"required,gte=-60,lte=70"`
	Humidity    *float64 `json:"Humidity" validate:"required,gte=0,lte=100"`
	Rainfall    *float64 `json:"Rainfall" validate:"required,gte=0"`
	SoilType    string   `json:"Soil_Type" validate:"required"`
	CurrentCrop string   `json:"Current_Crop"`
	Fertilizer  *float64 `json:"Fertilizer" validate:"omitempty,gte=0"`
	Pesticide   *float64 `json:"Pesticide" validate:"omitempty,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// DecodeJSON reads a JSON object and parses it as an observation.
func DecodeJSON(r io.Reader) (agronomy.Observation, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return agronomy.Observation{}, errors.WithCode(errors.CodeValidationError,
			fmt.Errorf("request body must be a JSON object: %w", err))
	}
	return Parse(raw)
}

// Parse resolves aliases, coerces numbers and validates required fields.
// Unknown keys are ignored.
func Parse(raw map[string]interface{}) (agronomy.Observation, error) {
	canonical := make(map[string]interface{}, len(raw))
	var problems []string

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		field, ok := CanonicalField(key)
		if !ok || value == nil {
			continue
		}
		if prev, dup := canonical[field]; dup && !sameValue(prev, value) {
			problems = append(problems, fmt.Sprintf("%s given twice with different values", field))
			continue
		}
		canonical[field] = value
	}

	in := observationInput{}
	numbers := map[string]**float64{
		FieldN: &in.N, FieldP: &in.P, FieldK: &in.K, FieldPH: &in.PH,
		FieldTemperature: &in.Temperature, FieldHumidity: &in.Humidity, FieldRainfall: &in.Rainfall,
		FieldFertilizer: &in.Fertilizer, FieldPesticide: &in.Pesticide,
	}
	for _, field := range sortedKeys(numbers) {
		value, ok := canonical[field]
		if !ok {
			continue
		}
		f, err := toFloat(value)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %v", field, err))
			continue
		}
		*numbers[field] = &f
	}
	for field, dst := range map[string]*string{FieldSoilType: &in.SoilType, FieldCurrentCrop: &in.CurrentCrop} {
		if value, ok := canonical[field]; ok {
			s, isString := value.(string)
			if !isString {
				problems = append(problems, fmt.Sprintf("%s must be a string", field))
				continue
			}
			*dst = strings.TrimSpace(s)
		}
	}

	if len(problems) == 0 {
		if err := validate.Struct(in); err != nil {
			problems = append(problems, describe(err)...)
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return agronomy.Observation{}, errors.ValidationError(strings.Join(problems, "; "))
	}

	return agronomy.Observation{
		N:           *in.N,
		P:           *in.P,
		K:           *in.K,
		PH:          *in.PH,
		Temperature: *in.Temperature,
		Humidity:    *in.Humidity,
		Rainfall:    *in.Rainfall,
		SoilType:    agronomy.ParseSoilType(in.SoilType),
		CurrentCrop: agronomy.ParseCrop(in.CurrentCrop),
		Fertilizer:  in.Fertilizer,
		Pesticide:   in.Pesticide,
	}, nil
}

// toFloat accepts JSON numbers, Go numerics and numeric strings.
func toFloat(v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be numeric, got %q", n.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("must be numeric, got %q", n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("must be numeric, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be a finite number")
	}
	return f, nil
}

func sameValue(a, b interface{}) bool {
	fa, errA := toFloat(a)
	fb, errB := toFloat(b)
	if errA == nil && errB == nil {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func describe(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out = append(out, fe.Field()+" is required")
		case "gte":
			out = append(out, fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param()))
		case "lte":
			out = append(out, fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
