package agronomy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Crop is a canonical (trimmed, lower-case) crop name.
type Crop string

// ParseCrop canonicalizes a crop name. Empty input yields the empty Crop.
func ParseCrop(s string) Crop {
	return Crop(strings.ToLower(strings.TrimSpace(s)))
}

func (c Crop) String() string { return string(c) }

// IsEmpty reports whether no crop was supplied
func (c Crop) IsEmpty() bool { return c == "" }

// SoilType is a canonical soil category name ("Sandy", "Loamy", ...).
type SoilType string

// ParseSoilType canonicalizes a soil category to title case, word by word
// ("sandy loam" becomes "Sandy Loam").
func ParseSoilType(s string) SoilType {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return SoilType(strings.Join(words, " "))
}

func (s SoilType) String() string { return string(s) }

// Key is the case-insensitive form used to match a soil against a model
// vocabulary whose spelling may differ.
func (s SoilType) Key() string {
	return strings.ToLower(strings.Join(strings.Fields(string(s)), " "))
}

// Nutrient identifies one of the four soil chemistry readings with an optimal range.
type Nutrient string

const (
	NutrientN  Nutrient = "N"
	NutrientP  Nutrient = "P"
	NutrientK  Nutrient = "K"
	NutrientPH Nutrient = "pH"
)

// Nutrients lists nutrients in the order recommendation notes are emitted.
var Nutrients = []Nutrient{NutrientN, NutrientP, NutrientK, NutrientPH}

// Format renders a reading the way the reference table writes it: pH keeps
// at least one decimal ("7.0"), N, P and K drop trailing zeros ("60").
func (n Nutrient) Format(v float64) string {
	if n == NutrientPH && v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatRange renders r as "min-max" using Format.
func (n Nutrient) FormatRange(r Range) string {
	return n.Format(r.Min) + "-" + n.Format(r.Max)
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Midpoint of the interval
func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// HalfWidth is half the interval length
func (r Range) HalfWidth() float64 {
	return (r.Max - r.Min) / 2
}

// IsZero reports whether the range is unset
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

func (r Range) String() string {
	return fmt.Sprintf("%g-%g", r.Min, r.Max)
}

// CropReference holds the agronomically optimal nutrient ranges for a crop.
type CropReference struct {
	Crop Crop  `json:"crop" yaml:"crop"`
	N    Range `json:"N" yaml:"N"`
	P    Range `json:"P" yaml:"P"`
	K    Range `json:"K" yaml:"K"`
	PH   Range `json:"pH" yaml:"pH"`
}

// Range returns the optimal range for a nutrient and whether it is defined.
func (r CropReference) Range(n Nutrient) (Range, bool) {
	var rng Range
	switch n {
	case NutrientN:
		rng = r.N
	case NutrientP:
		rng = r.P
	case NutrientK:
		rng = r.K
	case NutrientPH:
		rng = r.PH
	default:
		return Range{}, false
	}
	return rng, !rng.IsZero()
}

// Thresholds configures the environmental advisory rules.
type Thresholds struct {
	RainfallLow     float64
	RainfallHigh    float64
	TemperatureLow  float64
	TemperatureHigh float64
	HumidityLow     float64
	HumidityHigh    float64
}

// DefaultThresholds are the rainfall (mm), temperature (°C) and humidity (%) cut-offs.
var DefaultThresholds = Thresholds{
	RainfallLow:     400,
	RainfallHigh:    1200,
	TemperatureLow:  15,
	TemperatureHigh: 35,
	HumidityLow:     40,
	HumidityHigh:    85,
}
