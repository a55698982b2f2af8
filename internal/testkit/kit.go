// Package testkit provides model doubles and fixtures for engine tests.
package testkit

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"cropadvisor/domain/agronomy"
	"cropadvisor/ports"
)

//go:embed fixtures/models/*
var fixtureFS embed.FS

// ModelDir writes the fixture artifact set (manifest, crop mapping, a
// one-tree classifier and a two-tree regressor) into a temp dir.
//
// Fixture behaviour: classifier picks wheat (0.9) when Temperature <= 20,
// maize (0.8) when Rainfall <= 1000, else rice (0.7). Regressor yield is the
// mean of a dosage tree (Fertilizer <= 120: Pesticide <= 12 ? 3.0 : 3.2;
// Fertilizer <= 175 ? 4.5 : 4.1) and a crop tree (crop code <= 2 ? 1.0 : 2.0).
func ModelDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	err := fs.WalkDir(fixtureFS, "fixtures/models", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fixtureFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, d.Name()), data, 0o644)
	})
	if err != nil {
		t.Fatalf("failed to write model fixtures: %v", err)
	}
	return dir
}

// Column lists matching the fixture models.
var (
	ClassificationColumns = []string{
		"N_dev", "P_dev", "K_dev", "pH_dev",
		"Temperature", "Humidity", "Rainfall",
		"soil_Clay", "soil_Loamy", "soil_Sandy",
	}
	YieldColumns = []string{
		"N", "P", "K", "pH", "Temperature", "Humidity", "Rainfall",
		"Fertilizer", "Pesticide",
		"soil_Clay", "soil_Loamy", "soil_Sandy",
		"N_P_ratio", "K_N_ratio", "pH_squared", "crop_encoded",
	}
	SoilTypes = []agronomy.SoilType{"Clay", "Loamy", "Sandy"}
)

// StubClassifier returns a fixed label and distribution.
type StubClassifier struct {
	Cols      []string
	Codes     []int
	Label     int
	Proba     []float64
	Err       error
	PanicWith interface{}
}

func (s *StubClassifier) Columns() []string { return s.Cols }
func (s *StubClassifier) Classes() []int    { return s.Codes }

func (s *StubClassifier) Predict(row []float64) (int, error) {
	if err := s.check(row); err != nil {
		return 0, err
	}
	return s.Label, nil
}

func (s *StubClassifier) PredictProba(row []float64) ([]float64, error) {
	if err := s.check(row); err != nil {
		return nil, err
	}
	return s.Proba, nil
}

func (s *StubClassifier) check(row []float64) error {
	if s.PanicWith != nil {
		panic(s.PanicWith)
	}
	if s.Err != nil {
		return s.Err
	}
	if len(row) != len(s.Cols) {
		return fmt.Errorf("stub classifier got %d features, want %d", len(row), len(s.Cols))
	}
	return nil
}

// FuncYieldModel evaluates Fn over the row keyed by column name.
type FuncYieldModel struct {
	Cols  []string
	Fn    func(features map[string]float64) (float64, error)
	calls atomic.Int64
}

func (m *FuncYieldModel) Columns() []string { return m.Cols }

func (m *FuncYieldModel) Predict(row []float64) (float64, error) {
	m.calls.Add(1)
	if len(row) != len(m.Cols) {
		return 0, fmt.Errorf("yield model got %d features, want %d", len(row), len(m.Cols))
	}
	features := make(map[string]float64, len(row))
	for i, col := range m.Cols {
		features[col] = row[i]
	}
	return m.Fn(features)
}

// Calls is how many predictions were requested.
func (m *FuncYieldModel) Calls() int64 { return m.calls.Load() }

// NewModelContext builds a context over the default reference table with
// crops encoded in sorted order (maize=0 ... wheat=5).
func NewModelContext(clf ports.CropClassifierModel, reg ports.YieldModel) *ports.ModelContext {
	refs := agronomy.NewReferenceTable(agronomy.DefaultReferences)
	return &ports.ModelContext{
		ID:         uuid.New(),
		Version:    "test",
		Classifier: clf,
		Regressor:  reg,
		Crops:      agronomy.VocabularyFromCrops(refs.Crops()),
		SoilTypes:  SoilTypes,
		References: refs,
		Deviation:  ports.DeviationStats{Mode: ports.DeviationSingleRow},
	}
}

// DefaultClassifier is a stub predicting maize with 0.8 confidence.
func DefaultClassifier() *StubClassifier {
	return &StubClassifier{
		Cols:  ClassificationColumns,
		Codes: []int{0, 1, 2, 3, 4, 5},
		Label: 0,
		Proba: []float64{0.8, 0, 0.1, 0.1, 0, 0},
	}
}

// DosageResponseModel peaks at Fertilizer=150, Pesticide=15 and adds the
// crop code so different crops predict different yields.
func DosageResponseModel() *FuncYieldModel {
	return &FuncYieldModel{
		Cols: YieldColumns,
		Fn: func(f map[string]float64) (float64, error) {
			df := (f["Fertilizer"] - 150) / 100
			dp := (f["Pesticide"] - 15) / 10
			return 5 - df*df - dp*dp + f["crop_encoded"]*0.1, nil
		},
	}
}

// MaizeScenario is the reference observation used across packages: P and K
// inside maize's ranges, with low rainfall, high temperature, high humidity.
func MaizeScenario() agronomy.Observation {
	return agronomy.Observation{
		N: 60, P: 80, K: 150, PH: 7.0,
		Temperature: 40, Humidity: 90, Rainfall: 300,
		SoilType:    "Sandy",
		CurrentCrop: "maize",
		Fertilizer:  agronomy.Float(100),
		Pesticide:   agronomy.Float(10),
	}
}
