// Package modelstore loads offline-trained model artifacts into a ports.ModelContext.
//
// An artifact directory contains:
//
//	manifest.yaml      version, file names, deviation mode, optional reference table
//	crop_mapping.json  label encodings written by the training pipeline
//	<classifier>.json  random-forest classifier (see adapters/forest)
//	<regressor>.json   random-forest regressor
package modelstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"cropadvisor/adapters/forest"
	"cropadvisor/domain/agronomy"
	"cropadvisor/internal"
	"cropadvisor/internal/errors"
	"cropadvisor/ports"
)

const ManifestFile = "manifest.yaml"

// Manifest describes an artifact directory.
type Manifest struct {
	Version     string                   `yaml:"version"`
	Classifier  string                   `yaml:"classifier"`
	Regressor   string                   `yaml:"regressor"`
	CropMapping string                   `yaml:"crop_mapping"`
	Deviation   DeviationManifest        `yaml:"deviation"`
	References  []agronomy.CropReference `yaml:"references"`
}

// DeviationManifest selects the deviation normalizer.
type DeviationManifest struct {
	Mode    string             `yaml:"mode"`
	Spreads map[string]float64 `yaml:"spreads"`
}

// Store loads artifacts from a directory.
type Store struct {
	dir    string
	logger *internal.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *internal.Logger) *Store {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Store{dir: dir, logger: logger.With("ModelStore")}
}

// Load reads the manifest and every artifact it names, and cross-checks them.
func (s *Store) Load() (*ports.ModelContext, error) {
	manifest, err := s.readManifest()
	if err != nil {
		return nil, err
	}

	crops, soils, err := s.readCropMapping(manifest.CropMapping)
	if err != nil {
		return nil, err
	}

	clfEnsemble, err := forest.LoadFile(s.path(manifest.Classifier))
	if err != nil {
		return nil, errors.ModelArtifact("failed to load classifier", err)
	}
	classifier, err := forest.NewClassifier(clfEnsemble)
	if err != nil {
		return nil, errors.ModelArtifact("invalid classifier", err)
	}
	for _, code := range classifier.Classes() {
		if _, ok := crops.Decode(code); !ok {
			return nil, errors.ModelArtifact(fmt.Sprintf("classifier class %d has no crop mapping", code), nil)
		}
	}

	regEnsemble, err := forest.LoadFile(s.path(manifest.Regressor))
	if err != nil {
		return nil, errors.ModelArtifact("failed to load regressor", err)
	}
	regressor, err := forest.NewRegressor(regEnsemble)
	if err != nil {
		return nil, errors.ModelArtifact("invalid regressor", err)
	}

	refs := manifest.References
	if len(refs) == 0 {
		refs = agronomy.DefaultReferences
	}

	deviation, err := parseDeviation(manifest.Deviation)
	if err != nil {
		return nil, err
	}

	mc := &ports.ModelContext{
		ID:         uuid.New(),
		Version:    manifest.Version,
		Classifier: classifier,
		Regressor:  regressor,
		Crops:      crops,
		SoilTypes:  soils,
		References: agronomy.NewReferenceTable(refs),
		Deviation:  deviation,
	}
	s.logger.Info("loaded model context %s (version %q): %d crops, %d soil types, %d classifier columns, %d regressor columns",
		mc.ID, mc.Version, crops.Len(), len(soils), len(classifier.Columns()), len(regressor.Columns()))
	return mc, nil
}

func (s *Store) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

func (s *Store) readManifest() (*Manifest, error) {
	raw, err := os.ReadFile(s.path(ManifestFile))
	if err != nil {
		return nil, errors.ModelArtifact("failed to read manifest", err)
	}
	m := &Manifest{
		Classifier:  "crop_rf_model.json",
		Regressor:   "yield_rf_model.json",
		CropMapping: "crop_mapping.json",
	}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, errors.ModelArtifact("failed to parse manifest", err)
	}
	return m, nil
}

// readCropMapping parses {"crop": {"forward": {...}}, "soil_type": {"forward": {...}}}.
func (s *Store) readCropMapping(name string) (agronomy.CropVocabulary, []agronomy.SoilType, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		return agronomy.CropVocabulary{}, nil, errors.ModelArtifact("failed to read crop mapping", err)
	}
	if !gjson.ValidBytes(raw) {
		return agronomy.CropVocabulary{}, nil, errors.ModelArtifact("crop mapping is not valid JSON", nil)
	}
	return ParseCropMapping(raw)
}

// ParseCropMapping decodes the training pipeline's label-encoder dump.
func ParseCropMapping(raw []byte) (agronomy.CropVocabulary, []agronomy.SoilType, error) {
	forward := map[string]int{}
	gjson.GetBytes(raw, "crop.forward").ForEach(func(key, value gjson.Result) bool {
		forward[key.String()] = int(value.Int())
		return true
	})
	if len(forward) == 0 {
		return agronomy.CropVocabulary{}, nil, errors.ModelArtifact("crop mapping has no crop.forward entries", nil)
	}

	var soils []agronomy.SoilType
	gjson.GetBytes(raw, "soil_type.forward").ForEach(func(key, _ gjson.Result) bool {
		soils = append(soils, agronomy.SoilType(key.String()))
		return true
	})
	if len(soils) == 0 {
		soils = append(soils, agronomy.DefaultSoilTypes...)
	}
	sort.Slice(soils, func(i, j int) bool { return soils[i] < soils[j] })

	return agronomy.NewCropVocabulary(forward), soils, nil
}

func parseDeviation(m DeviationManifest) (ports.DeviationStats, error) {
	switch ports.DeviationMode(m.Mode) {
	case "", ports.DeviationSingleRow:
		return ports.DeviationStats{Mode: ports.DeviationSingleRow}, nil
	case ports.DeviationPopulation:
		spreads := make(map[agronomy.Nutrient]float64, len(agronomy.Nutrients))
		for _, n := range agronomy.Nutrients {
			v, ok := m.Spreads[string(n)]
			if !ok || v < 0 {
				return ports.DeviationStats{}, errors.ModelArtifact(fmt.Sprintf("population deviation needs a non-negative %s spread", n), nil)
			}
			spreads[n] = v
		}
		return ports.DeviationStats{Mode: ports.DeviationPopulation, Spreads: spreads}, nil
	default:
		return ports.DeviationStats{}, errors.ModelArtifact(fmt.Sprintf("unknown deviation mode %q", m.Mode), nil)
	}
}
