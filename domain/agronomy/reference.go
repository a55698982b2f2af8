package agronomy

import "sort"

// DefaultReferences is the built-in optimal range table. Model artifacts may
// ship their own table; this one is used when they don't.
var DefaultReferences = []CropReference{
	{Crop: "maize", N: Range{60, 200}, P: Range{20, 100}, K: Range{20, 150}, PH: Range{5.5, 7.0}},
	{Crop: "potato", N: Range{100, 300}, P: Range{50, 120}, K: Range{150, 250}, PH: Range{5.5, 6.5}},
	{Crop: "rice", N: Range{100, 200}, P: Range{20, 70}, K: Range{65, 120}, PH: Range{5.5, 6.5}},
	{Crop: "sugarcane", N: Range{90, 200}, P: Range{50, 100}, K: Range{40, 150}, PH: Range{5.0, 8.0}},
	{Crop: "tomato", N: Range{100, 250}, P: Range{50, 120}, K: Range{80, 250}, PH: Range{5.5, 6.8}},
	{Crop: "wheat", N: Range{80, 200}, P: Range{30, 80}, K: Range{40, 120}, PH: Range{6.0, 6.8}},
}

// DefaultSoilTypes is the soil vocabulary used when an artifact omits one.
var DefaultSoilTypes = []SoilType{"Clay", "Loamy", "Peaty", "Saline", "Sandy", "Silty"}

// ReferenceTable is a read-only lookup of crop references.
type ReferenceTable struct {
	byCrop map[Crop]CropReference
	crops  []Crop
}

// NewReferenceTable indexes refs by canonical crop name. Later duplicates win.
func NewReferenceTable(refs []CropReference) *ReferenceTable {
	t := &ReferenceTable{byCrop: make(map[Crop]CropReference, len(refs))}
	for _, ref := range refs {
		ref.Crop = ParseCrop(string(ref.Crop))
		if _, seen := t.byCrop[ref.Crop]; !seen {
			t.crops = append(t.crops, ref.Crop)
		}
		t.byCrop[ref.Crop] = ref
	}
	sort.Slice(t.crops, func(i, j int) bool { return t.crops[i] < t.crops[j] })
	return t
}

// Lookup returns the reference entry for crop.
func (t *ReferenceTable) Lookup(crop Crop) (CropReference, bool) {
	ref, ok := t.byCrop[crop]
	return ref, ok
}

// Crops returns the known crops in sorted order.
func (t *ReferenceTable) Crops() []Crop {
	out := make([]Crop, len(t.crops))
	copy(out, t.crops)
	return out
}

// Len is the number of entries
func (t *ReferenceTable) Len() int {
	return len(t.crops)
}

// Midpoints returns every crop's optimal-range midpoint for a nutrient, in crop order.
func (t *ReferenceTable) Midpoints(n Nutrient) []float64 {
	mids := make([]float64, 0, len(t.crops))
	for _, crop := range t.crops {
		if rng, ok := t.byCrop[crop].Range(n); ok {
			mids = append(mids, rng.Midpoint())
		}
	}
	return mids
}
