package agronomy

import "sort"

// CropVocabulary is the label encoding a model was trained with: crop name
// to class code and back.
type CropVocabulary struct {
	forward map[Crop]int
	reverse map[int]Crop
}

// NewCropVocabulary builds a vocabulary from a name->code mapping.
func NewCropVocabulary(forward map[string]int) CropVocabulary {
	v := CropVocabulary{
		forward: make(map[Crop]int, len(forward)),
		reverse: make(map[int]Crop, len(forward)),
	}
	for name, code := range forward {
		crop := ParseCrop(name)
		v.forward[crop] = code
		v.reverse[code] = crop
	}
	return v
}

// VocabularyFromCrops assigns codes in sorted name order, the way a label
// encoder does.
func VocabularyFromCrops(crops []Crop) CropVocabulary {
	names := make([]string, 0, len(crops))
	for _, c := range crops {
		names = append(names, string(ParseCrop(string(c))))
	}
	sort.Strings(names)
	forward := make(map[string]int, len(names))
	for i, name := range names {
		forward[name] = i
	}
	return NewCropVocabulary(forward)
}

// Encode returns the class code for crop.
func (v CropVocabulary) Encode(crop Crop) (int, bool) {
	code, ok := v.forward[crop]
	return code, ok
}

// Decode returns the crop for a class code.
func (v CropVocabulary) Decode(code int) (Crop, bool) {
	crop, ok := v.reverse[code]
	return crop, ok
}

// Contains reports vocabulary membership
func (v CropVocabulary) Contains(crop Crop) bool {
	_, ok := v.forward[crop]
	return ok
}

// Crops lists the vocabulary ordered by class code.
func (v CropVocabulary) Crops() []Crop {
	codes := make([]int, 0, len(v.reverse))
	for code := range v.reverse {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	out := make([]Crop, len(codes))
	for i, code := range codes {
		out[i] = v.reverse[code]
	}
	return out
}

// Len is the number of classes
func (v CropVocabulary) Len() int {
	return len(v.forward)
}
