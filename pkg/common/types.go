package common

// Track is one recording plus the genre label assigned when it was discovered
type Track struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// FeatureVectorLength is the number of values in every extracted feature vector
const FeatureVectorLength = 173
