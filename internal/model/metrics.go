package model

import "math"

// ImageQualityMetrics holds the normalized quality scores for a single image.
// All fields are in [0,1]. Higher is better except NoiseLevel, where higher
// means more noise. Instances are built once per image and never mutated.
type ImageQualityMetrics struct {
	Sharpness      float64 `json:"sharpness"`
	Brightness     float64 `json:"brightness"`
	Contrast       float64 `json:"contrast"`
	NoiseLevel     float64 `json:"noise_level"`
	Resolution     float64 `json:"resolution"`
	Compression    float64 `json:"compression"`
	ObjectCoverage float64 `json:"object_coverage"`
	EdgeClarity    float64 `json:"edge_clarity"`
	OverallScore   float64 `json:"overall_score"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// Clamp01 constrains v to the [0,1] range. Derived scores are always clamped;
// user-supplied scores are validated instead (see ValidateScore).
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
