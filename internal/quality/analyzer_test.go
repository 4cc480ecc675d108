package quality

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsight/inspect-cli/internal/config"
	"github.com/partsight/inspect-cli/internal/model"
)

func defaultQualityConfig() config.QualityConfig {
	return config.QualityConfig{
		SharpnessWeight:      0.25,
		BrightnessWeight:     0.15,
		ContrastWeight:       0.20,
		NoiseWeight:          0.10,
		ResolutionWeight:     0.15,
		CompressionWeight:    0.05,
		ObjectCoverageWeight: 0.10,
	}
}

// encodePNG renders a synthetic grayscale test image.
func encodePNG(t *testing.T, w, h int, pixel func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: pixel(x, y)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func flatImage(t *testing.T, w, h int, level uint8) []byte {
	return encodePNG(t, w, h, func(x, y int) uint8 { return level })
}

func checkerboard(t *testing.T, w, h int) []byte {
	return encodePNG(t, w, h, func(x, y int) uint8 {
		if (x+y)%2 == 0 {
			return 255
		}
		return 0
	})
}

func TestAnalyze_InvalidBytes(t *testing.T) {
	a := NewAnalyzer(defaultQualityConfig())
	_, err := a.Analyze([]byte("not an image"))
	require.Error(t, err)

	var de *model.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestAnalyze_TooSmall(t *testing.T) {
	a := NewAnalyzer(defaultQualityConfig())
	_, err := a.Analyze(flatImage(t, 2, 2, 128))
	require.Error(t, err)

	var de *model.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestAnalyze_FlatImage(t *testing.T) {
	a := NewAnalyzer(defaultQualityConfig())
	m, err := a.Analyze(flatImage(t, 64, 64, 128))
	require.NoError(t, err)

	// A uniform image has no edges, no texture, no noise.
	assert.InDelta(t, 0.5, m.Brightness, 0.01) // 128/255
	assert.InDelta(t, 0, m.Sharpness, 0.001)
	assert.InDelta(t, 0, m.Contrast, 0.001)
	assert.InDelta(t, 0, m.NoiseLevel, 0.001)
	assert.InDelta(t, 0, m.EdgeClarity, 0.001)
	assert.Equal(t, 64, m.Width)
	assert.Equal(t, 64, m.Height)
}

func TestAnalyze_CheckerboardSharperThanFlat(t *testing.T) {
	a := NewAnalyzer(defaultQualityConfig())

	flat, err := a.Analyze(flatImage(t, 64, 64, 128))
	require.NoError(t, err)
	sharp, err := a.Analyze(checkerboard(t, 64, 64))
	require.NoError(t, err)

	assert.Greater(t, sharp.Sharpness, flat.Sharpness)
	assert.Greater(t, sharp.Contrast, flat.Contrast)
	assert.Greater(t, sharp.EdgeClarity, flat.EdgeClarity)
}

func TestAnalyze_BrightnessExtremes(t *testing.T) {
	a := NewAnalyzer(defaultQualityConfig())

	dark, err := a.Analyze(flatImage(t, 64, 64, 0))
	require.NoError(t, err)
	bright, err := a.Analyze(flatImage(t, 64, 64, 255))
	require.NoError(t, err)

	assert.InDelta(t, 0, dark.Brightness, 0.01)
	assert.InDelta(t, 1, bright.Brightness, 0.01)
}

func TestAnalyze_AllMetricsInRange(t *testing.T) {
	a := NewAnalyzer(defaultQualityConfig())
	m, err := a.Analyze(checkerboard(t, 128, 96))
	require.NoError(t, err)

	for name, v := range map[string]float64{
		"sharpness":       m.Sharpness,
		"brightness":      m.Brightness,
		"contrast":        m.Contrast,
		"noise_level":     m.NoiseLevel,
		"resolution":      m.Resolution,
		"compression":     m.Compression,
		"object_coverage": m.ObjectCoverage,
		"edge_clarity":    m.EdgeClarity,
		"overall":         m.OverallScore,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestResolutionScore(t *testing.T) {
	// Full HD and above saturates at 1.0.
	assert.Equal(t, 1.0, resolutionScore(1920*1080))
	assert.Equal(t, 1.0, resolutionScore(4000*3000))

	// The minimum acceptable pixel count lands exactly on the 0.5 floor.
	assert.InDelta(t, 0.5, resolutionScore(640*480), 0.001)

	// Below minimum ramps linearly down to zero.
	assert.InDelta(t, 0.25, resolutionScore(640*480/2), 0.001)
	assert.Equal(t, 0.0, resolutionScore(0))

	// Between min and good the score is strictly increasing.
	mid := resolutionScore((640*480 + 1920*1080) / 2)
	assert.Greater(t, mid, 0.5)
	assert.Less(t, mid, 1.0)
}

func TestCompressionScore(t *testing.T) {
	// At or above the reference bytes-per-pixel the score saturates.
	assert.Equal(t, 1.0, compressionScore(500_000, 1_000_000))
	// Half the reference ratio scores 0.5.
	assert.InDelta(t, 0.5, compressionScore(250_000, 1_000_000), 0.001)
	assert.Equal(t, 0.0, compressionScore(100, 0))
}

func TestOverall_WeightedBlend(t *testing.T) {
	a := NewAnalyzer(defaultQualityConfig())
	m := model.ImageQualityMetrics{
		Sharpness:      0.8,
		Brightness:     0.6,
		Contrast:       0.7,
		NoiseLevel:     0.2,
		Resolution:     0.9,
		Compression:    1.0,
		ObjectCoverage: 0.5,
	}

	// 0.25*0.8 + 0.15*0.6 + 0.20*0.7 + 0.10*(1-0.2) + 0.15*0.9 + 0.05*1.0 + 0.10*0.5
	// = 0.2 + 0.09 + 0.14 + 0.08 + 0.135 + 0.05 + 0.05 = 0.745
	assert.InDelta(t, 0.745, a.overall(m), 0.0001)
}
