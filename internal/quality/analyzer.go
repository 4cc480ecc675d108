// Package quality computes deterministic image quality metrics from raw pixel
// data. The metrics feed the pre-analysis gate and the confidence scorer.
package quality

import (
	"bytes"
	"image"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/partsight/inspect-cli/internal/config"
	"github.com/partsight/inspect-cli/internal/model"
)

// Empirical scale constants. Tuned so that typical well-lit factory photos
// land mid-range; downstream thresholds assume these scales.
const (
	sharpnessScale   = 50.0
	contrastScale    = 2.0
	noiseScale       = 20.0
	edgeScale        = 4.0
	refBytesPerPixel = 0.5

	minPixels  = 640 * 480
	goodPixels = 1920 * 1080

	// maxAnalyzePixels bounds per-image work; larger images are sampled on a
	// deterministic stride grid.
	maxAnalyzePixels = 1 << 21
)

// Analyzer computes ImageQualityMetrics for raw image bytes.
type Analyzer struct {
	cfg config.QualityConfig
}

// NewAnalyzer creates an Analyzer with the given metric weights.
func NewAnalyzer(cfg config.QualityConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze decodes the image and computes all eight metrics plus the weighted
// overall score. Returns a DecodeError when the bytes are not a raster image.
func (a *Analyzer) Analyze(data []byte) (model.ImageQualityMetrics, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return model.ImageQualityMetrics{}, &model.DecodeError{Reason: err.Error()}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return model.ImageQualityMetrics{}, &model.DecodeError{Reason: "image too small to analyze"}
	}

	gray := luminancePlane(img)

	brightness := gray.mean()
	contrast := model.Clamp01(gray.rmsContrast(brightness) * contrastScale)
	sharpness := model.Clamp01(gray.laplacianEnergy() * sharpnessScale)
	noise := model.Clamp01(gray.localVariance() * noiseScale)
	edgeClarity := model.Clamp01(gray.sobelEnergy() * edgeScale)

	resolution := resolutionScore(width * height)
	compression := compressionScore(len(data), width*height)

	// Coverage is a deliberate proxy from edge density, not real segmentation.
	// Downstream thresholds are tuned against this scale; do not replace it
	// with true segmentation without retuning.
	objectCoverage := model.Clamp01(2 * edgeClarity)

	m := model.ImageQualityMetrics{
		Sharpness:      sharpness,
		Brightness:     brightness,
		Contrast:       contrast,
		NoiseLevel:     noise,
		Resolution:     resolution,
		Compression:    compression,
		ObjectCoverage: objectCoverage,
		EdgeClarity:    edgeClarity,
		Width:          width,
		Height:         height,
	}
	m.OverallScore = a.overall(m)
	return m, nil
}

// overall folds the sub-metrics into the fixed convex combination. NoiseLevel
// enters inverted: less noise scores higher.
func (a *Analyzer) overall(m model.ImageQualityMetrics) float64 {
	score := a.cfg.SharpnessWeight*m.Sharpness +
		a.cfg.BrightnessWeight*m.Brightness +
		a.cfg.ContrastWeight*m.Contrast +
		a.cfg.NoiseWeight*(1-m.NoiseLevel) +
		a.cfg.ResolutionWeight*m.Resolution +
		a.cfg.CompressionWeight*m.Compression +
		a.cfg.ObjectCoverageWeight*m.ObjectCoverage
	return model.Clamp01(score)
}

// resolutionScore ramps from 0 below the minimum pixel count to a 0.5 floor
// at the minimum, then linearly up to 1.0 at the good pixel count.
func resolutionScore(pixels int) float64 {
	switch {
	case pixels >= goodPixels:
		return 1.0
	case pixels >= minPixels:
		return 0.5 + 0.5*float64(pixels-minPixels)/float64(goodPixels-minPixels)
	default:
		return 0.5 * float64(pixels) / float64(minPixels)
	}
}

// compressionScore proxies compression quality from the file-size-per-pixel
// ratio against an empirical reference. Heavily compressed files score low.
func compressionScore(fileSize, pixels int) float64 {
	if pixels == 0 {
		return 0
	}
	bpp := float64(fileSize) / float64(pixels)
	return model.Clamp01(bpp / refBytesPerPixel)
}

// plane is a sampled grayscale luminance grid in [0,1].
type plane struct {
	w, h int
	px   []float64
}

// luminancePlane converts the image to a luminance grid. Images above
// maxAnalyzePixels are sampled on a fixed stride so results stay
// deterministic for a given input.
func luminancePlane(img image.Image) *plane {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	stride := 1
	for (width/stride)*(height/stride) > maxAnalyzePixels {
		stride++
	}

	w, h := width/stride, height/stride
	p := &plane{w: w, h: h, px: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		sy := bounds.Min.Y + y*stride
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x*stride, sy).RGBA()
			// ITU-R BT.601 luma on 16-bit channel values.
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			p.px[y*w+x] = lum / 65535.0
		}
	}
	return p
}

func (p *plane) at(x, y int) float64 {
	return p.px[y*p.w+x]
}

func (p *plane) mean() float64 {
	var sum float64
	for _, v := range p.px {
		sum += v
	}
	return sum / float64(len(p.px))
}

// rmsContrast is sqrt(mean((pixel - meanBrightness)^2)).
func (p *plane) rmsContrast(mean float64) float64 {
	var sum float64
	for _, v := range p.px {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(p.px)))
}

// laplacianEnergy is the mean squared response of the discrete Laplacian
// kernel [[0,-1,0],[-1,4,-1],[0,-1,0]] over interior pixels.
func (p *plane) laplacianEnergy() float64 {
	if p.w < 3 || p.h < 3 {
		return 0
	}
	var sum float64
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			resp := 4*p.at(x, y) - p.at(x-1, y) - p.at(x+1, y) - p.at(x, y-1) - p.at(x, y+1)
			sum += resp * resp
		}
	}
	return sum / float64((p.w-2)*(p.h-2))
}

// localVariance is the mean of 8-neighbor squared differences divided by 8,
// a crude but fast noise estimate.
func (p *plane) localVariance() float64 {
	if p.w < 3 || p.h < 3 {
		return 0
	}
	var sum float64
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			c := p.at(x, y)
			var local float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					d := p.at(x+dx, y+dy) - c
					local += d * d
				}
			}
			sum += local / 8
		}
	}
	return sum / float64((p.w-2)*(p.h-2))
}

// sobelEnergy is the mean gradient magnitude from the 3x3 Sobel operators.
func (p *plane) sobelEnergy() float64 {
	if p.w < 3 || p.h < 3 {
		return 0
	}
	var sum float64
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			gx := -p.at(x-1, y-1) + p.at(x+1, y-1) +
				-2*p.at(x-1, y) + 2*p.at(x+1, y) +
				-p.at(x-1, y+1) + p.at(x+1, y+1)
			gy := -p.at(x-1, y-1) - 2*p.at(x, y-1) - p.at(x+1, y-1) +
				p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1)
			sum += math.Sqrt(gx*gx + gy*gy)
		}
	}
	return sum / float64((p.w-2)*(p.h-2))
}
