// Package classify runs a reflectance spectrum through a pretrained image
// classifier by rendering it as a plot image first.
package classify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/chrissnell/mineralspec/internal/plot"
	"github.com/chrissnell/mineralspec/internal/spectra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"
)

// ErrEmptyLogits is returned when the model produced no output
var ErrEmptyLogits = errors.New("model returned no logits")

// Result holds the class probabilities for one spectrum
type Result struct {
	Probabilities []float64
	Confidence    float64
	Index         int

	// Label is the name of the most probable class when the model reports labels
	Label string
}

// Analyzer renders spectra to images and classifies them
type Analyzer struct {
	Model     Model
	Extractor FeatureExtractor
	Renderer  *plot.Renderer

	// TempDir holds the intermediate plot image; empty means os.TempDir()
	TempDir string

	logger *zap.SugaredLogger
}

// NewAnalyzer returns an Analyzer that draws 10x6 inch plots at 100 DPI
func NewAnalyzer(model Model, logger *zap.SugaredLogger) *Analyzer {
	r := plot.NewRenderer(logger)
	r.Width = 10 * vg.Inch
	r.Height = 6 * vg.Inch
	r.DPI = 100

	return &Analyzer{
		Model:     model,
		Extractor: DefaultFeatureExtractor(),
		Renderer:  r,
		logger:    logger,
	}
}

// Analyze classifies the spectrum (wavelengths, reflectance)
func (a *Analyzer) Analyze(ctx context.Context, wavelengths, reflectance []float64) (*Result, error) {
	if err := spectra.CheckLengths(wavelengths, reflectance); err != nil {
		return nil, err
	}

	img, err := a.PrepareImage(wavelengths, reflectance)
	if err != nil {
		return nil, err
	}

	logits, err := a.Model.Logits(ctx, a.Extractor.Extract(img))
	if err != nil {
		return nil, err
	}
	if len(logits.Values) == 0 {
		return nil, ErrEmptyLogits
	}

	probs := Softmax(logits.Values)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	result := &Result{
		Probabilities: probs,
		Confidence:    probs[best],
		Index:         best,
	}
	if best < len(logits.Labels) {
		result.Label = logits.Labels[best]
	}
	return result, nil
}

// PrepareImage renders the spectrum to a temporary PNG and loads it back.
// The temporary file is removed before returning, on every path.
func (a *Analyzer) PrepareImage(wavelengths, reflectance []float64) (image.Image, error) {
	f, err := os.CreateTemp(a.TempDir, "spectrum-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary image: %w", err)
	}
	name := f.Name()
	defer func() {
		f.Close()
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			a.logger.Warnf("failed to remove temporary image %s: %v", name, err)
		}
	}()

	err = a.Renderer.WriteImage(f, plot.Request{
		Series:      []plot.Series{{Values: reflectance}},
		Wavelengths: wavelengths,
	})
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temporary image: %w", err)
	}

	in, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen temporary image: %w", err)
	}
	defer in.Close()

	img, err := png.Decode(in)
	if err != nil {
		return nil, fmt.Errorf("failed to decode temporary image: %w", err)
	}
	return img, nil
}

// Softmax converts logits to probabilities
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
