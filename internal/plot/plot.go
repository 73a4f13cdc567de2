// Package plot renders reflectance and derivative spectra as PNG line plots.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chrissnell/mineralspec/internal/savgol"
	"github.com/chrissnell/mineralspec/internal/spectra"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNothingToPlot is returned when every series in a request was skipped
var ErrNothingToPlot = errors.New("no series could be plotted")

const (
	// DefaultDPI is the resolution of pipeline plots
	DefaultDPI = 300

	wavelengthLabel  = "Wavelength (μm)"
	reflectanceLabel = "Reflectance"
	derivativeLabel  = "First Derivative"
)

// Band is an inclusive wavelength range in micrometers
type Band struct {
	Min float64
	Max float64
}

// SWIRBand is the short-wave infrared window used for clay and carbonate features
var SWIRBand = Band{Min: 1.4, Max: 2.5}

// Contains reports whether x lies within the band, endpoints included
func (b Band) Contains(x float64) bool {
	return x >= b.Min && x <= b.Max
}

// Mask returns the points of (w, y) whose wavelength falls inside band.
// w and y must have the same length.
func Mask(w, y []float64, band Band) ([]float64, []float64) {
	var wm, ym []float64
	for i, x := range w {
		if band.Contains(x) {
			wm = append(wm, x)
			ym = append(ym, y[i])
		}
	}
	return wm, ym
}

// LabelStyle controls how a series label is turned into a legend entry
type LabelStyle int

const (
	// LabelBasename uses the final path element of the label
	LabelBasename LabelStyle = iota

	// LabelFirstToken uses the part of the basename before the first underscore
	LabelFirstToken
)

// Label formats a series label for the legend
func (s LabelStyle) Label(label string) string {
	base := filepath.Base(label)
	if s == LabelFirstToken {
		if i := strings.Index(base, "_"); i >= 0 {
			return base[:i]
		}
	}
	return base
}

// Series is one labeled curve. Label is usually a sample path or a mineral name.
type Series struct {
	Label  string
	Values []float64
}

// Request describes one figure
type Request struct {
	Series      []Series
	Wavelengths []float64
	Title       string
	Output      string

	// Derivative plots the first derivative of each series instead of its values
	Derivative bool

	// Band restricts both axes to a wavelength range; nil plots the full spectrum
	Band *Band

	Labels LabelStyle
}

// Renderer draws Requests to PNG files
type Renderer struct {
	Width  vg.Length
	Height vg.Length
	DPI    int

	// Derivative computes the derivative series for derivative plots
	Derivative func([]float64) ([]float64, error)

	logger *zap.SugaredLogger
}

// NewRenderer returns a Renderer producing 12x6 inch figures at 300 DPI
func NewRenderer(logger *zap.SugaredLogger) *Renderer {
	return &Renderer{
		Width:      12 * vg.Inch,
		Height:     6 * vg.Inch,
		DPI:        DefaultDPI,
		Derivative: savgol.Derivative,
		logger:     logger,
	}
}

// Render draws req and writes it to req.Output. The image is encoded in
// memory first so a failed render never leaves a partial file behind.
func (r *Renderer) Render(req Request) error {
	var buf bytes.Buffer
	if err := r.WriteImage(&buf, req); err != nil {
		return err
	}

	f, err := os.Create(req.Output)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", req.Output, err)
	}
	defer f.Close()

	if _, err := buf.WriteTo(f); err != nil {
		return fmt.Errorf("error writing %s: %w", req.Output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", req.Output, err)
	}

	r.logger.Infof("Successfully saved plot to %s", req.Output)
	return nil
}

// WriteImage draws req and encodes it as PNG to w
func (r *Renderer) WriteImage(w io.Writer, req Request) (err error) {
	// gonum/plot panics on some degenerate axis ranges
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("error plotting spectra: %v", rec)
		}
	}()

	p, err := r.build(req)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(vgimg.UseWH(r.Width, r.Height), vgimg.UseDPI(r.DPI))
	p.Draw(draw.New(c))

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("error encoding PNG: %w", err)
	}
	return nil
}

func (r *Renderer) build(req Request) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = req.Title
	p.X.Label.Text = wavelengthLabel
	if req.Derivative {
		p.Y.Label.Text = derivativeLabel
	} else {
		p.Y.Label.Text = reflectanceLabel
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	plotted := 0
	for i, s := range req.Series {
		pts, err := r.points(req, s)
		if err != nil {
			r.logger.Warnf("skipping %s in %q: %v", s.Label, req.Title, err)
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			r.logger.Warnf("skipping %s in %q: %v", s.Label, req.Title, err)
			continue
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		if s.Label != "" {
			p.Legend.Add(req.Labels.Label(s.Label), line)
		}
		plotted++
	}

	if plotted == 0 {
		return nil, ErrNothingToPlot
	}
	return p, nil
}

// points computes the x/y pairs for one series, applying the derivative and band mask
func (r *Renderer) points(req Request, s Series) (plotter.XYs, error) {
	y := s.Values
	if req.Derivative {
		d, err := r.Derivative(s.Values)
		if err != nil {
			return nil, fmt.Errorf("error calculating derivative: %w", err)
		}
		y = d
	}

	if err := spectra.CheckLengths(req.Wavelengths, y); err != nil {
		return nil, err
	}

	w := req.Wavelengths
	if req.Band != nil {
		w, y = Mask(w, y, *req.Band)
		if len(w) == 0 {
			return nil, fmt.Errorf("no points inside band %.2f-%.2f", req.Band.Min, req.Band.Max)
		}
	}

	pts := make(plotter.XYs, len(w))
	for i := range w {
		pts[i].X = w[i]
		pts[i].Y = y[i]
	}
	return pts, nil
}
