// Package pipeline drives batch processing of a spectral library: it
// discovers the samples for each configured mineral, plots their spectra
// and derivatives, exports processed CSVs and draws a combined view.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chrissnell/mineralspec/internal/discovery"
	"github.com/chrissnell/mineralspec/internal/export"
	"github.com/chrissnell/mineralspec/internal/geochem"
	"github.com/chrissnell/mineralspec/internal/plot"
	"github.com/chrissnell/mineralspec/internal/savgol"
	"github.com/chrissnell/mineralspec/internal/spectra"
	"github.com/chrissnell/mineralspec/pkg/config"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"
)

// ErrWavelengths is returned by Run when the wavelength reference cannot be loaded
var ErrWavelengths = errors.New("failed to read wavelength file")

// Config holds everything a pipeline run needs
type Config struct {
	LibraryDir     string
	WavelengthFile string
	Minerals       []string
	Finder         discovery.Finder
	OutputDir      string

	// SWIR enables the band-restricted plots when non-nil
	SWIR *plot.Band

	ExportCSV bool

	// GeochemWorkbook is analyzed once after plotting when set
	GeochemWorkbook string

	Derivative savgol.Params
	DPI        int
	WidthIn    float64
	HeightIn   float64
}

// NewConfig builds a pipeline Config from loaded configuration data
func NewConfig(c *config.ConfigData) Config {
	cfg := Config{
		LibraryDir:     c.Library.Dir,
		WavelengthFile: c.Library.WavelengthPath(),
		Minerals:       c.Library.Minerals,
		Finder: discovery.Finder{
			Extension: c.Library.Extension,
			Tags:      c.Library.Tags,
		},
		OutputDir:       c.Output.Dir,
		ExportCSV:       c.Export.CSV,
		GeochemWorkbook: c.Geochem.Workbook,
		DPI:             c.Plot.DPI,
		WidthIn:         c.Plot.WidthIn,
		HeightIn:        c.Plot.HeightIn,
	}

	cfg.Derivative = savgol.DefaultParams()
	cfg.Derivative.WindowLength = c.Derivative.WindowLength
	cfg.Derivative.PolyOrder = c.Derivative.PolyOrder

	if c.SWIR.Enabled {
		cfg.SWIR = &plot.Band{Min: c.SWIR.Min, Max: c.SWIR.Max}
	}
	return cfg
}

// Failure records one unit of work that did not complete
type Failure struct {
	Mineral string
	Path    string
	Stage   string
	Err     error
}

func (f Failure) String() string {
	if f.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", f.Mineral, f.Stage, f.Path, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Mineral, f.Stage, f.Err)
}

// Report summarizes a pipeline run
type Report struct {
	// Minerals lists the minerals that had at least one readable sample
	Minerals  []string
	Artifacts []string
	Failures  []Failure

	// Combined maps each mineral to the sample path drawn in the combined view
	Combined map[string]string
}

// Pipeline processes a spectral library
type Pipeline struct {
	cfg      Config
	logger   *zap.SugaredLogger
	renderer *plot.Renderer
	geochem  geochem.Analyzer

	readWavelengths func(string) (spectra.Wavelengths, error)
	readReflectance func(string) (spectra.Reflectance, error)
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithGeochem replaces the geochemistry collaborator
func WithGeochem(a geochem.Analyzer) Option {
	return func(p *Pipeline) {
		p.geochem = a
	}
}

// WithRenderer replaces the plot renderer
func WithRenderer(r *plot.Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// New creates a pipeline. A zero Derivative window selects
// savgol.DefaultParams; the derivative order is always at least 1.
func New(cfg Config, logger *zap.SugaredLogger, opts ...Option) *Pipeline {
	if cfg.Derivative.WindowLength == 0 {
		cfg.Derivative = savgol.DefaultParams()
	}
	if cfg.Derivative.Deriv == 0 {
		cfg.Derivative.Deriv = 1
	}

	r := plot.NewRenderer(logger)
	if cfg.DPI > 0 {
		r.DPI = cfg.DPI
	}
	if cfg.WidthIn > 0 && cfg.HeightIn > 0 {
		r.Width = vg.Length(cfg.WidthIn) * vg.Inch
		r.Height = vg.Length(cfg.HeightIn) * vg.Inch
	}

	p := &Pipeline{
		cfg:             cfg,
		logger:          logger,
		renderer:        r,
		geochem:         geochem.WorkbookAnalyzer{},
		readWavelengths: spectra.ReadWavelengths,
		readReflectance: spectra.ReadReflectance,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.renderer.Derivative = p.derivative
	return p
}

func (p *Pipeline) derivative(x []float64) ([]float64, error) {
	return savgol.Filter(x, p.cfg.Derivative)
}

// Run processes every configured mineral. Only a failure to load the
// wavelength reference aborts the run; everything else is logged, recorded
// in the report and skipped.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	p.logger.Infof("Base path: %s", p.cfg.LibraryDir)

	wavelengths, err := p.readWavelengths(p.cfg.WavelengthFile)
	if err != nil {
		p.logger.Errorf("Failed to read wavelength file: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrWavelengths, err)
	}
	p.logger.Infof("Successfully read %d wavelength values", len(wavelengths))

	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", p.cfg.OutputDir, err)
	}

	report := &Report{}
	var records []spectra.MineralRecord

	for _, mineral := range p.cfg.Minerals {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		p.logger.Infof("Processing %s...", mineral)
		record := p.collect(mineral, report)
		if len(record.Samples) == 0 {
			p.logger.Infof("No data found for %s", mineral)
			continue
		}
		p.logger.Infof("Found %d samples for %s", len(record.Samples), mineral)

		records = append(records, record)
		report.Minerals = append(report.Minerals, mineral)
		p.processMineral(record, wavelengths, report)
	}

	if len(records) > 0 {
		p.plotCombined(records, wavelengths, report)
	}

	if p.cfg.GeochemWorkbook != "" {
		p.analyzeGeochem(report)
	}

	return report, nil
}

// collect discovers and reads the samples for one mineral
func (p *Pipeline) collect(mineral string, report *Report) spectra.MineralRecord {
	record := spectra.MineralRecord{Mineral: mineral}

	files, err := p.cfg.Finder.Find(mineral, p.cfg.LibraryDir)
	if err != nil {
		if errors.Is(err, discovery.ErrBaseDirNotFound) {
			p.logger.Errorf("Directory not found: %s", p.cfg.LibraryDir)
		} else {
			p.logger.Errorf("Error finding files for %s: %v", mineral, err)
		}
		report.fail(mineral, "", "discover", err)
		return record
	}
	p.logger.Infof("Found %d files for %s", len(files), mineral)

	for _, path := range files {
		r, err := p.readReflectance(path)
		if err != nil {
			p.logger.Warnf("No valid data found in %s: %v", filepath.Base(path), err)
			report.fail(mineral, path, "read", err)
			continue
		}
		p.logger.Infof("Successfully processed %s", filepath.Base(path))
		record.Samples = append(record.Samples, spectra.Sample{Path: path, Reflectance: r})
	}
	return record
}

func (p *Pipeline) processMineral(record spectra.MineralRecord, wavelengths spectra.Wavelengths, report *Report) {
	series := make([]plot.Series, len(record.Samples))
	for i, s := range record.Samples {
		series[i] = plot.Series{Label: s.Path, Values: s.Reflectance}
	}

	name := capitalize(record.Mineral)
	p.plotViews(record.Mineral, name, series, wavelengths, report)

	if !p.cfg.ExportCSV {
		return
	}
	for _, s := range record.Samples {
		p.exportSample(record.Mineral, s, wavelengths, report)
	}
}

func (p *Pipeline) exportSample(mineral string, s spectra.Sample, wavelengths spectra.Wavelengths, report *Report) {
	out := filepath.Join(p.cfg.OutputDir, export.ProcessedFileName(mineral, s.Path))

	d, err := p.derivative(s.Reflectance)
	if err != nil {
		p.logger.Warnf("Error calculating derivative for %s: %v", filepath.Base(s.Path), err)
		d = nil
	}

	if err := export.WriteProcessedCSV(out, wavelengths, s.Reflectance, d); err != nil {
		p.logger.Errorf("Error saving processed data: %v", err)
		report.fail(mineral, s.Path, "export", err)
		return
	}
	p.logger.Infof("Saved processed data to %s", out)
	report.Artifacts = append(report.Artifacts, out)
}

// plotCombined draws the first sample of every mineral on one figure
func (p *Pipeline) plotCombined(records []spectra.MineralRecord, wavelengths spectra.Wavelengths, report *Report) {
	var series []plot.Series
	for _, rec := range records {
		first, ok := rec.First()
		if !ok {
			continue
		}
		series = append(series, plot.Series{Label: rec.Mineral, Values: first.Reflectance})
		if report.Combined == nil {
			report.Combined = make(map[string]string)
		}
		report.Combined[rec.Mineral] = first.Path
		p.logger.Debugf("Combined view uses %s for %s", filepath.Base(first.Path), rec.Mineral)
	}
	p.plotViews("combined", "Combined Mineral", series, wavelengths, report)
}

// view is one figure drawn for a set of series
type view struct {
	suffix     string
	title      string
	derivative bool
	band       *plot.Band
	labels     plot.LabelStyle
}

// plotViews renders the spectra and derivative figures for series, plus the
// SWIR variants when enabled
func (p *Pipeline) plotViews(prefix, title string, series []plot.Series, wavelengths spectra.Wavelengths, report *Report) {
	views := []view{
		{"spectra", title + " Spectra", false, nil, plot.LabelBasename},
		{"derivative", title + " Derivative Spectra", true, nil, plot.LabelBasename},
	}
	if b := p.cfg.SWIR; b != nil {
		band := fmt.Sprintf(" (%g-%g μm)", b.Min, b.Max)
		views = append(views,
			view{"swir_spectra", title + " SWIR Spectra" + band, false, b, plot.LabelFirstToken},
			view{"swir_derivative", title + " SWIR Derivative Spectra" + band, true, b, plot.LabelFirstToken},
		)
	}

	for _, v := range views {
		out := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_%s.png", prefix, v.suffix))
		err := p.renderer.Render(plot.Request{
			Series:      series,
			Wavelengths: wavelengths,
			Title:       v.title,
			Output:      out,
			Derivative:  v.derivative,
			Band:        v.band,
			Labels:      v.labels,
		})
		if err != nil {
			p.logger.Errorf("Error plotting spectra: %v", err)
			report.fail(prefix, out, "plot", err)
			continue
		}
		report.Artifacts = append(report.Artifacts, out)
	}
}

func (p *Pipeline) analyzeGeochem(report *Report) {
	path := p.cfg.GeochemWorkbook
	p.logger.Infof("Analyzing geochemical data in %s", path)

	summary, err := p.geochem.Analyze(path)
	if err != nil {
		p.logger.Errorf("Error analyzing geochemical data: %v", err)
		report.fail("geochem", path, "analyze", err)
		return
	}
	if summary == nil {
		return
	}

	p.logger.Infof("Geochemical workbook %s: %d rows, %d numeric columns on sheet %s",
		filepath.Base(path), summary.Rows, len(summary.Columns), summary.Sheet)
	for _, c := range summary.Columns {
		p.logger.Debugf("%s: n=%d mean=%.4f std=%.4f min=%.4f max=%.4f",
			c.Name, c.Count, c.Mean, c.StdDev, c.Min, c.Max)
	}
}

func (r *Report) fail(mineral, path, stage string, err error) {
	r.Failures = append(r.Failures, Failure{
		Mineral: mineral,
		Path:    path,
		Stage:   stage,
		Err:     err,
	})
}

// capitalize upper-cases the first rune and lower-cases the rest
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
