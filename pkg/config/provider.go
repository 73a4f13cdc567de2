package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Library    LibraryData    `json:"library"`
	Output     OutputData     `json:"output"`
	Derivative DerivativeData `json:"derivative"`
	Plot       PlotData       `json:"plot"`
	SWIR       SWIRData       `json:"swir"`
	Export     ExportData     `json:"export"`
	Geochem    GeochemData    `json:"geochem"`
	Classifier ClassifierData `json:"classifier"`
	Logging    LoggingData    `json:"logging"`
}

// LibraryData describes where the spectral library lives and which samples to select
type LibraryData struct {
	Dir string `json:"dir"`

	// WavelengthFile is resolved against the parent of Dir unless absolute
	WavelengthFile string   `json:"wavelength_file"`
	Minerals       []string `json:"minerals"`
	Extension      string   `json:"extension"`
	Tags           []string `json:"tags"`
}

// WavelengthPath returns the resolved path of the wavelength reference file
func (l LibraryData) WavelengthPath() string {
	if filepath.IsAbs(l.WavelengthFile) {
		return l.WavelengthFile
	}
	return filepath.Join(l.Dir, "..", l.WavelengthFile)
}

type OutputData struct {
	Dir string `json:"dir"`
}

type DerivativeData struct {
	WindowLength int `json:"window_length"`
	PolyOrder    int `json:"polyorder"`
}

type PlotData struct {
	DPI      int     `json:"dpi"`
	WidthIn  float64 `json:"width_in"`
	HeightIn float64 `json:"height_in"`
}

// SWIRData enables the additional band-restricted plots
type SWIRData struct {
	Enabled bool    `json:"enabled"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

type ExportData struct {
	CSV bool `json:"csv"`
}

// GeochemData points at an optional geochemistry workbook analyzed after plotting
type GeochemData struct {
	Workbook string `json:"workbook,omitempty"`
}

// ClassifierData configures the remote image-classification model
type ClassifierData struct {
	Endpoint    string `json:"endpoint"`
	Model       string `json:"model"`
	TokenEnv    string `json:"token_env,omitempty"`
	TimeoutSecs int    `json:"timeout_secs"`
}

type LoggingData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// DefaultMinerals are the clay, carbonate and framework silicate minerals processed by default
var DefaultMinerals = []string{
	"smectite",
	"illite",
	"chlorite",
	"kaolinite",
	"dolomite",
	"calcite",
	"quartz",
	"feldspar",
}

// Defaults returns the configuration used when no config source is available
func Defaults() *ConfigData {
	return &ConfigData{
		Library: LibraryData{
			Dir:            filepath.Join("ASCIIdata", "ASCIIdata_splib07b", "ChapterM_Minerals"),
			WavelengthFile: "splib07b_Wavelengths_ASDFR_0.35-2.5microns_2151ch.txt",
			Minerals:       append([]string(nil), DefaultMinerals...),
			Extension:      ".txt",
			Tags:           []string{"ASDFR", "AREF"},
		},
		Output: OutputData{Dir: "."},
		Derivative: DerivativeData{
			WindowLength: 5,
			PolyOrder:    2,
		},
		Plot: PlotData{
			DPI:      300,
			WidthIn:  12,
			HeightIn: 6,
		},
		SWIR: SWIRData{
			Enabled: false,
			Min:     1.4,
			Max:     2.5,
		},
		Export: ExportData{CSV: true},
		Classifier: ClassifierData{
			Endpoint:    "http://127.0.0.1:8500/v1/classify",
			Model:       "microsoft/resnet-50",
			TokenEnv:    "HF_TOKEN",
			TimeoutSecs: 60,
		},
	}
}

// applyDefaults fills zero-valued fields from Defaults
func applyDefaults(c *ConfigData) {
	d := Defaults()

	if c.Library.Dir == "" {
		c.Library.Dir = d.Library.Dir
	}
	if c.Library.WavelengthFile == "" {
		c.Library.WavelengthFile = d.Library.WavelengthFile
	}
	if len(c.Library.Minerals) == 0 {
		c.Library.Minerals = d.Library.Minerals
	}
	if c.Library.Extension == "" {
		c.Library.Extension = d.Library.Extension
	}
	if c.Library.Tags == nil {
		c.Library.Tags = d.Library.Tags
	}
	if c.Output.Dir == "" {
		c.Output.Dir = d.Output.Dir
	}
	if c.Derivative.WindowLength == 0 {
		c.Derivative = d.Derivative
	}
	if c.Plot.DPI == 0 {
		c.Plot.DPI = d.Plot.DPI
	}
	if c.Plot.WidthIn == 0 {
		c.Plot.WidthIn = d.Plot.WidthIn
	}
	if c.Plot.HeightIn == 0 {
		c.Plot.HeightIn = d.Plot.HeightIn
	}
	if c.SWIR.Min == 0 && c.SWIR.Max == 0 {
		c.SWIR.Min, c.SWIR.Max = d.SWIR.Min, d.SWIR.Max
	}
	if c.Classifier.Endpoint == "" {
		c.Classifier.Endpoint = d.Classifier.Endpoint
	}
	if c.Classifier.Model == "" {
		c.Classifier.Model = d.Classifier.Model
	}
	if c.Classifier.TokenEnv == "" {
		c.Classifier.TokenEnv = d.Classifier.TokenEnv
	}
	if c.Classifier.TimeoutSecs == 0 {
		c.Classifier.TimeoutSecs = d.Classifier.TimeoutSecs
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *ConfigData) Validate() error {
	var errs []error

	if c.Library.Dir == "" {
		errs = append(errs, errors.New("library dir is required"))
	}
	if len(c.Library.Minerals) == 0 {
		errs = append(errs, errors.New("at least one mineral is required"))
	}
	for i, m := range c.Library.Minerals {
		if m == "" {
			errs = append(errs, fmt.Errorf("mineral %d is empty", i+1))
		}
	}
	if c.Derivative.WindowLength < 1 || c.Derivative.WindowLength%2 == 0 {
		errs = append(errs, fmt.Errorf("derivative window length must be a positive odd integer, got %d", c.Derivative.WindowLength))
	}
	if c.Derivative.PolyOrder < 0 || c.Derivative.PolyOrder >= c.Derivative.WindowLength {
		errs = append(errs, fmt.Errorf("derivative polyorder %d must be less than window length %d", c.Derivative.PolyOrder, c.Derivative.WindowLength))
	}
	if c.Plot.DPI <= 0 {
		errs = append(errs, fmt.Errorf("plot dpi must be positive, got %d", c.Plot.DPI))
	}
	if c.Plot.WidthIn <= 0 || c.Plot.HeightIn <= 0 {
		errs = append(errs, fmt.Errorf("plot size must be positive, got %gx%g in", c.Plot.WidthIn, c.Plot.HeightIn))
	}
	if c.SWIR.Enabled && c.SWIR.Min >= c.SWIR.Max {
		errs = append(errs, fmt.Errorf("swir band min %g must be below max %g", c.SWIR.Min, c.SWIR.Max))
	}

	return errors.Join(errs...)
}
