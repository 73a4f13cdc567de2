package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file. A missing
// file yields Defaults(); fields absent from the file keep their defaults.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, err
	}

	var yamlConfig ConfigYAML
	if err := yaml.Unmarshal(cfgFile, &yamlConfig); err != nil {
		return nil, err
	}

	config := yamlConfig.toConfigData()
	applyDefaults(config)
	return config, nil
}

// IsReadOnly returns true; YAML configuration is edited by hand
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML files
func (y *YAMLProvider) Close() error {
	return nil
}

// ConfigYAML is the on-disk layout of a YAML configuration file
type ConfigYAML struct {
	Library    LibraryYAML    `yaml:"library"`
	Output     OutputYAML     `yaml:"output,omitempty"`
	Derivative DerivativeYAML `yaml:"derivative,omitempty"`
	Plot       PlotYAML       `yaml:"plot,omitempty"`
	SWIR       *SWIRYAML      `yaml:"swir,omitempty"`
	Export     *ExportYAML    `yaml:"export,omitempty"`
	Geochem    GeochemYAML    `yaml:"geochem,omitempty"`
	Classifier ClassifierYAML `yaml:"classifier,omitempty"`
	Logging    LoggingYAML    `yaml:"logging,omitempty"`
}

type LibraryYAML struct {
	Dir            string   `yaml:"dir"`
	WavelengthFile string   `yaml:"wavelength-file,omitempty"`
	Minerals       []string `yaml:"minerals,omitempty"`
	Extension      string   `yaml:"extension,omitempty"`
	Tags           []string `yaml:"tags,omitempty"`
}

type OutputYAML struct {
	Dir string `yaml:"dir,omitempty"`
}

type DerivativeYAML struct {
	WindowLength int `yaml:"window-length,omitempty"`
	PolyOrder    int `yaml:"polyorder,omitempty"`
}

type PlotYAML struct {
	DPI      int     `yaml:"dpi,omitempty"`
	WidthIn  float64 `yaml:"width-in,omitempty"`
	HeightIn float64 `yaml:"height-in,omitempty"`
}

type SWIRYAML struct {
	Enabled bool    `yaml:"enabled"`
	Min     float64 `yaml:"min,omitempty"`
	Max     float64 `yaml:"max,omitempty"`
}

type ExportYAML struct {
	CSV bool `yaml:"csv"`
}

type GeochemYAML struct {
	Workbook string `yaml:"workbook,omitempty"`
}

type ClassifierYAML struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	Model       string `yaml:"model,omitempty"`
	TokenEnv    string `yaml:"token-env,omitempty"`
	TimeoutSecs int    `yaml:"timeout-secs,omitempty"`
}

type LoggingYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
}

func (y ConfigYAML) toConfigData() *ConfigData {
	d := Defaults()

	config := &ConfigData{
		Library: LibraryData{
			Dir:            y.Library.Dir,
			WavelengthFile: y.Library.WavelengthFile,
			Minerals:       y.Library.Minerals,
			Extension:      y.Library.Extension,
			Tags:           y.Library.Tags,
		},
		Output: OutputData{Dir: y.Output.Dir},
		Derivative: DerivativeData{
			WindowLength: y.Derivative.WindowLength,
			PolyOrder:    y.Derivative.PolyOrder,
		},
		Plot: PlotData{
			DPI:      y.Plot.DPI,
			WidthIn:  y.Plot.WidthIn,
			HeightIn: y.Plot.HeightIn,
		},
		SWIR:    d.SWIR,
		Export:  d.Export,
		Geochem: GeochemData{Workbook: y.Geochem.Workbook},
		Classifier: ClassifierData{
			Endpoint:    y.Classifier.Endpoint,
			Model:       y.Classifier.Model,
			TokenEnv:    y.Classifier.TokenEnv,
			TimeoutSecs: y.Classifier.TimeoutSecs,
		},
		Logging: LoggingData{
			File:       y.Logging.File,
			MaxSizeMB:  y.Logging.MaxSizeMB,
			MaxBackups: y.Logging.MaxBackups,
		},
	}

	// Sections with booleans are pointers so an absent section keeps its defaults
	if y.SWIR != nil {
		config.SWIR = SWIRData{Enabled: y.SWIR.Enabled, Min: y.SWIR.Min, Max: y.SWIR.Max}
	}
	if y.Export != nil {
		config.Export = ExportData{CSV: y.Export.CSV}
	}

	return config
}
