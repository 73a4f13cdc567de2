package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleYAML = `
library:
  dir: /data/splib07b/ChapterM_Minerals
  minerals:
    - quartz
    - calcite
  tags: [ASDFR, AREF]
output:
  dir: /tmp/out
derivative:
  window-length: 7
  polyorder: 3
plot:
  dpi: 150
swir:
  enabled: true
export:
  csv: false
geochem:
  workbook: /data/geochem.xlsx
classifier:
  endpoint: http://models.internal/v1/classify
  timeout-secs: 5
logging:
  file: /var/log/mineralspec.log
`

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	cfg, err := NewYAMLProvider(writeYAML(t, sampleYAML)).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Library.Dir != "/data/splib07b/ChapterM_Minerals" {
		t.Errorf("unexpected library dir %q", cfg.Library.Dir)
	}
	if !reflect.DeepEqual(cfg.Library.Minerals, []string{"quartz", "calcite"}) {
		t.Errorf("unexpected minerals %v", cfg.Library.Minerals)
	}
	if cfg.Derivative.WindowLength != 7 || cfg.Derivative.PolyOrder != 3 {
		t.Errorf("unexpected derivative settings %+v", cfg.Derivative)
	}
	if cfg.Plot.DPI != 150 || cfg.Plot.WidthIn != 12 || cfg.Plot.HeightIn != 6 {
		t.Errorf("unexpected plot settings %+v", cfg.Plot)
	}
	if !cfg.SWIR.Enabled || cfg.SWIR.Min != 1.4 || cfg.SWIR.Max != 2.5 {
		t.Errorf("unexpected swir settings %+v", cfg.SWIR)
	}
	if cfg.Export.CSV {
		t.Error("expected csv export to be disabled")
	}
	if cfg.Classifier.Model != "microsoft/resnet-50" || cfg.Classifier.TimeoutSecs != 5 {
		t.Errorf("unexpected classifier settings %+v", cfg.Classifier)
	}
	if cfg.Library.WavelengthFile != Defaults().Library.WavelengthFile {
		t.Errorf("expected default wavelength file, got %q", cfg.Library.WavelengthFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	cfg, err := NewYAMLProvider(filepath.Join(t.TempDir(), "absent.yaml")).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Defaults()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if len(cfg.Library.Minerals) != 8 {
		t.Errorf("expected 8 default minerals, got %d", len(cfg.Library.Minerals))
	}
}

func TestYAMLProviderInvalid(t *testing.T) {
	_, err := NewYAMLProvider(writeYAML(t, "library: [unclosed")).LoadConfig()
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestWavelengthPath(t *testing.T) {
	lib := LibraryData{Dir: filepath.Join("data", "ChapterM_Minerals"), WavelengthFile: "waves.txt"}
	if got := lib.WavelengthPath(); got != filepath.Join("data", "waves.txt") {
		t.Errorf("expected sibling of library dir, got %s", got)
	}

	abs := filepath.Join(t.TempDir(), "waves.txt")
	lib.WavelengthFile = abs
	if got := lib.WavelengthPath(); got != abs {
		t.Errorf("expected absolute path to be kept, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ConfigData)
		wantErr string
	}{
		{"defaults are valid", func(c *ConfigData) {}, ""},
		{"no minerals", func(c *ConfigData) { c.Library.Minerals = nil }, "at least one mineral"},
		{"empty mineral", func(c *ConfigData) { c.Library.Minerals = []string{"quartz", ""} }, "mineral 2 is empty"},
		{"even window", func(c *ConfigData) { c.Derivative.WindowLength = 4 }, "positive odd integer"},
		{"polyorder too high", func(c *ConfigData) { c.Derivative.PolyOrder = 5 }, "must be less than window length"},
		{"bad dpi", func(c *ConfigData) { c.Plot.DPI = 0 }, "dpi must be positive"},
		{"inverted swir band", func(c *ConfigData) { c.SWIR = SWIRData{Enabled: true, Min: 2.5, Max: 1.4} }, "swir band"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	yamlCfg, err := NewYAMLProvider(writeYAML(t, sampleYAML)).LoadConfig()
	if err != nil {
		t.Fatalf("failed to load YAML: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "config.db")
	provider, err := NewSQLiteProvider(dbPath)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	if provider.IsReadOnly() {
		t.Error("expected SQLite provider to be writable")
	}
	if err := provider.SaveConfig(yamlCfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	provider.Close()

	// Reopen to make sure the data was persisted and migrations are idempotent
	provider, err = NewSQLiteProvider(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen provider: %v", err)
	}
	defer provider.Close()

	sqliteCfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(yamlCfg, sqliteCfg) {
		t.Errorf("configs differ\nyaml:   %+v\nsqlite: %+v", yamlCfg, sqliteCfg)
	}
}

func TestSQLiteProviderEmptyDatabase(t *testing.T) {
	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Defaults()) {
		t.Errorf("expected defaults from empty database, got %+v", cfg)
	}
}
