package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/chrissnell/mineralspec/internal/log"
	"github.com/chrissnell/mineralspec/internal/pipeline"
	"github.com/chrissnell/mineralspec/pkg/config"
	"github.com/joho/godotenv"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	outputDir := flag.String("output", "", "Override the output directory from the configuration")
	swir := flag.Bool("swir", false, "Also render SWIR (1.4-2.5 μm) plots")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("spectral-pipeline %s\n", version)
		os.Exit(0)
	}

	_ = godotenv.Load()

	if err := log.Init(*debug, log.FileOptions{}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if cfgData.Logging.File != "" {
		err := log.Init(*debug, log.FileOptions{
			Path:       cfgData.Logging.File,
			MaxSizeMB:  cfgData.Logging.MaxSizeMB,
			MaxBackups: cfgData.Logging.MaxBackups,
		})
		if err != nil {
			log.Errorf("Failed to open log file %s: %v", cfgData.Logging.File, err)
			os.Exit(1)
		}
	}

	if *outputDir != "" {
		cfgData.Output.Dir = *outputDir
	}
	if *swir {
		cfgData.SWIR.Enabled = true
	}
	if err := cfgData.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	cwd, _ := os.Getwd()
	log.Infof("Current working directory: %s", cwd)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := pipeline.New(pipeline.NewConfig(cfgData), log.GetSugaredLogger())
	report, err := p.Run(ctx)
	if err != nil {
		log.Errorf("Pipeline error: %v", err)
		log.Sync()
		os.Exit(1)
	}

	log.Infof("Processed %d of %d minerals, wrote %d files", len(report.Minerals), len(cfgData.Library.Minerals), len(report.Artifacts))
	for _, f := range report.Failures {
		log.Warnf("%s", f)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
