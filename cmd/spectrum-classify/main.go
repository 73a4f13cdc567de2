package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chrissnell/mineralspec/internal/classify"
	"github.com/chrissnell/mineralspec/internal/log"
	"github.com/chrissnell/mineralspec/internal/spectra"
	"github.com/chrissnell/mineralspec/pkg/config"
	"github.com/joho/godotenv"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	wavelengthFile := flag.String("wavelengths", "", "Wavelength reference file (default: from configuration)")
	spectrumFile := flag.String("spectrum", "", "Reflectance file to classify (required)")
	endpoint := flag.String("endpoint", "", "Override the model server endpoint")
	top := flag.Int("top", 5, "Number of classes to print")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if *spectrumFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -spectrum <file.txt> [-wavelengths <file.txt>]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	_ = godotenv.Load()

	if err := log.Init(*debug, log.FileOptions{}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	filename, _ := filepath.Abs(*cfgFile)
	cfgData, err := config.NewYAMLProvider(filename).LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *endpoint != "" {
		cfgData.Classifier.Endpoint = *endpoint
	}
	if *wavelengthFile == "" {
		*wavelengthFile = cfgData.Library.WavelengthPath()
	}

	wavelengths, err := spectra.ReadWavelengths(*wavelengthFile)
	if err != nil {
		log.Fatalf("Failed to read wavelength file: %v", err)
	}
	reflectance, err := spectra.ReadReflectance(*spectrumFile)
	if err != nil {
		log.Fatalf("Failed to read spectrum: %v", err)
	}

	model := classify.NewHTTPModel(classify.HTTPModelConfig{
		Endpoint: cfgData.Classifier.Endpoint,
		Model:    cfgData.Classifier.Model,
		TokenEnv: cfgData.Classifier.TokenEnv,
		Timeout:  time.Duration(cfgData.Classifier.TimeoutSecs) * time.Second,
	}, log.GetSugaredLogger())

	analyzer := classify.NewAnalyzer(model, log.GetSugaredLogger())
	result, err := analyzer.Analyze(context.Background(), wavelengths, reflectance)
	if err != nil {
		log.Fatalf("Classification failed: %v", err)
	}

	fmt.Printf("Spectrum: %s\n", filepath.Base(*spectrumFile))
	fmt.Printf("Model: %s\n", model.Name())
	fmt.Printf("Top class: %d %s (confidence %.4f)\n", result.Index, result.Label, result.Confidence)

	for i, idx := range topIndices(result.Probabilities, *top) {
		fmt.Printf("  %d. class %d: %.4f\n", i+1, idx, result.Probabilities[idx])
	}
}

// topIndices returns the indices of the n largest probabilities, largest first
func topIndices(probs []float64, n int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}
