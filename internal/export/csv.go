// Package export writes processed spectra to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chrissnell/mineralspec/internal/spectra"
)

// Header is the column layout of a processed spectrum CSV
var Header = []string{"wavelength", "reflectance", "derivative"}

// Processed holds the columns of a processed spectrum CSV
type Processed struct {
	Wavelengths []float64
	Reflectance []float64

	// Derivative is nil when the derivative could not be computed
	Derivative []float64
}

// ProcessedFileName returns the CSV name for a sample, e.g.
// "quartz_Quartz_GDS31_AREF_ASDFRb_processed.csv"
func ProcessedFileName(mineral, samplePath string) string {
	base := strings.ReplaceAll(filepath.Base(samplePath), ".txt", "")
	return fmt.Sprintf("%s_%s_processed.csv", mineral, base)
}

// WriteProcessedCSV writes one row per wavelength. Values are formatted with
// the shortest representation that parses back to the same float64. A nil
// derivative leaves the derivative column empty.
func WriteProcessedCSV(path string, w spectra.Wavelengths, r spectra.Reflectance, d []float64) error {
	if err := spectra.CheckLengths(w, r); err != nil {
		return err
	}
	if d != nil {
		if err := spectra.CheckLengths(w, d); err != nil {
			return fmt.Errorf("derivative: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(Header); err != nil {
		return err
	}

	for i := range w {
		record := []string{formatFloat(w[i]), formatFloat(r[i]), ""}
		if d != nil {
			record[2] = formatFloat(d[i])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// ReadProcessedCSV reads a file written by WriteProcessedCSV
func ReadProcessedCSV(path string) (*Processed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(Header)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty CSV", path)
	}
	for i, h := range Header {
		if rows[0][i] != h {
			return nil, fmt.Errorf("%s: unexpected column %d header %q", path, i+1, rows[0][i])
		}
	}

	p := &Processed{}
	hasDerivative := true
	for n, row := range rows[1:] {
		wv, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, n+2, err)
		}
		rv, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, n+2, err)
		}
		p.Wavelengths = append(p.Wavelengths, wv)
		p.Reflectance = append(p.Reflectance, rv)

		if row[2] == "" {
			hasDerivative = false
			continue
		}
		dv, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, n+2, err)
		}
		p.Derivative = append(p.Derivative, dv)
	}

	if !hasDerivative {
		p.Derivative = nil
	}
	return p, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
