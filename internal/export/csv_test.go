package export

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrissnell/mineralspec/internal/spectra"
)

func TestProcessedFileName(t *testing.T) {
	tests := []struct {
		mineral  string
		path     string
		expected string
	}{
		{"quartz", "/lib/ChapterM/Quartz_AREF_ASDFR.txt", "quartz_Quartz_AREF_ASDFR_processed.csv"},
		{"calcite", "s07_ASD_Calcite_WS272_ASDFRb_AREF.txt", "calcite_s07_ASD_Calcite_WS272_ASDFRb_AREF_processed.csv"},
	}
	for _, tt := range tests {
		if got := ProcessedFileName(tt.mineral, tt.path); got != tt.expected {
			t.Errorf("ProcessedFileName(%q, %q) = %q, expected %q", tt.mineral, tt.path, got, tt.expected)
		}
	}
}

func TestWriteProcessedCSVRoundTrip(t *testing.T) {
	w := spectra.Wavelengths{0.35, 0.351, 1.0 / 3, 2.5}
	r := spectra.Reflectance{0.1234567890123456, -1.23e34, math.Pi, 1e-300}
	d := []float64{0.001, -0.2, 1.0 / 7, 0}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteProcessedCSV(path, w, r, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "wavelength,reflectance,derivative" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines) != len(w)+1 {
		t.Fatalf("expected %d lines, got %d", len(w)+1, len(lines))
	}

	p, err := ReadProcessedCSV(path)
	if err != nil {
		t.Fatalf("failed to read back CSV: %v", err)
	}
	for i := range w {
		if p.Wavelengths[i] != w[i] {
			t.Errorf("row %d: wavelength %v != %v", i, p.Wavelengths[i], w[i])
		}
		if p.Reflectance[i] != r[i] {
			t.Errorf("row %d: reflectance %v != %v", i, p.Reflectance[i], r[i])
		}
		if p.Derivative[i] != d[i] {
			t.Errorf("row %d: derivative %v != %v", i, p.Derivative[i], d[i])
		}
	}
}

func TestWriteProcessedCSVWithoutDerivative(t *testing.T) {
	w := spectra.Wavelengths{1, 2, 3}
	r := spectra.Reflectance{0.1, 0.2, 0.3}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteProcessedCSV(path, w, r, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := ReadProcessedCSV(path)
	if err != nil {
		t.Fatalf("failed to read back CSV: %v", err)
	}
	if p.Derivative != nil {
		t.Errorf("expected nil derivative, got %v", p.Derivative)
	}
	if len(p.Reflectance) != 3 {
		t.Errorf("expected 3 rows, got %d", len(p.Reflectance))
	}
}

func TestWriteProcessedCSVLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	err := WriteProcessedCSV(path, spectra.Wavelengths{1, 2, 3}, spectra.Reflectance{1, 2}, nil)
	var lerr *spectra.LengthMismatchError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LengthMismatchError, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file to be created, stat returned %v", err)
	}

	err = WriteProcessedCSV(path, spectra.Wavelengths{1, 2}, spectra.Reflectance{1, 2}, []float64{1})
	if !errors.As(err, &lerr) {
		t.Errorf("expected *LengthMismatchError for derivative, got %v", err)
	}
}

func TestReadProcessedCSVMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"short header", "wavelength\n1\n"},
		{"two column header", "wavelength,reflectance\n1,2\n"},
		{"short data row", "wavelength,reflectance,derivative\n1,2,3\n4,5\n"},
		{"wrong header", "wavelength,radiance,derivative\n1,2,3\n"},
		{"unparseable value", "wavelength,reflectance,derivative\n1,abc,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "processed.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			p, err := ReadProcessedCSV(path)
			if err == nil {
				t.Fatalf("expected error, got %+v", p)
			}
		})
	}
}
