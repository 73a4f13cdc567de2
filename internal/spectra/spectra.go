// Package spectra reads splib07 reflectance-spectroscopy text files.
//
// Every file in the library uses the same layout: a single header line
// followed by one floating-point value per line. The wavelength reference
// file and each per-sample reflectance file are parsed identically.
package spectra

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultWavelengthFile is the splib07b wavelength reference for ASD full-resolution spectra
const DefaultWavelengthFile = "splib07b_Wavelengths_ASDFR_0.35-2.5microns_2151ch.txt"

// ErrNoData is returned when a file holds a header but no values
var ErrNoData = errors.New("no valid data")

// Wavelengths is the shared wavelength axis in micrometers. It is loaded
// once per run and must not be modified by consumers.
type Wavelengths []float64

// Reflectance is one sample's reflectance values, indexed like Wavelengths
type Reflectance []float64

// Sample is a reflectance series together with the file it was read from
type Sample struct {
	Path        string
	Reflectance Reflectance
}

// MineralRecord groups the samples discovered for one mineral, in discovery order
type MineralRecord struct {
	Mineral string
	Samples []Sample
}

// First returns the first sample of the record, or false if it is empty
func (m MineralRecord) First() (Sample, bool) {
	if len(m.Samples) == 0 {
		return Sample{}, false
	}
	return m.Samples[0], true
}

// ParseError reports a line that could not be parsed as a float
type ParseError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: cannot parse %q as float: %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LengthMismatchError reports a reflectance series that does not line up
// with the wavelength axis
type LengthMismatchError struct {
	Wavelengths int
	Values      int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("length mismatch: %d wavelengths, %d values", e.Wavelengths, e.Values)
}

// CheckLengths returns a *LengthMismatchError if w and values differ in length
func CheckLengths(w []float64, values []float64) error {
	if len(w) != len(values) {
		return &LengthMismatchError{Wavelengths: len(w), Values: len(values)}
	}
	return nil
}

// ReadWavelengths reads the wavelength reference file at path
func ReadWavelengths(path string) (Wavelengths, error) {
	values, err := readValues(path)
	if err != nil {
		return nil, fmt.Errorf("error reading wavelength file: %w", err)
	}
	return Wavelengths(values), nil
}

// ReadReflectance reads a single sample's reflectance file at path
func ReadReflectance(path string) (Reflectance, error) {
	values, err := readValues(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	return Reflectance(values), nil
}

// readValues skips the header line and parses every remaining non-blank line
func readValues(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNo, Text: text, Err: err}
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	if len(values) == 0 {
		return nil, ErrNoData
	}
	return values, nil
}
