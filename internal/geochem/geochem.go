// Package geochem summarizes geochemical assay workbooks that accompany a spectral survey.
package geochem

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"
)

// numericThreshold is the fraction of non-empty cells that must parse as
// numbers for a column to be treated as numeric
const numericThreshold = 0.8

// ColumnStats describes one numeric column of the assay sheet
type ColumnStats struct {
	Name   string
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summary is the result of analyzing a workbook
type Summary struct {
	Path    string
	Sheet   string
	Rows    int
	Columns []ColumnStats
}

// Analyzer is anything that can analyze a geochemistry workbook
type Analyzer interface {
	Analyze(path string) (*Summary, error)
}

// WorkbookAnalyzer reads the first sheet of an Excel workbook
type WorkbookAnalyzer struct{}

// Analyze opens the workbook at path, treats the first row of its first sheet
// as headers and computes descriptive statistics for every numeric column
func (WorkbookAnalyzer) Analyze(path string) (*Summary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%s: no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %s is empty", path, sheet)
	}

	return summarize(path, sheet, rows), nil
}

func summarize(path, sheet string, rows [][]string) *Summary {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}

	data := rows[1:]
	s := &Summary{Path: path, Sheet: sheet, Rows: len(data)}

	for col, name := range headers {
		values, ok := numericColumn(data, col)
		if !ok {
			continue
		}
		mean, std := stat.MeanStdDev(values, nil)
		if len(values) < 2 {
			std = 0
		}
		min, max := values[0], values[0]
		for _, v := range values[1:] {
			min = math.Min(min, v)
			max = math.Max(max, v)
		}
		s.Columns = append(s.Columns, ColumnStats{
			Name:   name,
			Count:  len(values),
			Mean:   mean,
			StdDev: std,
			Min:    min,
			Max:    max,
		})
	}
	return s
}

// numericColumn returns the parseable values of column col, and whether the
// column is numeric at all
func numericColumn(rows [][]string, col int) ([]float64, bool) {
	var values []float64
	total := 0
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		total++
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			values = append(values, v)
		}
	}
	if total == 0 || float64(len(values))/float64(total) < numericThreshold {
		return nil, false
	}
	return values, true
}
