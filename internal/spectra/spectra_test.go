package spectra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestReadReflectance(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []float64
	}{
		{
			name:     "header and values",
			content:  "splib07b Record=1: Quartz\n0.1\n0.2\n0.3\n",
			expected: []float64{0.1, 0.2, 0.3},
		},
		{
			name:     "blank lines are skipped",
			content:  "header\n0.5\n\n   \n0.25\n\n",
			expected: []float64{0.5, 0.25},
		},
		{
			name:     "surrounding whitespace",
			content:  "header\n  1.5e-1 \n\t-1.23e34\n",
			expected: []float64{0.15, -1.23e34},
		},
		{
			name:     "header that looks numeric is still skipped",
			content:  "42\n7\n",
			expected: []float64{7},
		},
		{
			name:     "windows line endings",
			content:  "header\r\n0.1\r\n0.2\r\n",
			expected: []float64{0.1, 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "sample.txt", tt.content)

			result, err := ReadReflectance(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d values, got %d", len(tt.expected), len(result))
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("value %d: expected %v, got %v", i, tt.expected[i], v)
				}
			}
		})
	}
}

func TestReadReflectanceErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadReflectance(filepath.Join(dir, "nope.txt"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		path := writeFile(t, dir, "bad.txt", "header\n0.1\nabc\n0.3\n")
		_, err := ReadReflectance(path)

		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
		if perr.Line != 3 {
			t.Errorf("expected line 3, got %d", perr.Line)
		}
		if perr.Text != "abc" {
			t.Errorf("expected text %q, got %q", "abc", perr.Text)
		}
	})

	t.Run("header only", func(t *testing.T) {
		path := writeFile(t, dir, "empty.txt", "header\n\n")
		_, err := ReadReflectance(path)
		if !errors.Is(err, ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, dir, "zero.txt", "")
		_, err := ReadReflectance(path)
		if !errors.Is(err, ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})
}

func TestReadWavelengthsCount(t *testing.T) {
	content := "Wavelengths in microns\n"
	for i := 0; i < 2151; i++ {
		content += "1.0\n"
		if i%500 == 0 {
			content += "\n"
		}
	}
	path := writeFile(t, t.TempDir(), DefaultWavelengthFile, content)

	w, err := ReadWavelengths(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w) != 2151 {
		t.Errorf("expected 2151 wavelengths, got %d", len(w))
	}
}

func TestCheckLengths(t *testing.T) {
	if err := CheckLengths([]float64{1, 2}, []float64{3, 4}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := CheckLengths([]float64{1, 2, 3}, []float64{3, 4})
	var lerr *LengthMismatchError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LengthMismatchError, got %v", err)
	}
	if lerr.Wavelengths != 3 || lerr.Values != 2 {
		t.Errorf("unexpected lengths in error: %+v", lerr)
	}
}

func TestMineralRecordFirst(t *testing.T) {
	var empty MineralRecord
	if _, ok := empty.First(); ok {
		t.Error("expected no first sample for empty record")
	}

	rec := MineralRecord{
		Mineral: "quartz",
		Samples: []Sample{{Path: "a.txt"}, {Path: "b.txt"}},
	}
	first, ok := rec.First()
	if !ok || first.Path != "a.txt" {
		t.Errorf("expected a.txt, got %q (ok=%v)", first.Path, ok)
	}
}
