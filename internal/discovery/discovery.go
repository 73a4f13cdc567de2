// Package discovery locates sample files for a mineral inside the spectral library tree.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrBaseDirNotFound is returned when the library directory does not exist
var ErrBaseDirNotFound = errors.New("directory not found")

// Finder selects files by a case-insensitive mineral substring, a fixed
// extension and a set of required filename tags
type Finder struct {
	// Extension the file name must end with, e.g. ".txt"
	Extension string

	// Tags that must all appear in the file name (case-sensitive).
	// For splib07 these are the instrument resolution (ASDFR) and
	// reflectance calibration (AREF) markers.
	Tags []string
}

// DefaultFinder returns a Finder matching ASD full-resolution absolute reflectance text files
func DefaultFinder() Finder {
	return Finder{
		Extension: ".txt",
		Tags:      []string{"ASDFR", "AREF"},
	}
}

// Matches reports whether a file name (not a path) is a sample for mineral
func (f Finder) Matches(mineral, name string) bool {
	if !strings.Contains(strings.ToLower(name), strings.ToLower(mineral)) {
		return false
	}
	if !strings.HasSuffix(name, f.Extension) {
		return false
	}
	for _, tag := range f.Tags {
		if !strings.Contains(name, tag) {
			return false
		}
	}
	return true
}

// Find walks baseDir recursively and returns the absolute paths of all
// matching files, sorted lexically so repeated runs agree on ordering
func (f Finder) Find(mineral, baseDir string) ([]string, error) {
	root, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", baseDir, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBaseDirNotFound, baseDir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBaseDirNotFound, baseDir)
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if f.Matches(mineral, d.Name()) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error finding mineral files: %w", err)
	}

	sort.Strings(matches)
	return matches, nil
}
