package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover expands glob patterns (with ** support) into a sorted,
// de-duplicated list of run files.
func Discover(patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadAny picks the decoder from the file extension: .txt files use the
// legacy format, everything else YAML.
func LoadAny(path string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return LoadLegacy(path)
	}
	return Load(path)
}
