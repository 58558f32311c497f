// Package locator implements ports.AppLocator on the local filesystem.
package locator

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefinitionFileName is appended to matched directories to obtain the
// definition path by convention.
const DefinitionFileName = "docker-compose.yml"

type Locator struct{}

func New() *Locator { return &Locator{} }

// Locate expands each glob pattern, in pattern order, into definition file
// paths. A matched directory resolves to DefinitionFileName inside it; a
// matched regular file is used as-is; anything else (a broken symlink, a
// path that vanished between match and stat) fails the whole scrape.
// Overlapping globs can produce duplicates and they are deliberately kept:
// each occurrence is processed and counted downstream.
func (l *Locator) Locate(globs []string) ([]string, error) {
	var paths []string
	for _, pattern := range globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("stat %q (matched by glob %q): %w", match, pattern, err)
			}
			switch {
			case info.IsDir():
				paths = append(paths, filepath.Join(match, DefinitionFileName))
			case info.Mode().IsRegular():
				paths = append(paths, match)
			default:
				return nil, fmt.Errorf("%q (matched by glob %q) is neither a regular file nor a directory", match, pattern)
			}
		}
	}
	return paths, nil
}
