package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandPattern resolves a path or a doublestar glob ("eval/**/*.txt") to
// the sorted list of matching files. A plain path is returned as is if it
// exists.
func ExpandPattern(pattern string) ([]string, error) {
	if _, err := os.Stat(pattern); err == nil {
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(filepath.Clean(pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %s", pattern)
	}

	sort.Strings(matches)
	return matches, nil
}
