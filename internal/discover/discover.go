// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover resolves the input argument to the list of files to
// convert.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Ext is the suffix that marks an input file inside a directory.
const Ext = ".h5"

// Files returns absolute paths for input. A regular file yields exactly its
// own path, whatever its suffix. A directory yields its non-directory
// entries ending in Ext, one level deep, sorted by name. An empty result is
// not an error.
func Files(input string) ([]string, error) {
	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", input, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if !info.IsDir() {
		return []string{abs}, nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", abs, err)
	}

	paths := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			return "", false
		}
		return filepath.Join(abs, e.Name()), true
	})
	slices.Sort(paths)
	return paths, nil
}
