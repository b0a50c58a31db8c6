//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts every .h5 file in data/in into data/out.
func Convert() error {
	mg.SerialDeps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), workDirs[0], workDirs[1], "--verify")
}

// Inspect builds the CLI and reports what Convert would do with data/in.
func Inspect() error {
	mg.SerialDeps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "inspect", workDirs[0])
}
