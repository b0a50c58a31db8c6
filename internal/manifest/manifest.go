// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest records the outcome of a conversion run as YAML.
package manifest

import (
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/h52tiff/pkg/types"
)

// Manifest summarizes one run: the settings used, per-status counts, and
// one entry per input file.
type Manifest struct {
	GeneratedAt   time.Time `yaml:"generated_at"`
	Input         string    `yaml:"input"`
	OutputFolder  string    `yaml:"output_folder"`
	NamingPattern string    `yaml:"naming_pattern"`
	BigTIFF       bool      `yaml:"big_tiff"`
	Compress      bool      `yaml:"compress"`

	Converted int `yaml:"converted"`
	Partial   int `yaml:"partial"`
	Skipped   int `yaml:"skipped"`
	Planes    int `yaml:"planes"`

	Files []types.FileResult `yaml:"files"`
}

// Build assembles a manifest from the run settings and per-file results.
func Build(cfg types.ConversionConfig, files []types.FileResult, now time.Time) Manifest {
	byStatus := lo.CountValuesBy(files, func(f types.FileResult) types.FileStatus { return f.Status })
	return Manifest{
		GeneratedAt:   now.UTC(),
		Input:         cfg.InputPath,
		OutputFolder:  cfg.OutputFolder,
		NamingPattern: cfg.NamingPattern,
		BigTIFF:       cfg.WriteBigTIFF,
		Compress:      cfg.Compress,
		Converted:     byStatus[types.FileConverted],
		Partial:       byStatus[types.FilePartial],
		Skipped:       byStatus[types.FileSkipped],
		Planes:        lo.SumBy(files, func(f types.FileResult) int { return len(f.Outputs) }),
		Files:         files,
	}
}

// Write stores m at path, replacing any existing file.
func Write(path string, m Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}
