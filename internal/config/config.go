// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves and validates the settings of a conversion run.
//
// Values come from command-line flags, an optional h52tiff.yaml file and
// H52TIFF_* environment variables, in that order of precedence, all merged
// by a viper instance owned by the command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/h52tiff/internal/logging"
	"github.com/pdiddy/h52tiff/internal/naming"
	"github.com/pdiddy/h52tiff/pkg/types"
)

// Configuration keys shared by flags, the config file and the environment.
const (
	KeyNamingPattern = "naming_pattern"
	KeyBigTIFF       = "big_tiff"
	KeyCompress      = "compress"
	KeyVerify        = "verify"
	KeyManifest      = "manifest"
	KeyLogLevel      = "log_level"
	KeyLogFile       = "log_file"
)

// EnvPrefix is prepended to every key to form its environment variable.
const EnvPrefix = "H52TIFF"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	d := types.DefaultConversionConfig()
	v.SetDefault(KeyNamingPattern, d.NamingPattern)
	v.SetDefault(KeyBigTIFF, d.WriteBigTIFF)
	v.SetDefault(KeyCompress, d.Compress)
	v.SetDefault(KeyVerify, d.Verify)
	v.SetDefault(KeyManifest, "")
	v.SetDefault(KeyLogLevel, types.DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
}

// Load builds the run configuration from v and the two positional arguments.
func Load(v *viper.Viper, input, output string) (types.ConversionConfig, types.LogConfig) {
	cfg := types.ConversionConfig{
		InputPath:     input,
		OutputFolder:  output,
		NamingPattern: v.GetString(KeyNamingPattern),
		WriteBigTIFF:  v.GetBool(KeyBigTIFF),
		Compress:      v.GetBool(KeyCompress),
		Verify:        v.GetBool(KeyVerify),
		ManifestPath:  v.GetString(KeyManifest),
	}
	logCfg := types.LogConfig{
		Level: v.GetString(KeyLogLevel),
		File:  v.GetString(KeyLogFile),
	}
	return cfg, logCfg
}

// ValidationError lists every rule a configuration violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "configuration validation failed:\n- " + strings.Join(e.Problems, "\n- ")
}

// Validate checks every rule of both records and reports all violations
// together as a *ValidationError. It reads file metadata but never opens an
// input for conversion.
func Validate(cfg types.ConversionConfig, logCfg types.LogConfig) error {
	var problems []string
	add := func(field, format string, args ...any) {
		problems = append(problems, field+": "+fmt.Sprintf(format, args...))
	}

	if _, err := naming.Parse(cfg.NamingPattern); err != nil {
		var pe *naming.PatternError
		if errors.As(err, &pe) {
			for _, p := range pe.Problems {
				add(KeyNamingPattern, "%s", p)
			}
		} else {
			add(KeyNamingPattern, "%v", err)
		}
	}

	if cfg.InputPath == "" {
		add("input_path", "is required")
	} else if err := checkReadable(cfg.InputPath); err != nil {
		add("input_path", "%v", err)
	}

	if cfg.OutputFolder == "" {
		add("output_folder", "is required")
	} else if info, err := os.Stat(cfg.OutputFolder); err == nil && !info.IsDir() {
		add("output_folder", "%s exists and is not a directory", cfg.OutputFolder)
	}

	if cfg.ManifestPath != "" {
		if info, err := os.Stat(cfg.ManifestPath); err == nil && info.IsDir() {
			add(KeyManifest, "%s is a directory", cfg.ManifestPath)
		}
	}

	if _, err := logging.ParseLevel(logCfg.Level); err != nil {
		add(KeyLogLevel, "%v", err)
	}
	if logCfg.File != "" {
		if info, err := os.Stat(logCfg.File); err == nil && info.IsDir() {
			add(KeyLogFile, "%s is a directory", logCfg.File)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s does not exist", path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		if _, err := os.ReadDir(path); err != nil {
			return fmt.Errorf("%s cannot be listed: %w", path, err)
		}
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s cannot be read: %w", path, err)
	}
	return f.Close()
}
