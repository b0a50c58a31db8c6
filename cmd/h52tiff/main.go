// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the h52tiff CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/h52tiff/internal/config"
	"github.com/pdiddy/h52tiff/internal/convert"
	"github.com/pdiddy/h52tiff/internal/discover"
	"github.com/pdiddy/h52tiff/internal/logging"
	"github.com/pdiddy/h52tiff/internal/manifest"
	"github.com/pdiddy/h52tiff/internal/naming"
)

// version is set at build time via ldflags.
var version = "dev"

// app holds the backends a command runs against.
type app struct {
	v    *viper.Viper
	src  convert.Source
	sink convert.Sink
	now  func() time.Time
}

func newApp() *app {
	v := viper.New()
	config.SetDefaults(v)
	return &app{
		v:    v,
		src:  convert.HDF5Source{},
		sink: convert.TIFFSink{},
		now:  time.Now,
	}
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "h52tiff <in-file> <output-folder>",
		Short: "Convert multi-channel HDF5 volumes to per-channel TIFF files",
		Long: `h52tiff reads the "exported_data" dataset of an HDF5 file, shaped
(channels, rows, columns) with at most 20 channels, and writes one single-page
TIFF per channel into the output folder.

<in-file> is one .h5 file or a directory whose .h5 files are all converted.
Files that cannot be converted are logged and skipped; the exit status is
non-zero only when the run cannot start.

Output names come from --naming-pattern, which must contain both
{original_filename} and {exported_channel}; ".tiff" is appended.
{original_filename} is the input name without its extension, so channel 2
of scan.h5 renders as scan_2.tiff with the default pattern. Write a width as
{exported_channel:03d} to zero-pad the index. Literal braces are {{ and }}.
The pattern may not contain / or \, so every output lands directly in
<output-folder>.`,
		Args:          cobra.ExactArgs(2),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], args[1])
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: ./h52tiff.yaml or ~/.config/h52tiff/h52tiff.yaml)")
	pf.String("log-level", "", "console log level: debug, info, warn or error (default info)")
	pf.BoolP("verbose", "v", false, "log at debug level")
	pf.String("log-file", "", "also append JSON debug logs to this file")

	f := root.Flags()
	f.StringP("naming-pattern", "p", "", "output name template without path separators (default \"{original_filename}_{exported_channel}\")")
	f.Bool("no-big-tiff", false, "write classic 32-bit TIFF instead of BigTIFF")
	f.Bool("compress", false, "deflate-compress pixel data")
	f.Bool("verify", false, "re-read every output and compare it with the source channel")
	f.String("manifest", "", "write a YAML summary of the run to this file")

	a.bind(root, map[string]string{
		config.KeyLogLevel: "log-level",
		config.KeyLogFile:  "log-file",
	}, true)
	a.bind(root, map[string]string{
		config.KeyNamingPattern: "naming-pattern",
		config.KeyCompress:      "compress",
		config.KeyVerify:        "verify",
		config.KeyManifest:      "manifest",
	}, false)

	root.AddCommand(newInspectCmd(a), newVersionCmd())
	return root
}

// bind ties config keys to flags so a flag set on the command line takes
// precedence over the config file and environment.
func (a *app) bind(cmd *cobra.Command, keys map[string]string, persistent bool) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := a.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// initConfig loads the optional config file and environment, then applies
// the flags that viper cannot bind directly.
func (a *app) initConfig(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("h52tiff")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "h52tiff"))
		}
	}

	a.v.SetEnvPrefix(config.EnvPrefix)
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", a.v.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if cmd.Flags().Changed("no-big-tiff") {
		noBig, _ := cmd.Flags().GetBool("no-big-tiff")
		a.v.Set(config.KeyBigTIFF, !noBig)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		a.v.Set(config.KeyLogLevel, "debug")
	}
	return nil
}

// runConvert performs the pre-flight steps, any of which aborts the run,
// then converts every discovered file. Per-file failures do not change the
// returned error.
func (a *app) runConvert(cmd *cobra.Command, input, output string) error {
	cfg, logCfg := config.Load(a.v, input, output)
	if err := config.Validate(cfg, logCfg); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cmd.ErrOrStderr(), logCfg)
	if err != nil {
		return err
	}
	defer closeLog()

	tmpl, err := naming.Parse(cfg.NamingPattern)
	if err != nil {
		return err
	}

	outDir, err := filepath.Abs(cfg.OutputFolder)
	if err != nil {
		return fmt.Errorf("resolving output folder: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output folder: %w", err)
	}

	paths, err := discover.Files(cfg.InputPath)
	if err != nil {
		return err
	}
	logger.Info("found input files", "count", len(paths), "input", cfg.InputPath)
	for _, p := range paths {
		logger.Debug("input file", "file", p)
	}

	opts := convert.Options{
		OutputFolder: outDir,
		Template:     tmpl,
		Write:        convert.WriteOptions{BigTIFF: cfg.WriteBigTIFF, Compress: cfg.Compress},
		Verify:       cfg.Verify,
	}
	result := convert.ConvertBatch(a.src, a.sink, paths, opts, logger)

	if cfg.ManifestPath != "" {
		cfg.OutputFolder = outDir
		m := manifest.Build(cfg, result.Files, a.now())
		if err := manifest.Write(cfg.ManifestPath, m); err != nil {
			logger.Error("writing manifest", "path", cfg.ManifestPath, "error", err.Error())
		} else {
			logger.Info("wrote manifest", "path", cfg.ManifestPath)
		}
	}
	return nil
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
