// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Defaults applied when neither a flag, the config file, nor the environment
// sets a value.
const (
	// DefaultNamingPattern names outputs after the input file and channel.
	DefaultNamingPattern = "{original_filename}_{exported_channel}"

	// DefaultLogLevel is the console log level.
	DefaultLogLevel = "info"
)

// ConversionConfig holds the resolved settings for one conversion run.
// It is built once by the command layer and validated by config.Validate
// before any file is opened.
type ConversionConfig struct {
	// InputPath is a single .h5 file or a directory of .h5 files.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputFolder receives the generated .tiff files. It is created if
	// missing.
	OutputFolder string `json:"output_folder" yaml:"output_folder"`

	// NamingPattern is the output name template. It must contain
	// {original_filename} and {exported_channel}; the .tiff extension is
	// appended automatically.
	NamingPattern string `json:"naming_pattern" yaml:"naming_pattern"`

	// WriteBigTIFF selects the 64-bit BigTIFF layout (default true).
	WriteBigTIFF bool `json:"big_tiff" yaml:"big_tiff"`

	// Compress enables deflate compression of the pixel strips.
	Compress bool `json:"compress" yaml:"compress"`

	// Verify re-reads every written file and compares it with the source plane.
	Verify bool `json:"verify" yaml:"verify"`

	// ManifestPath, when set, receives a YAML summary of the run.
	ManifestPath string `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// LogConfig holds logging settings for one run.
type LogConfig struct {
	// Level is the console level: debug, info, warn, or error.
	Level string `json:"level" yaml:"level"`

	// File, when set, additionally receives JSON log records at debug level.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// DefaultConversionConfig returns a config with every optional field at its
// documented default.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		NamingPattern: DefaultNamingPattern,
		WriteBigTIFF:  true,
	}
}
