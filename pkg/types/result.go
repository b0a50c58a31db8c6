// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FileStatus indicates the outcome of converting one input file.
type FileStatus string

const (
	FileConverted FileStatus = "converted"
	FilePartial   FileStatus = "partial"
	FileSkipped   FileStatus = "skipped"
)

// FileResult records what happened to one input file.
type FileResult struct {
	// Input is the absolute path of the .h5 file.
	Input string `json:"input" yaml:"input"`

	// Status is converted when every channel was written, partial when a
	// write failed after some channels succeeded, and skipped otherwise.
	Status FileStatus `json:"status" yaml:"status"`

	// Shape is the dataset shape as read from the file header, if known.
	Shape []uint64 `json:"shape,omitempty" yaml:"shape,omitempty"`

	// DataType is the element type name, e.g. "uint16", if known.
	DataType string `json:"dtype,omitempty" yaml:"dtype,omitempty"`

	// Outputs lists the .tiff files written, in channel order.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// Reason explains a skip or partial conversion.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}
