// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns multi-channel HDF5 volumes into one TIFF per channel.
//
// Reading and writing go through the Source and Sink interfaces so the
// per-file logic can be exercised without real files. HDF5Source and
// TIFFSink are the production backends.
package convert

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/pdiddy/h52tiff/internal/naming"
	"github.com/pdiddy/h52tiff/pkg/types"
)

const (
	// DatasetName is the dataset every input file must contain.
	DatasetName = "exported_data"

	// MaxChannels is the largest channel count accepted.
	MaxChannels = 20
)

// Source opens input containers.
type Source interface {
	Open(path string) (Container, error)
}

// Container is an open input file.
type Container interface {
	// Dataset returns the named dataset. A missing dataset yields an error
	// wrapping ErrMissingDataset.
	Dataset(name string) (Dataset, error)
	Close() error
}

// Dataset is a (C, H, W) array. Shape and Type come from the header;
// pixel data is only read by Plane.
type Dataset interface {
	Shape() []uint64

	// Type reports the sample format and width. Element types without a
	// TIFF equivalent yield an error wrapping ErrUnsupportedType.
	Type() (types.SampleFormat, int, error)

	// Plane returns channel c as a single-channel image.
	Plane(c int) (types.Plane, error)
}

// WriteOptions controls the layout of each output file.
type WriteOptions struct {
	BigTIFF  bool
	Compress bool
}

// Sink stores planes as image files.
type Sink interface {
	WritePlane(path string, p types.Plane, opts WriteOptions) error

	// ReadPlane reads back a file written by WritePlane.
	ReadPlane(path string) (types.Plane, error)
}

// Options holds the per-run settings shared by every file.
type Options struct {
	OutputFolder string
	Template     *naming.Template
	Write        WriteOptions
	Verify       bool
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Partial   int
	Skipped   int

	// Planes is the number of TIFF files written across all inputs.
	Planes int

	// Files holds one result per input, in processing order.
	Files []types.FileResult
}

// Total returns the number of input files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Partial + r.Skipped
}

// HasFailures reports whether any file was skipped or only partly converted.
func (r BatchResult) HasFailures() bool {
	return r.Partial > 0 || r.Skipped > 0
}

// ConvertFile writes one TIFF per channel of the file at path into
// opts.OutputFolder. The returned result is always populated; the error is
// non-nil when the file was skipped or stopped part way, and matches one of
// the package's Err values.
func ConvertFile(src Source, sink Sink, path string, opts Options) (res types.FileResult, err error) {
	res = types.FileResult{Input: path, Status: types.FileSkipped}
	defer func() {
		if err == nil {
			return
		}
		res.Reason = err.Error()
		if len(res.Outputs) > 0 {
			res.Status = types.FilePartial
		}
	}()

	c, err := src.Open(path)
	if err != nil {
		return res, fileError(ErrOpen, path, err)
	}
	defer c.Close()

	ds, err := describe(c, path, &res)
	if err != nil {
		return res, err
	}

	base := naming.OriginalFilename(path)
	for ch := 0; ch < int(res.Shape[0]); ch++ {
		plane, err := ds.Plane(ch)
		if err != nil {
			return res, fileError(ErrRead, path, err, "channel", ch)
		}

		out := filepath.Join(opts.OutputFolder, opts.Template.FileName(base, ch))
		if err := sink.WritePlane(out, plane, opts.Write); err != nil {
			return res, fileError(ErrWrite, path, err, "channel", ch, "output", out)
		}
		res.Outputs = append(res.Outputs, out)

		if opts.Verify {
			if err := verify(sink, out, plane); err != nil {
				return res, fileError(ErrVerify, path, err, "channel", ch, "output", out)
			}
		}
	}

	res.Status = types.FileConverted
	return res, nil
}

// Inspect runs the header checks of ConvertFile without reading pixel data.
// The result carries the shape and element type when they could be read. A
// file that would convert gets Status FileConverted and a nil error.
func Inspect(src Source, path string) (types.FileResult, error) {
	res := types.FileResult{Input: path, Status: types.FileSkipped}

	c, err := src.Open(path)
	if err != nil {
		err = fileError(ErrOpen, path, err)
		res.Reason = err.Error()
		return res, err
	}
	defer c.Close()

	if _, err := describe(c, path, &res); err != nil {
		res.Reason = err.Error()
		return res, err
	}
	res.Status = types.FileConverted
	return res, nil
}

// describe locates the dataset and validates its header, filling in the
// shape and element type of res as they become known.
func describe(c Container, path string, res *types.FileResult) (Dataset, error) {
	ds, err := c.Dataset(DatasetName)
	if err != nil {
		return nil, fileError(ErrMissingDataset, path, err, "dataset", DatasetName)
	}

	shape := ds.Shape()
	res.Shape = shape
	if err := checkShape(shape); err != nil {
		return nil, fileError(err, path, nil, "shape", shape)
	}

	format, bits, err := ds.Type()
	if err != nil {
		return nil, fileError(ErrUnsupportedType, path, err)
	}
	res.DataType = types.Plane{Format: format, BitsPerSample: bits}.TypeName()
	return ds, nil
}

// checkShape enforces the (C, H, W) layout and channel limit.
func checkShape(shape []uint64) error {
	if len(shape) != 3 {
		return fmt.Errorf("%w: rank %d, want 3 (channels, rows, columns)", ErrInvalidShape, len(shape))
	}
	if shape[0] > MaxChannels {
		return fmt.Errorf("%w: %d channels, at most %d supported", ErrTooManyChannels, shape[0], MaxChannels)
	}
	// TIFF has no representation for an image without rows or columns.
	if shape[1] == 0 || shape[2] == 0 {
		return fmt.Errorf("%w: empty %dx%d plane", ErrInvalidShape, shape[1], shape[2])
	}
	return nil
}

func verify(sink Sink, path string, want types.Plane) error {
	got, err := sink.ReadPlane(path)
	if err != nil {
		return err
	}
	switch {
	case got.Width != want.Width || got.Height != want.Height:
		return fmt.Errorf("size %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	case got.Format != want.Format || got.BitsPerSample != want.BitsPerSample:
		return fmt.Errorf("type %s, want %s", got.TypeName(), want.TypeName())
	case !bytes.Equal(got.Pix, want.Pix):
		return fmt.Errorf("pixel data differs")
	}
	return nil
}

// ConvertBatch converts each path in order. Failures are logged as warnings
// and never stop the batch.
func ConvertBatch(src Source, sink Sink, paths []string, opts Options, logger *slog.Logger) BatchResult {
	var result BatchResult
	for _, p := range paths {
		logger.Debug("converting file", "file", p)

		res, err := ConvertFile(src, sink, p, opts)
		result.Files = append(result.Files, res)
		result.Planes += len(res.Outputs)

		switch res.Status {
		case types.FileConverted:
			result.Converted++
			logger.Info("converted file", "file", p, "channels", len(res.Outputs), "dtype", res.DataType)
		case types.FilePartial:
			result.Partial++
			logger.Warn("partially converted file",
				append([]any{"file", p, "written", len(res.Outputs)}, errorAttrs(err)...)...)
		default:
			result.Skipped++
			logger.Warn("skipping file", append([]any{"file", p}, errorAttrs(err)...)...)
		}
	}

	logger.Info("batch summary",
		"converted", result.Converted,
		"partial", result.Partial,
		"skipped", result.Skipped,
		"planes", result.Planes,
		"total", result.Total(),
	)
	return result
}
