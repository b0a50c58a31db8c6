// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"github.com/pdiddy/h52tiff/internal/tiff"
	"github.com/pdiddy/h52tiff/pkg/types"
)

// TIFFSink writes planes as single-page TIFF files.
type TIFFSink struct{}

// WritePlane implements Sink. Existing files are truncated.
func (TIFFSink) WritePlane(path string, p types.Plane, opts WriteOptions) error {
	to := tiff.Options{BigTIFF: opts.BigTIFF, Compression: tiff.CompressionNone}
	if opts.Compress {
		to.Compression = tiff.CompressionDeflate
	}
	return tiff.WriteFile(path, p, to)
}

// ReadPlane implements Sink.
func (TIFFSink) ReadPlane(path string) (types.Plane, error) {
	p, _, err := tiff.ReadFile(path)
	return p, err
}
