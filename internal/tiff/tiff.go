// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tiff encodes and decodes single-page, single-channel TIFF images
// in either the classic 32-bit layout or the BigTIFF 64-bit layout.
//
// Files are always little-endian with one IFD, pixel data in strips, and
// PhotometricInterpretation BlackIsZero. Samples may be unsigned, signed or
// floating point, 8 to 64 bits wide. Strips are stored raw or deflated.
package tiff

import (
	"errors"
	"fmt"
)

// Compression is the value of the TIFF Compression tag.
type Compression uint16

const (
	CompressionNone    Compression = 1
	CompressionDeflate Compression = 8
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	default:
		return fmt.Sprintf("Compression(%d)", uint16(c))
	}
}

// Options controls the file layout.
type Options struct {
	// BigTIFF selects the 64-bit layout (magic 43).
	BigTIFF bool

	// Compression defaults to CompressionNone when zero.
	Compression Compression
}

func (o Options) compression() Compression {
	if o.Compression == 0 {
		return CompressionNone
	}
	return o.Compression
}

// Info describes the layout of a decoded file.
type Info struct {
	BigTIFF     bool
	Compression Compression
	Strips      int
}

var (
	// ErrFormat reports a malformed file.
	ErrFormat = errors.New("tiff: malformed file")

	// ErrUnsupported reports a well-formed file using features this
	// package does not read.
	ErrUnsupported = errors.New("tiff: unsupported feature")
)

const (
	classicMagic = 42
	bigMagic     = 43

	classicHeaderLen = 8
	bigHeaderLen     = 16

	// stripTarget is the approximate uncompressed size of one strip.
	stripTarget = 64 << 10

	maxClassicSize = 1<<32 - 1
)

// Tag numbers.
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
	tagSampleFormat              = 339
)

// Field types.
const (
	typeByte  = 1
	typeShort = 3
	typeLong  = 4
	typeLong8 = 16
)

func typeSize(t uint16) int {
	switch t {
	case typeByte:
		return 1
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeLong8:
		return 8
	default:
		return 0
	}
}

const photometricBlackIsZero = 1
