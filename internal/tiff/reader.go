// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tiff

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/h52tiff/pkg/types"
)

// Decode reads a single-channel TIFF written by Encode, or any file with the
// same restrictions: little-endian, one sample per pixel, strips, no
// compression or deflate.
func Decode(r io.Reader) (types.Plane, Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return types.Plane{}, Info{}, err
	}
	return decode(data)
}

// ReadFile decodes the TIFF file at path.
func ReadFile(path string) (types.Plane, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Plane{}, Info{}, err
	}
	return decode(data)
}

type decoder struct {
	data []byte
	big  bool
}

func decode(data []byte) (types.Plane, Info, error) {
	if len(data) < classicHeaderLen || string(data[:2]) != "II" {
		return types.Plane{}, Info{}, fmt.Errorf("%w: not a little-endian TIFF header", ErrFormat)
	}

	d := &decoder{data: data}
	var ifdOffset uint64
	switch le.Uint16(data[2:4]) {
	case classicMagic:
		ifdOffset = uint64(le.Uint32(data[4:8]))
	case bigMagic:
		if len(data) < bigHeaderLen {
			return types.Plane{}, Info{}, fmt.Errorf("%w: short BigTIFF header", ErrFormat)
		}
		if le.Uint16(data[4:6]) != 8 {
			return types.Plane{}, Info{}, fmt.Errorf("%w: BigTIFF offset size %d", ErrUnsupported, le.Uint16(data[4:6]))
		}
		d.big = true
		ifdOffset = le.Uint64(data[8:16])
	default:
		return types.Plane{}, Info{}, fmt.Errorf("%w: magic %d", ErrFormat, le.Uint16(data[2:4]))
	}

	tags, err := d.readIFD(ifdOffset)
	if err != nil {
		return types.Plane{}, Info{}, err
	}

	first := func(tag uint16, def uint64) uint64 {
		if v, ok := tags[tag]; ok && len(v) > 0 {
			return v[0]
		}
		return def
	}

	if spp := first(tagSamplesPerPixel, 1); spp != 1 {
		return types.Plane{}, Info{}, fmt.Errorf("%w: %d samples per pixel", ErrUnsupported, spp)
	}
	if pi := first(tagPhotometricInterpretation, photometricBlackIsZero); pi != photometricBlackIsZero {
		return types.Plane{}, Info{}, fmt.Errorf("%w: photometric interpretation %d", ErrUnsupported, pi)
	}

	p := types.Plane{
		Width:         int(first(tagImageWidth, 0)),
		Height:        int(first(tagImageLength, 0)),
		BitsPerSample: int(first(tagBitsPerSample, 1)),
		Format:        types.SampleFormat(first(tagSampleFormat, uint64(types.SampleUint))),
	}
	info := Info{
		BigTIFF:     d.big,
		Compression: Compression(first(tagCompression, uint64(CompressionNone))),
	}

	offsets, counts := tags[tagStripOffsets], tags[tagStripByteCounts]
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return types.Plane{}, Info{}, fmt.Errorf("%w: %d strip offsets, %d byte counts", ErrFormat, len(offsets), len(counts))
	}
	info.Strips = len(offsets)

	var pix bytes.Buffer
	for i := range offsets {
		strip, err := d.slice(offsets[i], counts[i])
		if err != nil {
			return types.Plane{}, Info{}, fmt.Errorf("strip %d: %w", i, err)
		}
		switch info.Compression {
		case CompressionNone:
			pix.Write(strip)
		case CompressionDeflate:
			zr, err := zlib.NewReader(bytes.NewReader(strip))
			if err != nil {
				return types.Plane{}, Info{}, fmt.Errorf("strip %d: %w", i, err)
			}
			_, err = pix.ReadFrom(zr)
			zr.Close()
			if err != nil {
				return types.Plane{}, Info{}, fmt.Errorf("strip %d: %w", i, err)
			}
		default:
			return types.Plane{}, Info{}, fmt.Errorf("%w: compression %d", ErrUnsupported, info.Compression)
		}
	}
	p.Pix = pix.Bytes()

	if err := p.Validate(); err != nil {
		return types.Plane{}, Info{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return p, info, nil
}

func (d *decoder) slice(off, n uint64) ([]byte, error) {
	if off > uint64(len(d.data)) || n > uint64(len(d.data))-off {
		return nil, fmt.Errorf("%w: range %d+%d beyond end of file", ErrFormat, off, n)
	}
	return d.data[off : off+n], nil
}

func (d *decoder) readIFD(off uint64) (map[uint16][]uint64, error) {
	countLen, entryLen, inline := uint64(2), uint64(12), uint64(4)
	if d.big {
		countLen, entryLen, inline = 8, 20, 8
	}

	head, err := d.slice(off, countLen)
	if err != nil {
		return nil, err
	}
	var n uint64
	if d.big {
		n = le.Uint64(head)
	} else {
		n = uint64(le.Uint16(head))
	}
	if n > uint64(len(d.data))/entryLen {
		return nil, fmt.Errorf("%w: %d directory entries", ErrFormat, n)
	}

	body, err := d.slice(off+countLen, n*entryLen)
	if err != nil {
		return nil, err
	}

	tags := make(map[uint16][]uint64, n)
	for i := uint64(0); i < n; i++ {
		e := body[i*entryLen : (i+1)*entryLen]
		tag, typ := le.Uint16(e[0:2]), le.Uint16(e[2:4])

		var count uint64
		var field []byte
		if d.big {
			count, field = le.Uint64(e[4:12]), e[12:20]
		} else {
			count, field = uint64(le.Uint32(e[4:8])), e[8:12]
		}

		size := uint64(typeSize(typ))
		if size == 0 {
			// Types we never write (rationals, ASCII) are skipped.
			continue
		}
		if count > uint64(len(d.data))/size {
			return nil, fmt.Errorf("%w: tag %d count %d", ErrFormat, tag, count)
		}

		raw := field[:min(count*size, inline)]
		if count*size > inline {
			var at uint64
			if d.big {
				at = le.Uint64(field)
			} else {
				at = uint64(le.Uint32(field))
			}
			if raw, err = d.slice(at, count*size); err != nil {
				return nil, fmt.Errorf("tag %d: %w", tag, err)
			}
		}

		vals := make([]uint64, count)
		for j := range vals {
			v := raw[uint64(j)*size:]
			switch typ {
			case typeByte:
				vals[j] = uint64(v[0])
			case typeShort:
				vals[j] = uint64(le.Uint16(v))
			case typeLong:
				vals[j] = uint64(le.Uint32(v))
			case typeLong8:
				vals[j] = le.Uint64(v)
			}
		}
		tags[tag] = vals
	}
	return tags, nil
}
