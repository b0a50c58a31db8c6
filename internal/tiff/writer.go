// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tiff

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/h52tiff/pkg/types"
)

var le = binary.LittleEndian

type entry struct {
	tag    uint16
	typ    uint16
	values []uint64
}

func (e entry) encode() []byte {
	b := make([]byte, 0, len(e.values)*typeSize(e.typ))
	for _, v := range e.values {
		switch e.typ {
		case typeShort:
			b = le.AppendUint16(b, uint16(v))
		case typeLong:
			b = le.AppendUint32(b, uint32(v))
		case typeLong8:
			b = le.AppendUint64(b, v)
		}
	}
	return b
}

// Encode writes p to w as a single-page TIFF.
func Encode(w io.Writer, p types.Plane, opts Options) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("encoding plane: %w", err)
	}
	comp := opts.compression()
	if comp != CompressionNone && comp != CompressionDeflate {
		return fmt.Errorf("%w: compression %d", ErrUnsupported, comp)
	}

	rowBytes := p.RowBytes()
	rowsPerStrip := max(1, stripTarget/rowBytes)
	rowsPerStrip = min(rowsPerStrip, p.Height)

	var strips [][]byte
	for y := 0; y < p.Height; y += rowsPerStrip {
		end := min(y+rowsPerStrip, p.Height)
		raw := p.Pix[y*rowBytes : end*rowBytes]
		if comp == CompressionDeflate {
			var err error
			if raw, err = deflate(raw); err != nil {
				return fmt.Errorf("compressing strip %d: %w", len(strips), err)
			}
		}
		strips = append(strips, raw)
	}

	headerLen := uint64(classicHeaderLen)
	offsetType := uint16(typeLong)
	if opts.BigTIFF {
		headerLen = bigHeaderLen
		offsetType = typeLong8
	}

	offsets := make([]uint64, len(strips))
	counts := make([]uint64, len(strips))
	pos := headerLen
	for i, s := range strips {
		offsets[i] = pos
		counts[i] = uint64(len(s))
		pos += uint64(len(s))
	}
	pad := pos % 2
	ifdOffset := pos + pad

	entries := []entry{
		{tagImageWidth, typeLong, []uint64{uint64(p.Width)}},
		{tagImageLength, typeLong, []uint64{uint64(p.Height)}},
		{tagBitsPerSample, typeShort, []uint64{uint64(p.BitsPerSample)}},
		{tagCompression, typeShort, []uint64{uint64(comp)}},
		{tagPhotometricInterpretation, typeShort, []uint64{photometricBlackIsZero}},
		{tagStripOffsets, offsetType, offsets},
		{tagSamplesPerPixel, typeShort, []uint64{1}},
		{tagRowsPerStrip, typeLong, []uint64{uint64(rowsPerStrip)}},
		{tagStripByteCounts, offsetType, counts},
		{tagPlanarConfiguration, typeShort, []uint64{1}},
		{tagSampleFormat, typeShort, []uint64{uint64(p.Format)}},
	}

	ifd := buildIFD(entries, ifdOffset, opts.BigTIFF)
	if !opts.BigTIFF && ifdOffset+uint64(len(ifd)) > maxClassicSize {
		return fmt.Errorf("image of %d bytes exceeds the classic TIFF limit, use BigTIFF", ifdOffset+uint64(len(ifd)))
	}

	var header []byte
	if opts.BigTIFF {
		header = append([]byte("II"), 0, 0)
		le.PutUint16(header[2:], bigMagic)
		header = le.AppendUint16(header, 8)
		header = le.AppendUint16(header, 0)
		header = le.AppendUint64(header, ifdOffset)
	} else {
		header = append([]byte("II"), 0, 0)
		le.PutUint16(header[2:], classicMagic)
		header = le.AppendUint32(header, uint32(ifdOffset))
	}

	if _, err := w.Write(header); err != nil {
		return err
	}
	for _, s := range strips {
		if _, err := w.Write(s); err != nil {
			return err
		}
	}
	if pad > 0 {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	_, err := w.Write(ifd)
	return err
}

// buildIFD lays out the directory at offset followed by any values too
// large to fit in their entry.
func buildIFD(entries []entry, offset uint64, big bool) []byte {
	inline, entryLen, countLen, nextLen := 4, 12, 2, 4
	if big {
		inline, entryLen, countLen, nextLen = 8, 20, 8, 8
	}

	dirLen := countLen + len(entries)*entryLen + nextLen
	dir := make([]byte, 0, dirLen)
	var extra []byte
	extraOffset := offset + uint64(dirLen)

	if big {
		dir = le.AppendUint64(dir, uint64(len(entries)))
	} else {
		dir = le.AppendUint16(dir, uint16(len(entries)))
	}

	for _, e := range entries {
		dir = le.AppendUint16(dir, e.tag)
		dir = le.AppendUint16(dir, e.typ)
		if big {
			dir = le.AppendUint64(dir, uint64(len(e.values)))
		} else {
			dir = le.AppendUint32(dir, uint32(len(e.values)))
		}

		val := e.encode()
		if len(val) <= inline {
			field := make([]byte, inline)
			copy(field, val)
			dir = append(dir, field...)
			continue
		}

		at := extraOffset + uint64(len(extra))
		if big {
			dir = le.AppendUint64(dir, at)
		} else {
			dir = le.AppendUint32(dir, uint32(at))
		}
		extra = append(extra, val...)
		if len(extra)%2 != 0 {
			extra = append(extra, 0)
		}
	}

	// No further IFDs.
	dir = append(dir, make([]byte, nextLen)...)
	return append(dir, extra...)
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile creates or truncates path and encodes p into it. The file is
// closed before WriteFile returns and a close failure is reported.
func WriteFile(path string, p types.Plane, opts Options) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, p, opts); err != nil {
		return err
	}
	return bw.Flush()
}
