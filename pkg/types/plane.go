// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// SampleFormat is the numeric interpretation of a pixel sample. The values
// match the TIFF SampleFormat tag.
type SampleFormat uint16

const (
	SampleUint  SampleFormat = 1
	SampleInt   SampleFormat = 2
	SampleFloat SampleFormat = 3
)

func (f SampleFormat) String() string {
	switch f {
	case SampleUint:
		return "uint"
	case SampleInt:
		return "int"
	case SampleFloat:
		return "float"
	default:
		return fmt.Sprintf("SampleFormat(%d)", uint16(f))
	}
}

// Plane is one single-channel 2D image: Height rows of Width samples stored
// row-major in Pix, each sample little-endian and BitsPerSample wide.
type Plane struct {
	Width         int
	Height        int
	Format        SampleFormat
	BitsPerSample int
	Pix           []byte
}

// BytesPerSample returns the width of one sample in bytes.
func (p Plane) BytesPerSample() int {
	return p.BitsPerSample / 8
}

// RowBytes returns the length of one row in bytes.
func (p Plane) RowBytes() int {
	return p.Width * p.BytesPerSample()
}

// Validate reports whether Pix holds exactly Width*Height samples of a
// supported width.
func (p Plane) Validate() error {
	switch p.BitsPerSample {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("unsupported bits per sample %d", p.BitsPerSample)
	}
	if p.Format == SampleFloat && p.BitsPerSample < 32 {
		return fmt.Errorf("unsupported float width %d", p.BitsPerSample)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid plane size %dx%d", p.Width, p.Height)
	}
	if want := p.RowBytes() * p.Height; len(p.Pix) != want {
		return fmt.Errorf("plane holds %d bytes, want %d", len(p.Pix), want)
	}
	return nil
}

// TypeName returns the numpy-style element type name, e.g. "uint16".
func (p Plane) TypeName() string {
	return fmt.Sprintf("%s%d", p.Format, p.BitsPerSample)
}
