// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/pdiddy/h52tiff/pkg/types"
)

// HDF5Source opens files with the pure-Go HDF5 reader.
type HDF5Source struct{}

// Open implements Source.
func (HDF5Source) Open(path string) (Container, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	return &hdf5Container{f: f}, nil
}

type hdf5Container struct {
	f *hdf5.File
}

func (c *hdf5Container) Dataset(name string) (Dataset, error) {
	ds, err := c.f.OpenDataset(name)
	switch {
	case errors.Is(err, hdf5.ErrNotFound):
		return nil, fmt.Errorf("%w: no %q in %s", ErrMissingDataset, name, c.f.Path())
	case errors.Is(err, hdf5.ErrNotDataset):
		return nil, fmt.Errorf("%w: %q is a group", ErrMissingDataset, name)
	case err != nil:
		return nil, err
	}
	return &hdf5Dataset{ds: ds}, nil
}

func (c *hdf5Container) Close() error {
	return c.f.Close()
}

// hdf5Dataset reads the whole array on the first Plane call and serves every
// channel from that buffer.
type hdf5Dataset struct {
	ds   *hdf5.Dataset
	pix  []byte
	read bool
}

func (d *hdf5Dataset) Shape() []uint64 {
	return d.ds.Shape()
}

func (d *hdf5Dataset) Type() (types.SampleFormat, int, error) {
	t, err := d.ds.GoType()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	switch t.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return types.SampleUint, int(t.Size()) * 8, nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return types.SampleInt, int(t.Size()) * 8, nil
	case reflect.Float32, reflect.Float64:
		return types.SampleFloat, int(t.Size()) * 8, nil
	default:
		return 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

func (d *hdf5Dataset) Plane(c int) (types.Plane, error) {
	format, bits, err := d.Type()
	if err != nil {
		return types.Plane{}, err
	}
	shape := d.ds.Shape()
	if len(shape) != 3 {
		return types.Plane{}, fmt.Errorf("%w: rank %d", ErrInvalidShape, len(shape))
	}
	if c < 0 || uint64(c) >= shape[0] {
		return types.Plane{}, fmt.Errorf("channel %d out of range [0, %d)", c, shape[0])
	}

	if !d.read {
		if d.pix, err = d.readAll(format, bits); err != nil {
			return types.Plane{}, err
		}
		d.read = true
	}

	p := types.Plane{
		Width:         int(shape[2]),
		Height:        int(shape[1]),
		Format:        format,
		BitsPerSample: bits,
	}
	size := p.RowBytes() * p.Height
	if want := size * int(shape[0]); len(d.pix) != want {
		return types.Plane{}, fmt.Errorf("dataset holds %d bytes, want %d", len(d.pix), want)
	}
	p.Pix = d.pix[c*size : (c+1)*size]
	return p, nil
}

// readAll decodes the dataset and re-encodes it as little-endian samples.
func (d *hdf5Dataset) readAll(format types.SampleFormat, bits int) ([]byte, error) {
	switch {
	case format == types.SampleUint && bits == 8:
		return readLE[uint8](d.ds)
	case format == types.SampleUint && bits == 16:
		return readLE[uint16](d.ds)
	case format == types.SampleUint && bits == 32:
		return readLE[uint32](d.ds)
	case format == types.SampleUint && bits == 64:
		return readLE[uint64](d.ds)
	case format == types.SampleInt && bits == 8:
		return readLE[int8](d.ds)
	case format == types.SampleInt && bits == 16:
		return readLE[int16](d.ds)
	case format == types.SampleInt && bits == 32:
		return readLE[int32](d.ds)
	case format == types.SampleInt && bits == 64:
		return readLE[int64](d.ds)
	case format == types.SampleFloat && bits == 32:
		return readLE[float32](d.ds)
	case format == types.SampleFloat && bits == 64:
		return readLE[float64](d.ds)
	default:
		return nil, fmt.Errorf("%w: %s%d", ErrUnsupportedType, format, bits)
	}
}

func readLE[T uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64 | float32 | float64](ds *hdf5.Dataset) ([]byte, error) {
	var vals []T
	if err := ds.Read(&vals); err != nil {
		return nil, err
	}
	return binary.Append(nil, binary.LittleEndian, vals)
}
