// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Per-file failures. Each one skips the file (or stops it part way) and
// never aborts the batch. Match with errors.Is.
var (
	ErrOpen            = errors.New("cannot open file")
	ErrMissingDataset  = errors.New("dataset not found")
	ErrInvalidShape    = errors.New("invalid dataset shape")
	ErrTooManyChannels = errors.New("too many channels")
	ErrUnsupportedType = errors.New("unsupported element type")
	ErrRead            = errors.New("cannot read channel")
	ErrWrite           = errors.New("cannot write output")
	ErrVerify          = errors.New("output does not match source")
)

// fileError tags cause with kind and attaches the file path plus any extra
// key/value context.
func fileError(kind error, path string, cause error, kv ...any) error {
	b := oops.In("convert").With("file", path)
	if len(kv) > 0 {
		b = b.With(kv...)
	}
	switch {
	case cause == nil:
		return b.Wrap(kind)
	case errors.Is(cause, kind):
		return b.Wrap(cause)
	default:
		return b.Wrap(fmt.Errorf("%w: %w", kind, cause))
	}
}

// errorAttrs returns the reason for err followed by the context fileError
// attached to it, sorted by key. The file key is dropped because every log
// line already carries it.
func errorAttrs(err error) []any {
	attrs := []any{"reason", err.Error()}
	oe, ok := oops.AsOops(err)
	if !ok {
		return attrs
	}
	ctx := oe.Context()
	keys := lo.Without(lo.Keys(ctx), "file")
	slices.Sort(keys)
	for _, k := range keys {
		attrs = append(attrs, k, ctx[k])
	}
	return attrs
}
