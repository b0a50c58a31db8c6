// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the per-run logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/pdiddy/h52tiff/pkg/types"
)

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(name)))); err != nil {
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
	return l, nil
}

// New returns a logger writing text records to console at cfg.Level. When
// cfg.File is set, JSON records at debug level are also appended to that
// file. The returned function closes the file and is always safe to call.
func New(console io.Writer, cfg types.LogConfig) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	text := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	if cfg.File == "" {
		return slog.New(text), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	jsonHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(slogmulti.Fanout(text, jsonHandler)), f.Close, nil
}
