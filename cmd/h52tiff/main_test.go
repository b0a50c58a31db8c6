// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/h52tiff/internal/config"
	"github.com/pdiddy/h52tiff/internal/convert"
	"github.com/pdiddy/h52tiff/internal/manifest"
	"github.com/pdiddy/h52tiff/internal/tiff"
	"github.com/pdiddy/h52tiff/pkg/types"
)

// stubSource serves uint8 volumes keyed by file base name. Any other file
// fails to open.
type stubSource struct {
	volumes map[string][]uint64
	opened  []string
}

func (s *stubSource) Open(path string) (convert.Container, error) {
	s.opened = append(s.opened, path)
	shape, ok := s.volumes[filepath.Base(path)]
	if !ok {
		return nil, errors.New("bad superblock")
	}
	return stubContainer{shape: shape}, nil
}

type stubContainer struct{ shape []uint64 }

func (c stubContainer) Dataset(name string) (convert.Dataset, error) {
	if name != convert.DatasetName {
		return nil, convert.ErrMissingDataset
	}
	return stubDataset(c), nil
}

func (stubContainer) Close() error { return nil }

type stubDataset struct{ shape []uint64 }

func (d stubDataset) Shape() []uint64 { return d.shape }

func (stubDataset) Type() (types.SampleFormat, int, error) {
	return types.SampleUint, 8, nil
}

func (d stubDataset) Plane(c int) (types.Plane, error) {
	w, h := int(d.shape[2]), int(d.shape[1])
	return types.Plane{
		Width:         w,
		Height:        h,
		Format:        types.SampleUint,
		BitsPerSample: 8,
		Pix:           bytes.Repeat([]byte{byte(c + 1)}, w*h),
	}, nil
}

// workspace isolates a test from config files in the working and home
// directories and returns a fresh temp dir.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func testApp(src convert.Source) *app {
	a := newApp()
	a.src = src
	a.now = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }
	return a
}

func execute(a *app, args ...string) (stdout, stderr string, err error) {
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func tiffMagic(t *testing.T, path string) uint16 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return binary.LittleEndian.Uint16(data[2:4])
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRun_ValidationFailsBeforeFileAccess(t *testing.T) {
	dir := workspace(t)
	in := filepath.Join(dir, "a.h5")
	touch(t, in)
	out := filepath.Join(dir, "out")
	src := &stubSource{}

	_, _, err := execute(testApp(src), in, out, "-p", "{original_filename}")

	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "{exported_channel}")
	assert.Empty(t, src.opened)
	_, statErr := os.Stat(out)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "output folder must not be created")
}

func TestRun_DirectoryDefaultsToBigTIFF(t *testing.T) {
	dir := workspace(t)
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	for _, name := range []string{"b.h5", "a.h5", "readme.txt"} {
		touch(t, filepath.Join(in, name))
	}
	out := filepath.Join(dir, "nested", "out")
	src := &stubSource{volumes: map[string][]uint64{
		"a.h5": {3, 4, 6},
		"b.h5": {2, 4, 6},
	}}

	_, stderr, err := execute(testApp(src), in, out)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(in, "a.h5"), filepath.Join(in, "b.h5")}, src.opened)
	assert.Equal(t, []string{"a_0.tiff", "a_1.tiff", "a_2.tiff", "b_0.tiff", "b_1.tiff"}, listDir(t, out))
	for _, name := range listDir(t, out) {
		assert.Equal(t, uint16(43), tiffMagic(t, filepath.Join(out, name)), name)
	}

	p, _, err := tiff.ReadFile(filepath.Join(out, "a_2.tiff"))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{3}, 24), p.Pix)

	assert.Contains(t, stderr, "found input files")
	assert.Contains(t, stderr, "count=2")
}

func TestRun_NoBigTIFF(t *testing.T) {
	dir := workspace(t)
	in := filepath.Join(dir, "vol.h5")
	touch(t, in)
	out := filepath.Join(dir, "out")
	src := &stubSource{volumes: map[string][]uint64{"vol.h5": {2, 3, 3}}}

	_, _, err := execute(testApp(src), in, out, "--no-big-tiff", "--compress", "--verify")
	require.NoError(t, err)

	for _, name := range []string{"vol_0.tiff", "vol_1.tiff"} {
		path := filepath.Join(out, name)
		assert.Equal(t, uint16(42), tiffMagic(t, path))
		_, info, err := tiff.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, tiff.CompressionDeflate, info.Compression)
	}
}

func TestRun_PerFileFailuresKeepExitZero(t *testing.T) {
	dir := workspace(t)
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	for _, name := range []string{"good.h5", "flat.h5", "wide.h5", "broken.h5"} {
		touch(t, filepath.Join(in, name))
	}
	out := filepath.Join(dir, "out")
	src := &stubSource{volumes: map[string][]uint64{
		"good.h5": {1, 2, 2},
		"flat.h5": {2, 2},
		"wide.h5": {21, 2, 2},
	}}

	_, stderr, err := execute(testApp(src), in, out)
	require.NoError(t, err)

	assert.Equal(t, []string{"good_0.tiff"}, listDir(t, out))
	assert.Equal(t, 3, strings.Count(stderr, "level=WARN"))
	for _, name := range []string{"flat.h5", "wide.h5", "broken.h5"} {
		assert.Contains(t, stderr, name)
	}
}

func TestRun_SingleRelativeFile(t *testing.T) {
	dir := workspace(t)
	touch(t, filepath.Join(dir, "scan.h5"))
	src := &stubSource{volumes: map[string][]uint64{"scan.h5": {1, 2, 2}}}

	_, _, err := execute(testApp(src), "scan.h5", "out")
	require.NoError(t, err)

	require.Len(t, src.opened, 1)
	assert.True(t, filepath.IsAbs(src.opened[0]))
	assert.Equal(t, []string{"scan_0.tiff"}, listDir(t, filepath.Join(dir, "out")))
}

func TestRun_NamingPatternSources(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) []string
		want  []string
	}{
		{
			name: "flag",
			setup: func(t *testing.T, dir string) []string {
				return []string{"-p", "c{exported_channel:02d}_{original_filename}"}
			},
			want: []string{"c00_scan.tiff", "c01_scan.tiff"},
		},
		{
			name: "environment",
			setup: func(t *testing.T, dir string) []string {
				t.Setenv("H52TIFF_NAMING_PATTERN", "{original_filename}-ch{exported_channel}")
				return nil
			},
			want: []string{"scan-ch0.tiff", "scan-ch1.tiff"},
		},
		{
			name: "config file in working directory",
			setup: func(t *testing.T, dir string) []string {
				cfg := "naming_pattern: \"{exported_channel}.{original_filename}\"\nbig_tiff: false\n"
				require.NoError(t, os.WriteFile(filepath.Join(dir, "h52tiff.yaml"), []byte(cfg), 0o644))
				return nil
			},
			want: []string{"0.scan.tiff", "1.scan.tiff"},
		},
		{
			name: "flag beats environment",
			setup: func(t *testing.T, dir string) []string {
				t.Setenv("H52TIFF_NAMING_PATTERN", "env_{original_filename}_{exported_channel}")
				return []string{"--naming-pattern", "flag_{original_filename}_{exported_channel}"}
			},
			want: []string{"flag_scan_0.tiff", "flag_scan_1.tiff"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := workspace(t)
			touch(t, filepath.Join(dir, "scan.h5"))
			src := &stubSource{volumes: map[string][]uint64{"scan.h5": {2, 1, 1}}}

			args := append([]string{"scan.h5", "out"}, tt.setup(t, dir)...)
			_, _, err := execute(testApp(src), args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, listDir(t, filepath.Join(dir, "out")))
		})
	}
}

func TestRun_ConfigFileFlag(t *testing.T) {
	dir := workspace(t)
	touch(t, filepath.Join(dir, "scan.h5"))
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("big_tiff: false\n"), 0o644))
	src := &stubSource{volumes: map[string][]uint64{"scan.h5": {1, 2, 2}}}

	_, stderr, err := execute(testApp(src), "scan.h5", "out", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using config file:")
	assert.Equal(t, uint16(42), tiffMagic(t, filepath.Join(dir, "out", "scan_0.tiff")))

	_, _, err = execute(testApp(src), "scan.h5", "out", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_Manifest(t *testing.T) {
	dir := workspace(t)
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	touch(t, filepath.Join(in, "a.h5"))
	touch(t, filepath.Join(in, "z.h5"))
	src := &stubSource{volumes: map[string][]uint64{"a.h5": {2, 2, 2}}}
	mpath := filepath.Join(dir, "run.yaml")

	_, _, err := execute(testApp(src), in, "out", "--manifest", mpath)
	require.NoError(t, err)

	m, err := manifest.Read(mpath)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Converted)
	assert.Equal(t, 1, m.Skipped)
	assert.Equal(t, 2, m.Planes)
	assert.Equal(t, filepath.Join(dir, "out"), m.OutputFolder)
	require.Len(t, m.Files, 2)
	assert.Equal(t, types.FileSkipped, m.Files[1].Status)
	assert.Contains(t, m.Files[1].Reason, "bad superblock")
}

func TestRun_VerboseAndLogFile(t *testing.T) {
	dir := workspace(t)
	touch(t, filepath.Join(dir, "scan.h5"))
	logPath := filepath.Join(dir, "run.log")
	src := &stubSource{volumes: map[string][]uint64{"scan.h5": {1, 1, 1}}}

	_, stderr, err := execute(testApp(src), "scan.h5", "out", "-v", "--log-file", logPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"batch summary"`)
}

func TestRun_ArgumentErrors(t *testing.T) {
	dir := workspace(t)
	touch(t, filepath.Join(dir, "scan.h5"))

	_, _, err := execute(testApp(&stubSource{}), "only-one")
	assert.Error(t, err)

	src := &stubSource{}
	_, _, err = execute(testApp(src), "scan.h5", "out", "--log-level", "loud")
	assert.ErrorContains(t, err, "unknown log level")
	assert.Empty(t, src.opened)

	_, _, err = execute(testApp(src), "scan.h5", "out", "--log-level", "loud", "-p", "{exported_channel}")
	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve), "log level is checked with the other settings")
	assert.Len(t, ve.Problems, 2)
	assert.Contains(t, err.Error(), "- log_level: unknown log level")
	assert.Contains(t, err.Error(), "- naming_pattern: missing required placeholder {original_filename}")
	assert.Empty(t, src.opened)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestInspect(t *testing.T) {
	dir := workspace(t)
	touch(t, filepath.Join(dir, "ok.h5"))
	touch(t, filepath.Join(dir, "wide.h5"))
	src := &stubSource{volumes: map[string][]uint64{
		"ok.h5":   {3, 5, 7},
		"wide.h5": {30, 5, 7},
	}}

	stdout, _, err := execute(testApp(src), "inspect", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ok.h5: shape [3 5 7] uint8, 3 channels: ok")
	assert.Contains(t, lines[1], "wide.h5: skip (too many channels")
	assert.Empty(t, listDir(t, dir)[2:], "inspect writes nothing")
}

func TestHelp_NamingRules(t *testing.T) {
	workspace(t)
	stdout, _, err := execute(testApp(&stubSource{}), "--help")
	require.NoError(t, err)

	assert.Contains(t, stdout, "scan.h5 renders as scan_2.tiff")
	assert.Contains(t, stdout, "may not contain / or \\")
	assert.Contains(t, stdout, "output name template without path separators")
}

func TestVersion(t *testing.T) {
	workspace(t)
	stdout, _, err := execute(testApp(&stubSource{}), "version")
	require.NoError(t, err)
	assert.Equal(t, "h52tiff dev\n", stdout)
}
